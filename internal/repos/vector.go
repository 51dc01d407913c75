package repos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/docquery/docquery-backend/internal/apierr"
	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/types"
)

// RetrievedChunk is one similarity-search hit: the owning chunk's text
// and its cosine distance from the query vector (smaller is closer).
type RetrievedChunk struct {
	Text     string  `json:"text"`
	Distance float64 `json:"distance"`
}

type VectorRepo interface {
	// InsertBatch stores one embedding per chunk. chunkIDs and embeddings
	// must be equal-length and order-aligned; the whole call fails and
	// inserts nothing otherwise, and a constraint violation in any batch
	// aborts the entire call.
	InsertBatch(ctx context.Context, tx *gorm.DB, projectID, documentID uuid.UUID, chunkIDs []uuid.UUID, embeddings [][]float32) error
	DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error
	// TopK returns up to k chunks of the given project ordered by
	// ascending cosine distance to the query vector.
	TopK(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, queryVector []float32, k int) ([]RetrievedChunk, error)
	CountByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (int64, error)
}

type vectorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVectorRepo(db *gorm.DB, baseLog *logger.Logger) VectorRepo {
	repoLog := baseLog.With("repo", "VectorRepo")
	return &vectorRepo{db: db, log: repoLog}
}

func (r *vectorRepo) InsertBatch(ctx context.Context, tx *gorm.DB, projectID, documentID uuid.UUID, chunkIDs []uuid.UUID, embeddings [][]float32) error {
	if len(chunkIDs) != len(embeddings) {
		return apierr.Validation("chunk id list length %d must match embeddings length %d", len(chunkIDs), len(embeddings))
	}
	if len(chunkIDs) == 0 {
		return nil
	}

	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	rows := make([]*types.VectorEmbedding, 0, len(chunkIDs))
	for i, chunkID := range chunkIDs {
		rows = append(rows, &types.VectorEmbedding{
			ProjectID:  projectID,
			DocumentID: documentID,
			ChunkID:    chunkID,
			Embedding:  pgvector.NewVector(embeddings[i]),
		})
	}

	const batchSize = 100
	err := transaction.WithContext(ctx).Transaction(func(innerTx *gorm.DB) error {
		return innerTx.CreateInBatches(rows, batchSize).Error
	})
	if err != nil {
		return classifyConflict(err)
	}
	return nil
}

func (r *vectorRepo) DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Delete(&types.VectorEmbedding{}, "document_id = ?", documentID).Error
}

func (r *vectorRepo) TopK(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, queryVector []float32, k int) ([]RetrievedChunk, error) {
	if k <= 0 {
		return []RetrievedChunk{}, nil
	}
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []RetrievedChunk
	err := transaction.WithContext(ctx).Raw(`
		SELECT c.text AS text, (v.embedding <=> ?)::float8 AS distance
		FROM vector_embeddings v
		JOIN chunks c ON c.id = v.chunk_id
		WHERE v.project_id = ?
		ORDER BY distance ASC
		LIMIT ?
	`, pgvector.NewVector(queryVector), projectID, k).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []RetrievedChunk{}
	}
	return results, nil
}

func (r *vectorRepo) CountByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.VectorEmbedding{}).
		Where("project_id = ?", projectID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
