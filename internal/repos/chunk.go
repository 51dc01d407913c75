package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/types"
)

type ChunkRepo interface {
	// ReplaceForDocument drops every chunk the document currently has and
	// inserts the new ordered set in one transaction. Either the whole new
	// set lands, or the transaction rolls back and nothing changed.
	ReplaceForDocument(ctx context.Context, tx *gorm.DB, documentID uuid.UUID, chunks []*types.Chunk) ([]*types.Chunk, error)
	GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.Chunk, error)
	DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (int64, error)
	ExistsForDocument(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (bool, error)
}

type chunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChunkRepo(db *gorm.DB, baseLog *logger.Logger) ChunkRepo {
	repoLog := baseLog.With("repo", "ChunkRepo")
	return &chunkRepo{db: db, log: repoLog}
}

func (r *chunkRepo) ReplaceForDocument(ctx context.Context, tx *gorm.DB, documentID uuid.UUID, chunks []*types.Chunk) ([]*types.Chunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	// Keep batches small because Text is large.
	const batchSize = 100

	err := transaction.WithContext(ctx).Transaction(func(innerTx *gorm.DB) error {
		if err := innerTx.Delete(&types.Chunk{}, "document_id = ?", documentID).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		if err := innerTx.CreateInBatches(chunks, batchSize).Error; err != nil {
			return classifyConflict(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

func (r *chunkRepo) GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.Chunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Chunk
	if err := transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("chunk_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *chunkRepo) DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	result := transaction.WithContext(ctx).Delete(&types.Chunk{}, "document_id = ?", documentID)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *chunkRepo) ExistsForDocument(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Chunk{}).
		Where("document_id = ?", documentID).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
