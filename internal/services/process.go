package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/docquery/docquery-backend/internal/apierr"
	"github.com/docquery/docquery-backend/internal/clients/openai"
	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/repos"
	"github.com/docquery/docquery-backend/internal/splitter"
	"github.com/docquery/docquery-backend/internal/storage"
	"github.com/docquery/docquery-backend/internal/types"
)

// chunkMetadata echoes the provenance of a chunk alongside its columns.
type chunkMetadata struct {
	Filename   string `json:"filename"`
	PageNumber int    `json:"page_number"`
	ChunkOrder int    `json:"chunk_order"`
}

type ProcessService interface {
	// ProcessDocuments runs the split -> chunk -> embed -> index pipeline
	// for each named document. A failure on one document aborts the call;
	// documents already processed in the same call stay processed.
	ProcessDocuments(ctx context.Context, projectName string, filenames []string, chunkSize, chunkOverlap int) ([]*types.Document, error)
}

type processService struct {
	db           *gorm.DB
	log          *logger.Logger
	projectRepo  repos.ProjectRepo
	documentRepo repos.DocumentRepo
	chunkRepo    repos.ChunkRepo
	vectorRepo   repos.VectorRepo
	blobStore    storage.BlobStore
	split        splitter.Splitter
	ai           openai.Client

	// One in-flight Process per document. The guard is held across the
	// whole transition, including the embedding call, but it is purely
	// in-process: no storage lock is held while waiting on the backend.
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewProcessService(
	db *gorm.DB,
	baseLog *logger.Logger,
	projectRepo repos.ProjectRepo,
	documentRepo repos.DocumentRepo,
	chunkRepo repos.ChunkRepo,
	vectorRepo repos.VectorRepo,
	blobStore storage.BlobStore,
	split splitter.Splitter,
	ai openai.Client,
) ProcessService {
	return &processService{
		db:           db,
		log:          baseLog.With("service", "ProcessService"),
		projectRepo:  projectRepo,
		documentRepo: documentRepo,
		chunkRepo:    chunkRepo,
		vectorRepo:   vectorRepo,
		blobStore:    blobStore,
		split:        split,
		ai:           ai,
		locks:        map[uuid.UUID]*sync.Mutex{},
	}
}

func (s *processService) lockDocument(id uuid.UUID) func() {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	s.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

func (s *processService) ProcessDocuments(ctx context.Context, projectName string, filenames []string, chunkSize, chunkOverlap int) ([]*types.Document, error) {
	project, err := s.projectRepo.GetByName(ctx, nil, projectName)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apierr.NotFound("project %q does not exist", projectName)
	}

	processed := make([]*types.Document, 0, len(filenames))
	for _, filename := range filenames {
		doc, err := s.processOne(ctx, project, projectName, filename, chunkSize, chunkOverlap)
		if err != nil {
			return nil, err
		}
		processed = append(processed, doc)
	}
	return processed, nil
}

func (s *processService) processOne(ctx context.Context, project *types.Project, projectName, filename string, chunkSize, chunkOverlap int) (*types.Document, error) {
	doc, err := s.documentRepo.GetByProjectAndFilename(ctx, nil, project.ID, filename)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apierr.NotFound("file %q is not found in project %q", filename, projectName)
	}
	if doc.IsFlushed {
		return nil, apierr.InvalidState("file %q is flushed from storage; delete and re-upload it before processing", filename)
	}

	unlock := s.lockDocument(doc.ID)
	defer unlock()

	content, err := s.blobStore.Read(ctx, projectName, filename)
	if err != nil {
		return nil, apierr.NotFound("raw bytes for %q are missing from the blob store", filename)
	}

	passages, err := s.split.Split(content, chunkSize, chunkOverlap)
	if err != nil {
		return nil, err
	}

	chunks := make([]*types.Chunk, 0, len(passages))
	chunkIDs := make([]uuid.UUID, 0, len(passages))
	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		meta, err := json.Marshal(chunkMetadata{
			Filename:   filename,
			PageNumber: p.Page,
			ChunkOrder: p.Order,
		})
		if err != nil {
			return nil, err
		}
		chunk := &types.Chunk{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			ChunkOrder: p.Order,
			PageNumber: p.Page,
			Text:       p.Text,
			Metadata:   datatypes.JSON(meta),
		}
		chunks = append(chunks, chunk)
		chunkIDs = append(chunkIDs, chunk.ID)
		texts = append(texts, p.Text)
	}

	// Reprocessing replaces the previous generation wholesale; the old
	// vectors fall with their chunks through the storage cascade. Stale
	// vectors from any earlier partial failure are cleared explicitly.
	if err := s.vectorRepo.DeleteByDocumentID(ctx, nil, doc.ID); err != nil {
		return nil, err
	}
	if _, err := s.chunkRepo.ReplaceForDocument(ctx, nil, doc.ID, chunks); err != nil {
		return nil, err
	}

	if len(texts) > 0 {
		embeddings, err := s.ai.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		if err := s.vectorRepo.InsertBatch(ctx, nil, project.ID, doc.ID, chunkIDs, embeddings); err != nil {
			return nil, err
		}
	}

	updated, err := s.documentRepo.MarkProcessed(ctx, nil, doc.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("document processed",
		"project", projectName,
		"filename", filename,
		"chunks", len(chunks),
	)
	return updated, nil
}
