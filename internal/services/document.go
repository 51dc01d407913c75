package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"regexp"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/docquery/docquery-backend/internal/apierr"
	"github.com/docquery/docquery-backend/internal/config"
	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/repos"
	"github.com/docquery/docquery-backend/internal/storage"
	"github.com/docquery/docquery-backend/internal/types"
)

// Filenames may carry letters, digits, underscores, and one optional
// extension. Directory parts are stripped before matching.
var filenamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)?$`)

// UploadFile is one file of an upload batch, already read into memory.
type UploadFile struct {
	Filename string
	Content  []byte
}

// documentMetadata is the free-form metadata column recorded at upload.
type documentMetadata struct {
	Size        int64  `json:"size"`
	ContentType string `json:"type"`
	SHA256      string `json:"sha256"`
}

type DocumentService interface {
	// Upload validates every file in the batch before a single byte is
	// written: if any file fails validation, nothing is persisted or
	// registered.
	Upload(ctx context.Context, projectName string, files []UploadFile) ([]*types.Document, error)
	List(ctx context.Context, projectName string, filter repos.DocumentFilter, offset, limit int) (*repos.DocumentPage, error)
	// Flush removes the raw bytes of each named document from the blob
	// store and marks it flushed. Chunks and vectors stay retrievable.
	Flush(ctx context.Context, projectName string, filenames []string) ([]*types.Document, error)
	// Delete removes the blob (if present) and the registry row; chunks
	// and vectors go with the row through the storage cascade.
	Delete(ctx context.Context, projectName, filename string) (*types.Document, error)
}

type documentService struct {
	db           *gorm.DB
	log          *logger.Logger
	cfg          config.Config
	projectRepo  repos.ProjectRepo
	documentRepo repos.DocumentRepo
	blobStore    storage.BlobStore
}

func NewDocumentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg config.Config,
	projectRepo repos.ProjectRepo,
	documentRepo repos.DocumentRepo,
	blobStore storage.BlobStore,
) DocumentService {
	return &documentService{
		db:           db,
		log:          baseLog.With("service", "DocumentService"),
		cfg:          cfg,
		projectRepo:  projectRepo,
		documentRepo: documentRepo,
		blobStore:    blobStore,
	}
}

func (s *documentService) resolveProject(ctx context.Context, projectName string) (*types.Project, error) {
	project, err := s.projectRepo.GetByName(ctx, nil, projectName)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apierr.NotFound("project %q does not exist", projectName)
	}
	return project, nil
}

// validateFile checks size, content type and filename charset, and
// returns the normalized filename plus the metadata to record.
func (s *documentService) validateFile(f UploadFile) (string, documentMetadata, error) {
	name := path.Base(f.Filename)
	if !filenamePattern.MatchString(name) {
		return "", documentMetadata{}, apierr.Validation("invalid filename %q: only letters, digits and underscores are allowed", f.Filename)
	}

	size := int64(len(f.Content))
	if size == 0 {
		return "", documentMetadata{}, apierr.Validation("file %q is empty", name)
	}
	if size > s.cfg.MaxFileSizeBytes() {
		return "", documentMetadata{}, apierr.Validation("file %q exceeds the %d MB limit", name, s.cfg.MaxFileSizeMB)
	}

	detected := mimetype.Detect(f.Content).String()
	allowed := false
	for _, mt := range s.cfg.AllowedMimeTypes {
		if detected == mt {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", documentMetadata{}, apierr.Validation("file %q has unsupported content type %q", name, detected)
	}

	sum := sha256.Sum256(f.Content)
	return name, documentMetadata{
		Size:        size,
		ContentType: detected,
		SHA256:      hex.EncodeToString(sum[:]),
	}, nil
}

func (s *documentService) Upload(ctx context.Context, projectName string, files []UploadFile) ([]*types.Document, error) {
	project, err := s.resolveProject(ctx, projectName)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apierr.Validation("upload requires at least one file")
	}

	// Validate the whole batch before writing anything.
	names := make([]string, len(files))
	metas := make([]documentMetadata, len(files))
	for i, f := range files {
		name, meta, err := s.validateFile(f)
		if err != nil {
			return nil, err
		}
		names[i] = name
		metas[i] = meta
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range files {
		g.Go(func() error {
			return s.blobStore.Write(gctx, projectName, names[i], bytes.NewReader(files[i].Content))
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to persist upload batch: %w", err)
	}

	docs := make([]*types.Document, len(files))
	for i := range files {
		raw, err := json.Marshal(metas[i])
		if err != nil {
			return nil, err
		}
		docs[i] = &types.Document{
			ProjectID: project.ID,
			Filename:  names[i],
			Metadata:  datatypes.JSON(raw),
		}
	}
	inserted, err := s.documentRepo.CreateBatch(ctx, nil, docs)
	if err != nil {
		return nil, err
	}
	s.log.Info("documents uploaded", "project", projectName, "count", len(inserted))
	return inserted, nil
}

func (s *documentService) List(ctx context.Context, projectName string, filter repos.DocumentFilter, offset, limit int) (*repos.DocumentPage, error) {
	project, err := s.resolveProject(ctx, projectName)
	if err != nil {
		return nil, err
	}
	return s.documentRepo.List(ctx, nil, project.ID, filter, offset, limit)
}

func (s *documentService) Flush(ctx context.Context, projectName string, filenames []string) ([]*types.Document, error) {
	project, err := s.resolveProject(ctx, projectName)
	if err != nil {
		return nil, err
	}
	flushed := make([]*types.Document, 0, len(filenames))
	for _, filename := range filenames {
		doc, err := s.documentRepo.GetByProjectAndFilename(ctx, nil, project.ID, filename)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, apierr.NotFound("file %q is not found in project %q", filename, projectName)
		}
		if err := s.blobStore.Delete(ctx, projectName, filename); err != nil {
			return nil, err
		}
		updated, err := s.documentRepo.MarkFlushed(ctx, nil, doc.ID)
		if err != nil {
			return nil, err
		}
		flushed = append(flushed, updated)
	}
	s.log.Info("documents flushed", "project", projectName, "count", len(flushed))
	return flushed, nil
}

func (s *documentService) Delete(ctx context.Context, projectName, filename string) (*types.Document, error) {
	project, err := s.resolveProject(ctx, projectName)
	if err != nil {
		return nil, err
	}
	if err := s.blobStore.Delete(ctx, projectName, filename); err != nil {
		return nil, err
	}
	doc, err := s.documentRepo.Delete(ctx, nil, project.ID, filename)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apierr.NotFound("file %q is not found in project %q", filename, projectName)
	}
	s.log.Info("document deleted", "project", projectName, "filename", filename)
	return doc, nil
}
