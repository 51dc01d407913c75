package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docquery/docquery-backend/internal/apierr"
	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/types"
)

// DocumentFilter is the closed set of listing filters. ParseDocumentFilter
// rejects anything outside it so an unknown filter is a validation error,
// not a silently empty result.
type DocumentFilter string

const (
	FilterAll         DocumentFilter = "all"
	FilterProcessed   DocumentFilter = "processed"
	FilterUnprocessed DocumentFilter = "unprocessed"
	FilterFlushed     DocumentFilter = "flushed"
	FilterUnflushed   DocumentFilter = "unflushed"
)

// filterPredicates maps each filter to the scope it applies on top of
// the project restriction.
var filterPredicates = map[DocumentFilter]func(*gorm.DB) *gorm.DB{
	FilterAll:         func(q *gorm.DB) *gorm.DB { return q },
	FilterProcessed:   func(q *gorm.DB) *gorm.DB { return q.Where("is_processed = ?", true) },
	FilterUnprocessed: func(q *gorm.DB) *gorm.DB { return q.Where("is_processed = ?", false) },
	FilterFlushed:     func(q *gorm.DB) *gorm.DB { return q.Where("is_flushed = ?", true) },
	FilterUnflushed:   func(q *gorm.DB) *gorm.DB { return q.Where("is_flushed = ?", false) },
}

func ParseDocumentFilter(raw string) (DocumentFilter, error) {
	f := DocumentFilter(raw)
	if raw == "" {
		return FilterAll, nil
	}
	if _, ok := filterPredicates[f]; !ok {
		return "", apierr.Validation("unknown document filter %q", raw)
	}
	return f, nil
}

type DocumentPage struct {
	Total  int64             `json:"total"`
	Offset int               `json:"offset"`
	Limit  int               `json:"limit"`
	Items  []*types.Document `json:"items"`
}

type DocumentRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, documents []*types.Document) ([]*types.Document, error)
	GetByProjectAndFilename(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, filename string) (*types.Document, error)
	List(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, filter DocumentFilter, offset, limit int) (*DocumentPage, error)
	MarkProcessed(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (*types.Document, error)
	MarkFlushed(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (*types.Document, error)
	Delete(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, filename string) (*types.Document, error)
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	repoLog := baseLog.With("repo", "DocumentRepo")
	return &documentRepo{db: db, log: repoLog}
}

func (r *documentRepo) CreateBatch(ctx context.Context, tx *gorm.DB, documents []*types.Document) ([]*types.Document, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(documents) == 0 {
		return []*types.Document{}, nil
	}
	const batchSize = 100
	if err := transaction.WithContext(ctx).CreateInBatches(documents, batchSize).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apierr.Conflict("one or more documents already exist for this project")
		}
		return nil, err
	}
	return documents, nil
}

func (r *documentRepo) GetByProjectAndFilename(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, filename string) (*types.Document, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var doc types.Document
	err := transaction.WithContext(ctx).
		Where("project_id = ? AND filename = ?", projectID, filename).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) List(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, filter DocumentFilter, offset, limit int) (*DocumentPage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	predicate, ok := filterPredicates[filter]
	if !ok {
		return nil, apierr.Validation("unknown document filter %q", string(filter))
	}

	scoped := predicate(transaction.WithContext(ctx).Model(&types.Document{}).Where("project_id = ?", projectID))
	var total int64
	if err := scoped.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []*types.Document
	query := predicate(transaction.WithContext(ctx).Where("project_id = ?", projectID))
	if err := query.
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return &DocumentPage{Total: total, Offset: offset, Limit: limit, Items: items}, nil
}

func (r *documentRepo) MarkProcessed(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (*types.Document, error) {
	return r.setFlag(ctx, tx, documentID, "is_processed")
}

func (r *documentRepo) MarkFlushed(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (*types.Document, error) {
	return r.setFlag(ctx, tx, documentID, "is_flushed")
}

func (r *documentRepo) setFlag(ctx context.Context, tx *gorm.DB, documentID uuid.UUID, column string) (*types.Document, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	result := transaction.WithContext(ctx).
		Model(&types.Document{}).
		Where("id = ?", documentID).
		Update(column, true)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	var doc types.Document
	if err := transaction.WithContext(ctx).Where("id = ?", documentID).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) Delete(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, filename string) (*types.Document, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	doc, err := r.GetByProjectAndFilename(ctx, tx, projectID, filename)
	if err != nil || doc == nil {
		return nil, err
	}
	if err := transaction.WithContext(ctx).Delete(&types.Document{}, "id = ?", doc.ID).Error; err != nil {
		return nil, err
	}
	return doc, nil
}
