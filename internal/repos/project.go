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

// ProjectPage is the paged listing envelope shared by project and
// document listings.
type ProjectPage struct {
	Total  int64             `json:"total"`
	Offset int               `json:"offset"`
	Limit  int               `json:"limit"`
	Items  []*types.Project  `json:"items"`
}

type ProjectRepo interface {
	Create(ctx context.Context, tx *gorm.DB, project *types.Project) (*types.Project, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Project, error)
	GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.Project, error)
	List(ctx context.Context, tx *gorm.DB, offset, limit int) (*ProjectPage, error)
	Update(ctx context.Context, tx *gorm.DB, name string, newName, description *string) (*types.Project, error)
	DeleteByName(ctx context.Context, tx *gorm.DB, name string) (*types.Project, error)
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	repoLog := baseLog.With("repo", "ProjectRepo")
	return &projectRepo{db: db, log: repoLog}
}

func (r *projectRepo) Create(ctx context.Context, tx *gorm.DB, project *types.Project) (*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(project).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apierr.Conflict("project with name %q already exists", project.Name)
		}
		return nil, err
	}
	return project, nil
}

func (r *projectRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var project types.Project
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var project types.Project
	err := transaction.WithContext(ctx).Where("name = ?", name).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepo) List(ctx context.Context, tx *gorm.DB, offset, limit int) (*ProjectPage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var total int64
	if err := transaction.WithContext(ctx).Model(&types.Project{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var items []*types.Project
	if err := transaction.WithContext(ctx).
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return &ProjectPage{Total: total, Offset: offset, Limit: limit, Items: items}, nil
}

func (r *projectRepo) Update(ctx context.Context, tx *gorm.DB, name string, newName, description *string) (*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	updates := map[string]interface{}{}
	if newName != nil {
		updates["name"] = *newName
	}
	if description != nil {
		updates["description"] = *description
	}
	if len(updates) == 0 {
		return r.GetByName(ctx, tx, name)
	}
	result := transaction.WithContext(ctx).
		Model(&types.Project{}).
		Where("name = ?", name).
		Updates(updates)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return nil, apierr.Conflict("project with name %q already exists", *newName)
		}
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	lookup := name
	if newName != nil {
		lookup = *newName
	}
	return r.GetByName(ctx, tx, lookup)
}

func (r *projectRepo) DeleteByName(ctx context.Context, tx *gorm.DB, name string) (*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	project, err := r.GetByName(ctx, tx, name)
	if err != nil || project == nil {
		return nil, err
	}
	if err := transaction.WithContext(ctx).Delete(&types.Project{}, "id = ?", project.ID).Error; err != nil {
		return nil, err
	}
	return project, nil
}
