package services

import (
	"context"
	"regexp"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docquery/docquery-backend/internal/apierr"
	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/repos"
	"github.com/docquery/docquery-backend/internal/storage"
	"github.com/docquery/docquery-backend/internal/types"
)

var projectNamePattern = regexp.MustCompile(`^[A-Za-z0-9]{3,50}$`)

type ProjectService interface {
	Create(ctx context.Context, name, description string, ownerID uuid.UUID) (*types.Project, error)
	Get(ctx context.Context, name string) (*types.Project, error)
	List(ctx context.Context, offset, limit int) (*repos.ProjectPage, error)
	Update(ctx context.Context, name string, newName, description *string) (*types.Project, error)
	// Delete removes the project row (documents, chunks and vectors go
	// with it through the storage cascade) and the project's blob
	// directory.
	Delete(ctx context.Context, name string) (*types.Project, error)
}

type projectService struct {
	db          *gorm.DB
	log         *logger.Logger
	projectRepo repos.ProjectRepo
	memberRepo  repos.ProjectUserRepo
	blobStore   storage.BlobStore
}

func NewProjectService(
	db *gorm.DB,
	baseLog *logger.Logger,
	projectRepo repos.ProjectRepo,
	memberRepo repos.ProjectUserRepo,
	blobStore storage.BlobStore,
) ProjectService {
	return &projectService{
		db:          db,
		log:         baseLog.With("service", "ProjectService"),
		projectRepo: projectRepo,
		memberRepo:  memberRepo,
		blobStore:   blobStore,
	}
}

func (s *projectService) Create(ctx context.Context, name, description string, ownerID uuid.UUID) (*types.Project, error) {
	if !projectNamePattern.MatchString(name) {
		return nil, apierr.Validation("project name must be 3-50 alphanumeric characters, got %q", name)
	}

	var created *types.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := s.projectRepo.Create(ctx, tx, &types.Project{Name: name, Description: description})
		if err != nil {
			return err
		}
		if err := s.memberRepo.Grant(ctx, tx, project.ID, ownerID); err != nil {
			return err
		}
		created = project
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("project created", "project_id", created.ID, "name", created.Name)
	return created, nil
}

func (s *projectService) Get(ctx context.Context, name string) (*types.Project, error) {
	project, err := s.projectRepo.GetByName(ctx, nil, name)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apierr.NotFound("project %q does not exist", name)
	}
	return project, nil
}

func (s *projectService) List(ctx context.Context, offset, limit int) (*repos.ProjectPage, error) {
	return s.projectRepo.List(ctx, nil, offset, limit)
}

func (s *projectService) Update(ctx context.Context, name string, newName, description *string) (*types.Project, error) {
	if newName != nil && !projectNamePattern.MatchString(*newName) {
		return nil, apierr.Validation("project name must be 3-50 alphanumeric characters, got %q", *newName)
	}
	project, err := s.projectRepo.Update(ctx, nil, name, newName, description)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apierr.NotFound("project %q does not exist", name)
	}
	return project, nil
}

func (s *projectService) Delete(ctx context.Context, name string) (*types.Project, error) {
	project, err := s.projectRepo.DeleteByName(ctx, nil, name)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apierr.NotFound("project %q does not exist", name)
	}
	if err := s.blobStore.DeleteProject(ctx, name); err != nil {
		// The rows are gone; losing the blob directory would only leak
		// disk, so surface it.
		return nil, err
	}
	s.log.Info("project deleted", "project_id", project.ID, "name", name)
	return project, nil
}
