package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/types"
)

type ProjectUserRepo interface {
	Grant(ctx context.Context, tx *gorm.DB, projectID, userID uuid.UUID) error
	HasAccess(ctx context.Context, tx *gorm.DB, userID, projectID uuid.UUID) (bool, error)
}

type projectUserRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectUserRepo(db *gorm.DB, baseLog *logger.Logger) ProjectUserRepo {
	repoLog := baseLog.With("repo", "ProjectUserRepo")
	return &projectUserRepo{db: db, log: repoLog}
}

func (r *projectUserRepo) Grant(ctx context.Context, tx *gorm.DB, projectID, userID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	membership := types.ProjectUser{ProjectID: projectID, UserID: userID}
	if err := transaction.WithContext(ctx).Create(&membership).Error; err != nil {
		// Granting twice is a no-op, not an error.
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	return nil
}

func (r *projectUserRepo) HasAccess(ctx context.Context, tx *gorm.DB, userID, projectID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ProjectUser{}).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
