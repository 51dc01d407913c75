package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/types"
)

type UserRepo interface {
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*types.User, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error)
	// GetOrCreate returns the user with the given username, creating the
	// row first if it does not exist. A concurrent create of the same
	// username resolves to the winner's row.
	GetOrCreate(ctx context.Context, tx *gorm.DB, username string) (*types.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *userRepo) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*types.User, error) {
	var user types.User
	err := r.conn(tx).WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error) {
	var user types.User
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, username string) (*types.User, error) {
	existing, err := r.GetByUsername(ctx, tx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	user := &types.User{Username: username}
	if err := r.conn(tx).WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return r.GetByUsername(ctx, tx, username)
		}
		return nil, err
	}
	return user, nil
}
