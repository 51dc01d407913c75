package services

import (
	"context"
	"regexp"

	"github.com/docquery/docquery-backend/internal/apierr"
	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/repos"
	"github.com/docquery/docquery-backend/internal/types"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

// UserService resolves the caller identity the request layer hands us.
// There is no credential check here; identity is taken at face value
// and materialized as a users row on first sight.
type UserService interface {
	Ensure(ctx context.Context, username string) (*types.User, error)
}

type userService struct {
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(baseLog *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{
		log:      baseLog.With("service", "UserService"),
		userRepo: userRepo,
	}
}

func (s *userService) Ensure(ctx context.Context, username string) (*types.User, error) {
	if !usernamePattern.MatchString(username) {
		return nil, apierr.Validation("username must be 1-64 characters of letters, digits or underscore, got %q", username)
	}
	return s.userRepo.GetOrCreate(ctx, nil, username)
}
