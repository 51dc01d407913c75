package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/repos"
)

// AccessService answers whether a user may touch a project. It is a
// thin veneer over project membership so the query path can be tested
// against a fake.
type AccessService interface {
	UserHasAccess(ctx context.Context, userID, projectID uuid.UUID) (bool, error)
}

type accessService struct {
	log        *logger.Logger
	memberRepo repos.ProjectUserRepo
}

func NewAccessService(baseLog *logger.Logger, memberRepo repos.ProjectUserRepo) AccessService {
	return &accessService{
		log:        baseLog.With("service", "AccessService"),
		memberRepo: memberRepo,
	}
}

func (s *accessService) UserHasAccess(ctx context.Context, userID, projectID uuid.UUID) (bool, error) {
	return s.memberRepo.HasAccess(ctx, nil, userID, projectID)
}
