package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/repos"
	"github.com/docquery/docquery-backend/internal/types"
)

// HistoryService is the bounded conversation memory for a (user,
// project) pair. Append merges new turns onto the stored window, keeps
// only the most recent entries, and persists the result wholesale —
// concurrent appends for one key are last-writer-wins by design.
type HistoryService interface {
	Get(ctx context.Context, userID, projectID uuid.UUID) ([]types.Turn, error)
	Append(ctx context.Context, userID, projectID uuid.UUID, turns ...types.Turn) ([]types.Turn, error)
}

type historyService struct {
	log         *logger.Logger
	historyRepo repos.HistoryRepo
	window      int
}

func NewHistoryService(baseLog *logger.Logger, historyRepo repos.HistoryRepo, window int) HistoryService {
	return &historyService{
		log:         baseLog.With("service", "HistoryService"),
		historyRepo: historyRepo,
		window:      window,
	}
}

func (s *historyService) Get(ctx context.Context, userID, projectID uuid.UUID) ([]types.Turn, error) {
	return s.historyRepo.Get(ctx, nil, userID, projectID)
}

func (s *historyService) Append(ctx context.Context, userID, projectID uuid.UUID, turns ...types.Turn) ([]types.Turn, error) {
	stored, err := s.historyRepo.Get(ctx, nil, userID, projectID)
	if err != nil {
		return nil, err
	}
	merged := append(stored, turns...)
	if len(merged) > s.window {
		merged = merged[len(merged)-s.window:]
	}
	return s.historyRepo.Upsert(ctx, nil, userID, projectID, merged)
}
