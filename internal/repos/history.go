package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/types"
)

type HistoryRepo interface {
	// Get returns the stored turns for the key, or an empty slice when no
	// record exists yet.
	Get(ctx context.Context, tx *gorm.DB, userID, projectID uuid.UUID) ([]types.Turn, error)
	// Upsert replaces the stored window wholesale. Concurrent writers for
	// the same key race and the last completed call wins.
	Upsert(ctx context.Context, tx *gorm.DB, userID, projectID uuid.UUID, turns []types.Turn) ([]types.Turn, error)
}

type historyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHistoryRepo(db *gorm.DB, baseLog *logger.Logger) HistoryRepo {
	repoLog := baseLog.With("repo", "HistoryRepo")
	return &historyRepo{db: db, log: repoLog}
}

func (r *historyRepo) Get(ctx context.Context, tx *gorm.DB, userID, projectID uuid.UUID) ([]types.Turn, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var record types.UserHistory
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []types.Turn{}, nil
	}
	if err != nil {
		return nil, err
	}
	var turns []types.Turn
	if len(record.History) > 0 {
		if err := json.Unmarshal(record.History, &turns); err != nil {
			return nil, fmt.Errorf("decode stored history for user=%s project=%s: %w", userID, projectID, err)
		}
	}
	if turns == nil {
		turns = []types.Turn{}
	}
	return turns, nil
}

func (r *historyRepo) Upsert(ctx context.Context, tx *gorm.DB, userID, projectID uuid.UUID, turns []types.Turn) ([]types.Turn, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if turns == nil {
		turns = []types.Turn{}
	}
	raw, err := json.Marshal(turns)
	if err != nil {
		return nil, fmt.Errorf("encode history for user=%s project=%s: %w", userID, projectID, err)
	}
	record := types.UserHistory{
		ID:        uuid.New(),
		UserID:    userID,
		ProjectID: projectID,
		History:   raw,
	}
	err = transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "project_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"history": raw}),
		}).
		Create(&record).Error
	if err != nil {
		return nil, classifyConflict(err)
	}
	return turns, nil
}
