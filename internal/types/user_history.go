package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single conversation entry as stored in the history window
// and as sent to the generation backend.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserHistory is the bounded conversation window for one (user, project)
// pair, persisted wholesale as a single upsertable row.
type UserHistory struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_user_history_user_project,priority:1" json:"user_id"`
	User      *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ProjectID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_user_history_user_project,priority:2" json:"project_id"`
	Project   *Project       `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	History   datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"history"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserHistory) TableName() string { return "user_history" }
