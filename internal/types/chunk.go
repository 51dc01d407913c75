package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Chunk is one ordered passage of a document. ChunkOrder is zero-based
// and contiguous within a document; PageNumber is the 1-based source
// page the text came from.
type Chunk struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DocumentID uuid.UUID      `gorm:"type:uuid;not null;index" json:"document_id"`
	Document   *Document      `gorm:"constraint:OnDelete:CASCADE;foreignKey:DocumentID;references:ID" json:"document,omitempty"`
	ChunkOrder int            `gorm:"column:chunk_order;not null" json:"chunk_order"`
	PageNumber int            `gorm:"column:page_number;not null" json:"page_number"`
	Text       string         `gorm:"type:text;not null" json:"text"`
	Metadata   datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (Chunk) TableName() string { return "chunks" }
