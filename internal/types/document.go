package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Document is one uploaded file inside a project. IsProcessed and
// IsFlushed are independent: a document can be processed and later
// flushed, at which point its chunks stay retrievable but the raw bytes
// are gone until re-upload.
type Document struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID   uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:uq_documents_project_filename,priority:1" json:"project_id"`
	Project     *Project       `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	Filename    string         `gorm:"size:255;not null;uniqueIndex:uq_documents_project_filename,priority:2" json:"filename"`
	Metadata    datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`
	IsProcessed bool           `gorm:"not null;default:false;index" json:"is_processed"`
	IsFlushed   bool           `gorm:"not null;default:false" json:"is_flushed"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (Document) TableName() string { return "documents" }
