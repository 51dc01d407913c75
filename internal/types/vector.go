package types

import (
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// VectorEmbedding holds one embedding per chunk. ProjectID is
// denormalized onto the row so similarity search can filter to a single
// project before computing any distance.
type VectorEmbedding struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID  uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:uq_vectors_project_document_chunk,priority:1" json:"project_id"`
	Project    *Project        `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	DocumentID uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:uq_vectors_project_document_chunk,priority:2" json:"document_id"`
	Document   *Document       `gorm:"constraint:OnDelete:CASCADE;foreignKey:DocumentID;references:ID" json:"document,omitempty"`
	ChunkID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_vectors_project_document_chunk,priority:3" json:"chunk_id"`
	Chunk      *Chunk          `gorm:"constraint:OnDelete:CASCADE;foreignKey:ChunkID;references:ID" json:"chunk,omitempty"`
	Embedding  pgvector.Vector `gorm:"type:vector(768);not null" json:"-"`
}

func (VectorEmbedding) TableName() string { return "vector_embeddings" }
