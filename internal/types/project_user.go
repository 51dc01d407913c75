package types

import (
	"github.com/google/uuid"
)

// ProjectUser links a user to a project they may query. Membership is
// the unit of authorization for everything under a project.
type ProjectUser struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_project_users_project_user,priority:1" json:"project_id"`
	Project   *Project  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_project_users_project_user,priority:2" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
}

func (ProjectUser) TableName() string { return "project_users" }
