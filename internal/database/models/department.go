package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Department is read by professor registration; its own rules live outside the auth core
type Department struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string     `gorm:"uniqueIndex;not null" json:"name"`
	Description     string     `json:"description,omitempty"`
	HeadProfessorID *uuid.UUID `gorm:"type:uuid" json:"head_professor_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName overrides the table name
func (Department) TableName() string {
	return "departments"
}

func (d *Department) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
