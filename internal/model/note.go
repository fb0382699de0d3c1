package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Note struct {
	ID           uuid.UUID     `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	UserID       *uuid.UUID    `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Content      string        `gorm:"type:text;not null" json:"content"`
	Position     GeoPoint      `gorm:"type:jsonb;not null" json:"position"`
	LocationInfo *LocationInfo `gorm:"type:jsonb" json:"locationInfo,omitempty"`
	CreatedAt    time.Time     `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    *time.Time    `json:"updatedAt,omitempty"`
}

func (Note) TableName() string {
	return "notes"
}

func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
