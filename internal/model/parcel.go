package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmbeddedNote is a free-text note appended to a parcel's notes array.
type EmbeddedNote struct {
	ID        uuid.UUID  `json:"id"`
	Content   string     `json:"content"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type EmbeddedNotes []EmbeddedNote

func (n EmbeddedNotes) Value() (driver.Value, error) {
	if n == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(n)
}

func (n *EmbeddedNotes) Scan(value any) error {
	return scanJSON(value, n)
}

// Parcel is a searched land unit with a synthesized boundary.
type Parcel struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	UserID    *uuid.UUID    `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Il        string        `gorm:"type:varchar(100);not null" json:"il"`
	Ilce      string        `gorm:"type:varchar(100);not null" json:"ilce"`
	Mahalle   string        `gorm:"type:varchar(255);not null" json:"mahalle"`
	Ada       string        `gorm:"type:varchar(50);not null" json:"ada"`
	Parsel    string        `gorm:"type:varchar(50)" json:"parsel,omitempty"`
	Geometry  Geometry      `gorm:"type:jsonb;not null" json:"geometry"`
	Center    GeoPoint      `gorm:"type:jsonb;not null" json:"center"`
	Notes     EmbeddedNotes `gorm:"type:jsonb;not null;default:'[]'" json:"notes"`
	CreatedAt time.Time     `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Parcel) TableName() string {
	return "parcels"
}

func (p *Parcel) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
