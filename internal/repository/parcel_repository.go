package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parcel-service/internal/model"
)

type ParcelRepository struct {
	db *gorm.DB
}

func NewParcelRepository(db *gorm.DB) *ParcelRepository {
	return &ParcelRepository{db: db}
}

func (r *ParcelRepository) Create(ctx context.Context, parcel *model.Parcel) error {
	if parcel.Notes == nil {
		parcel.Notes = model.EmbeddedNotes{}
	}
	return r.db.WithContext(ctx).Create(parcel).Error
}

func (r *ParcelRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Parcel, error) {
	var parcel model.Parcel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&parcel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &parcel, nil
}

// AppendNote adds note to the parcel's notes array under a row lock so
// concurrent appends do not overwrite each other.
func (r *ParcelRepository) AppendNote(ctx context.Context, id uuid.UUID, note model.EmbeddedNote) (*model.Parcel, error) {
	var parcel model.Parcel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&parcel).Error; err != nil {
			return err
		}
		parcel.Notes = append(parcel.Notes, note)
		return tx.Model(&parcel).Update("notes", parcel.Notes).Error
	})
	if err != nil {
		return nil, err
	}
	return &parcel, nil
}
