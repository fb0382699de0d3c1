package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"parcel-service/internal/events"
	"parcel-service/internal/model"
	"parcel-service/internal/repository"
)

type NoteRepository interface {
	Create(ctx context.Context, note *model.Note) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Note, error)
	Update(ctx context.Context, note *model.Note) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter repository.NoteListFilter) ([]model.Note, error)
}

type NotePublisher interface {
	PublishNote(ctx context.Context, event events.NoteEvent) error
}

type NoteService struct {
	noteRepo  NoteRepository
	publisher NotePublisher
	now       func() time.Time
	log       zerolog.Logger
}

func NewNoteService(noteRepo NoteRepository, publisher NotePublisher, log zerolog.Logger) *NoteService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &NoteService{
		noteRepo:  noteRepo,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log,
	}
}

type NoteInput struct {
	Content      string
	Position     model.GeoPoint
	LocationInfo *model.LocationInfo
}

func (in NoteInput) validate() error {
	if strings.TrimSpace(in.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if err := in.Position.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func (s *NoteService) List(ctx context.Context) ([]model.Note, error) {
	notes, err := s.noteRepo.List(ctx, repository.NoteListFilter{})
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []model.Note{}
	}
	return notes, nil
}

func (s *NoteService) Create(ctx context.Context, principal model.Principal, input NoteInput) (*model.Note, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	note := &model.Note{
		UserID:       principal.OwnerID(),
		Content:      strings.TrimSpace(input.Content),
		Position:     input.Position,
		LocationInfo: normalizeLocation(input.LocationInfo),
		CreatedAt:    s.now(),
	}

	if err := s.noteRepo.Create(ctx, note); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NoteCreated, note.ID, note)
	return note, nil
}

// Update replaces content, position and location of a note and stamps updatedAt.
func (s *NoteService) Update(ctx context.Context, principal model.Principal, id string, input NoteInput) (*model.Note, error) {
	noteID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidInput
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	note, err := s.noteRepo.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !canModify(principal, note.UserID) {
		return nil, ErrPermissionDenied
	}

	now := s.now()
	note.Content = strings.TrimSpace(input.Content)
	note.Position = input.Position
	note.LocationInfo = normalizeLocation(input.LocationInfo)
	note.UpdatedAt = &now

	if err := s.noteRepo.Update(ctx, note); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NoteUpdated, note.ID, note)
	return note, nil
}

func (s *NoteService) Delete(ctx context.Context, principal model.Principal, id string) error {
	noteID, err := uuid.Parse(id)
	if err != nil {
		return ErrInvalidInput
	}

	note, err := s.noteRepo.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if !canModify(principal, note.UserID) {
		return ErrPermissionDenied
	}

	if err := s.noteRepo.Delete(ctx, noteID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.publish(ctx, events.NoteDeleted, noteID, nil)
	return nil
}

func (s *NoteService) publish(ctx context.Context, eventType events.NoteEventType, id uuid.UUID, note *model.Note) {
	err := s.publisher.PublishNote(ctx, events.NoteEvent{
		Type:       eventType,
		NoteID:     id,
		Note:       note,
		OccurredAt: s.now(),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("note_id", id.String()).Str("event", string(eventType)).Msg("note event not published")
	}
}

// canModify allows unowned notes to be edited by anyone and owned notes
// only by their owner.
func canModify(principal model.Principal, owner *uuid.UUID) bool {
	if owner == nil {
		return true
	}
	return principal.IsAuthenticated() && principal.UserID == *owner
}

func normalizeLocation(loc *model.LocationInfo) *model.LocationInfo {
	if loc == nil {
		return nil
	}
	normalized := loc.Normalize()
	if normalized == (model.LocationInfo{}) {
		return nil
	}
	return &normalized
}
