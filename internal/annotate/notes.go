package annotate

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"parcel-service/internal/model"
)

// NoteDraft is the writable part of a note.
type NoteDraft struct {
	Content      string              `json:"content"`
	Position     model.GeoPoint      `json:"position"`
	LocationInfo *model.LocationInfo `json:"locationInfo,omitempty"`
}

func (d NoteDraft) normalize() (NoteDraft, error) {
	d.Content = strings.TrimSpace(d.Content)
	if d.Content == "" {
		return d, ErrEmptyNote
	}
	if err := d.Position.Validate(); err != nil {
		return d, err
	}
	return d, nil
}

// NoteBackend is the note REST collaborator. Implementations report a
// missing note as ErrNoteNotFound, an absent or expired session as
// ErrUnauthorized and anything else as an error wrapping ErrTransport.
type NoteBackend interface {
	ListNotes(ctx context.Context) ([]model.Note, error)
	CreateNote(ctx context.Context, draft NoteDraft) (model.Note, error)
	UpdateNote(ctx context.Context, id string, draft NoteDraft) (model.Note, error)
	DeleteNote(ctx context.Context, id string) error
}

// NoteStore caches the notes of a view. The cache changes only after the
// backend confirms a mutation, so a failed call leaves the last known-good
// notes in place.
type NoteStore struct {
	backend NoteBackend

	mu    sync.RWMutex
	notes []model.Note
}

func NewNoteStore(backend NoteBackend) *NoteStore {
	return &NoteStore{backend: backend}
}

func (s *NoteStore) Load(ctx context.Context) error {
	notes, err := s.backend.ListNotes(ctx)
	if err != nil {
		return fmt.Errorf("load notes: %w", err)
	}

	s.mu.Lock()
	s.notes = append([]model.Note(nil), notes...)
	s.mu.Unlock()
	return nil
}

func (s *NoteStore) Create(ctx context.Context, content string, position model.GeoPoint, loc *model.LocationInfo) (model.Note, error) {
	draft, err := NoteDraft{Content: content, Position: position, LocationInfo: loc}.normalize()
	if err != nil {
		return model.Note{}, err
	}

	note, err := s.backend.CreateNote(ctx, draft)
	if err != nil {
		return model.Note{}, fmt.Errorf("create note: %w", err)
	}

	s.mu.Lock()
	s.notes = append(s.notes, note)
	s.mu.Unlock()
	return note, nil
}

func (s *NoteStore) Update(ctx context.Context, id string, content string, position model.GeoPoint, loc *model.LocationInfo) (model.Note, error) {
	draft, err := NoteDraft{Content: content, Position: position, LocationInfo: loc}.normalize()
	if err != nil {
		return model.Note{}, err
	}

	note, err := s.backend.UpdateNote(ctx, id, draft)
	if err != nil {
		return model.Note{}, fmt.Errorf("update note %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		s.notes[i] = note
	} else {
		s.notes = append(s.notes, note)
	}
	return note, nil
}

// Delete removes exactly the note with the given id.
func (s *NoteStore) Delete(ctx context.Context, id string) error {
	if err := s.backend.DeleteNote(ctx, id); err != nil {
		return fmt.Errorf("delete note %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		s.notes = append(s.notes[:i], s.notes[i+1:]...)
	}
	return nil
}

// All returns a copy of the cached notes in backend order.
func (s *NoteStore) All() []model.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Note(nil), s.notes...)
}

func (s *NoteStore) Get(id string) (model.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.notes[i], true
	}
	return model.Note{}, false
}

func (s *NoteStore) indexLocked(id string) int {
	for i, n := range s.notes {
		if n.ID.String() == id {
			return i
		}
	}
	return -1
}
