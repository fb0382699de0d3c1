package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"parcel-service/internal/events"
	"parcel-service/internal/model"
	"parcel-service/internal/repository"
)

type fakeNoteRepo struct {
	mu    sync.Mutex
	notes map[uuid.UUID]model.Note
	order []uuid.UUID
}

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: map[uuid.UUID]model.Note{}}
}

func (r *fakeNoteRepo) Create(ctx context.Context, note *model.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if note.ID == uuid.Nil {
		note.ID = uuid.New()
	}
	r.notes[note.ID] = *note
	r.order = append(r.order, note.ID)
	return nil
}

func (r *fakeNoteRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	note, ok := r.notes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &note, nil
}

func (r *fakeNoteRepo) Update(ctx context.Context, note *model.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes[note.ID] = *note
	return nil
}

func (r *fakeNoteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.notes[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.notes, id)
	return nil
}

func (r *fakeNoteRepo) List(ctx context.Context, filter repository.NoteListFilter) ([]model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Note
	for _, id := range r.order {
		if note, ok := r.notes[id]; ok {
			out = append(out, note)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	events []events.NoteEvent
}

func (p *recordingPublisher) PublishNote(ctx context.Context, event events.NoteEvent) error {
	p.events = append(p.events, event)
	return nil
}

type fakeParcelRepo struct {
	parcels map[uuid.UUID]model.Parcel
}

func newFakeParcelRepo() *fakeParcelRepo {
	return &fakeParcelRepo{parcels: map[uuid.UUID]model.Parcel{}}
}

func (r *fakeParcelRepo) Create(ctx context.Context, parcel *model.Parcel) error {
	if parcel.ID == uuid.Nil {
		parcel.ID = uuid.New()
	}
	r.parcels[parcel.ID] = *parcel
	return nil
}

func (r *fakeParcelRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Parcel, error) {
	parcel, ok := r.parcels[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &parcel, nil
}

func (r *fakeParcelRepo) AppendNote(ctx context.Context, id uuid.UUID, note model.EmbeddedNote) (*model.Parcel, error) {
	parcel, ok := r.parcels[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	parcel.Notes = append(parcel.Notes, note)
	r.parcels[id] = parcel
	return &parcel, nil
}

type stubGeocoder struct {
	address string
	point   model.GeoPoint
	err     error
}

func (g *stubGeocoder) Geocode(ctx context.Context, address string) (model.GeoPoint, error) {
	g.address = address
	return g.point, g.err
}
