package annotate

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"parcel-service/internal/model"
)

type fakeSurface struct {
	mu       sync.Mutex
	overlays map[OverlayID]Overlay
	adds     int
	removes  int
	fitted   []model.Bounds
	panned   []model.GeoPoint
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{overlays: map[OverlayID]Overlay{}}
}

func (f *fakeSurface) AddOverlay(o Overlay) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overlays[o.ID] = o
	f.adds++
}

func (f *fakeSurface) RemoveOverlay(id OverlayID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.overlays, id)
	f.removes++
}

func (f *fakeSurface) FitBounds(b model.Bounds) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fitted = append(f.fitted, b)
}

func (f *fakeSurface) PanTo(p model.GeoPoint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panned = append(f.panned, p)
}

func (f *fakeSurface) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.overlays)
}

func (f *fakeSurface) has(id OverlayID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.overlays[id]
	return ok
}

type fakeBackend struct {
	mu    sync.Mutex
	notes []model.Note
	err   error
}

func (b *fakeBackend) ListNotes(ctx context.Context) ([]model.Note, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	return append([]model.Note(nil), b.notes...), nil
}

func (b *fakeBackend) CreateNote(ctx context.Context, draft NoteDraft) (model.Note, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return model.Note{}, b.err
	}
	note := model.Note{
		ID:           uuid.New(),
		Content:      draft.Content,
		Position:     draft.Position,
		LocationInfo: draft.LocationInfo,
	}
	b.notes = append(b.notes, note)
	return note, nil
}

func (b *fakeBackend) UpdateNote(ctx context.Context, id string, draft NoteDraft) (model.Note, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return model.Note{}, b.err
	}
	for i, n := range b.notes {
		if n.ID.String() == id {
			n.Content = draft.Content
			n.Position = draft.Position
			n.LocationInfo = draft.LocationInfo
			b.notes[i] = n
			return n, nil
		}
	}
	return model.Note{}, ErrNoteNotFound
}

func (b *fakeBackend) DeleteNote(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	for i, n := range b.notes {
		if n.ID.String() == id {
			b.notes = append(b.notes[:i], b.notes[i+1:]...)
			return nil
		}
	}
	return ErrNoteNotFound
}

func (b *fakeBackend) fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

func seededBackend(contents ...string) *fakeBackend {
	b := &fakeBackend{}
	for i, c := range contents {
		b.notes = append(b.notes, model.Note{
			ID:       uuid.New(),
			Content:  c,
			Position: model.GeoPoint{Lat: 39.9 + float64(i)/100, Lng: 32.8},
		})
	}
	return b
}

// blockingSearcher answers each search only when released through its
// channel, so tests control completion order.
type blockingSearcher struct {
	calls chan searchCall
}

type searchCall struct {
	ctx   context.Context
	loc   model.LocationInfo
	reply chan searchReply
}

type searchReply struct {
	parcel model.Parcel
	err    error
}

func newBlockingSearcher() *blockingSearcher {
	return &blockingSearcher{calls: make(chan searchCall)}
}

func (s *blockingSearcher) SearchParcel(ctx context.Context, loc model.LocationInfo) (model.Parcel, error) {
	call := searchCall{ctx: ctx, loc: loc, reply: make(chan searchReply, 1)}
	s.calls <- call
	r := <-call.reply
	return r.parcel, r.err
}

type staticSearcher struct {
	parcel model.Parcel
	err    error
}

func (s staticSearcher) SearchParcel(ctx context.Context, loc model.LocationInfo) (model.Parcel, error) {
	return s.parcel, s.err
}

func squareParcel(center model.GeoPoint, mahalle string) model.Parcel {
	d := 0.001
	ring := model.Ring{
		{Lat: center.Lat - d, Lng: center.Lng - d},
		{Lat: center.Lat - d, Lng: center.Lng + d},
		{Lat: center.Lat + d, Lng: center.Lng + d},
		{Lat: center.Lat + d, Lng: center.Lng - d},
	}
	return model.Parcel{
		ID:       uuid.New(),
		Mahalle:  mahalle,
		Ada:      "1",
		Geometry: model.NewPolygonGeometry(ring),
		Center:   center,
	}
}

var errBoom = fmt.Errorf("%w: connection reset", ErrTransport)
