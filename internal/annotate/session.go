package annotate

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"parcel-service/internal/model"
)

// ParcelSearcher resolves a location to a parcel with a synthesized boundary.
type ParcelSearcher interface {
	SearchParcel(ctx context.Context, loc model.LocationInfo) (model.Parcel, error)
}

type userPolygon struct {
	n    int
	ring model.Ring
}

// Session is one map view. It owns the tool machine, the overlays on its
// surface and the note cache, and releases all of them on Close. Network
// calls run without holding the session lock so tool switches never wait
// on them.
type Session struct {
	surface  MapSurface
	registry *OverlayRegistry
	notes    *NoteStore
	parcels  ParcelSearcher
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	closed       bool
	tools        *ToolStateMachine
	parcel       *model.Parcel
	polygons     []userPolygon
	nextPolygon  int
	prompt       *NotePrompt
	searchGen    uint64
	cancelSearch context.CancelFunc
}

type SessionOption func(*Session)

// WithClickHandler forwards clicks made in pan mode to fn. fn runs with the
// session locked and must not call back into the session.
func WithClickHandler(fn func(model.GeoPoint)) SessionOption {
	return func(s *Session) {
		s.tools.onClick = fn
	}
}

func WithLogger(log zerolog.Logger) SessionOption {
	return func(s *Session) {
		s.log = log
	}
}

func NewSession(surface MapSurface, notes NoteBackend, parcels ParcelSearcher, opts ...SessionOption) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		surface:  surface,
		registry: NewOverlayRegistry(),
		notes:    NewNoteStore(notes),
		parcels:  parcels,
		log:      zerolog.Nop(),
		ctx:      ctx,
		cancel:   cancel,
		tools:    NewToolStateMachine(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Tool() ToolMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tools.Current()
}

func (s *Session) SelectTool(mode ToolMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.tools.Select(mode)
}

func (s *Session) OpenTextEntry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.tools.OpenTextEntry()
	return nil
}

// OnMapEvent is the single entry point for pointer events from the surface.
func (s *Session) OnMapEvent(ctx context.Context, ev MapEvent) (Effect, error) {
	if err := ctx.Err(); err != nil {
		return Effect{Kind: EffectNone}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Effect{Kind: EffectNone}, ErrSessionClosed
	}

	effect, err := s.tools.Handle(ev)
	if err != nil {
		return effect, err
	}

	if effect.Polygon != nil {
		s.addPolygonLocked(effect.Polygon.Ring)
	}
	if effect.Prompt != nil {
		prompt := *effect.Prompt
		s.prompt = &prompt
	}
	return effect, nil
}

// PendingPrompt returns the note prompt waiting for text, if any.
func (s *Session) PendingPrompt() (NotePrompt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prompt == nil {
		return NotePrompt{}, false
	}
	return *s.prompt, true
}

func (s *Session) DismissPrompt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = nil
}

// SubmitNote creates a note at the pending prompt anchor. The prompt stays
// open when the backend call fails.
func (s *Session) SubmitNote(ctx context.Context, content string, loc *model.LocationInfo) (model.Note, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.Note{}, ErrSessionClosed
	}
	if s.prompt == nil {
		s.mu.Unlock()
		return model.Note{}, ErrNoPrompt
	}
	prompt := *s.prompt
	s.mu.Unlock()

	reqCtx, cancel := s.scoped(ctx)
	defer cancel()
	note, err := s.notes.Create(reqCtx, content, prompt.Anchor, loc)
	if err != nil {
		return model.Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return note, nil
	}
	if s.prompt != nil && *s.prompt == prompt {
		s.prompt = nil
	}
	s.renderLocked()
	return note, nil
}

// SubmitCoordinates draws a polygon typed as [[lng,lat],...] text and frames
// the view on it. Malformed text changes nothing.
func (s *Session) SubmitCoordinates(text string) (model.Ring, error) {
	ring, err := ParseCoordinates(text)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	closed := ring.Closed()
	s.addPolygonLocked(closed)
	s.surface.FitBounds(closed.Bounds())
	return closed, nil
}

// Polygons returns the completed user polygons in creation order.
func (s *Session) Polygons() []model.Ring {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Ring, 0, len(s.polygons))
	for _, p := range s.polygons {
		out = append(out, append(model.Ring(nil), p.ring...))
	}
	return out
}

func (s *Session) RemovePolygon(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.polygons {
		if p.n == n {
			s.polygons = append(s.polygons[:i], s.polygons[i+1:]...)
			s.renderLocked()
			return true
		}
	}
	return false
}

// SearchParcel looks up a parcel and shows its boundary. Each call cancels
// the search before it, and only the latest search may change the view;
// an older one returns ErrSuperseded.
func (s *Session) SearchParcel(ctx context.Context, loc model.LocationInfo) (*model.Parcel, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.cancelSearch != nil {
		s.cancelSearch()
	}
	s.searchGen++
	gen := s.searchGen
	reqCtx, cancel := s.scoped(ctx)
	s.cancelSearch = cancel
	s.mu.Unlock()

	defer cancel()
	parcel, err := s.parcels.SearchParcel(reqCtx, loc)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if gen != s.searchGen {
		s.log.Debug().Uint64("generation", gen).Msg("discarding superseded parcel search")
		return nil, ErrSuperseded
	}
	s.cancelSearch = nil
	if err != nil {
		return nil, err
	}

	s.parcel = &parcel
	s.renderLocked()
	ring := parcel.Geometry.Exterior()
	if len(ring) > 0 {
		s.surface.FitBounds(ring.Bounds())
	} else {
		s.surface.PanTo(parcel.Center)
	}
	return &parcel, nil
}

func (s *Session) Parcel() (model.Parcel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.parcel == nil {
		return model.Parcel{}, false
	}
	return *s.parcel, true
}

func (s *Session) LoadNotes(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	reqCtx, cancel := s.scoped(ctx)
	defer cancel()
	if err := s.notes.Load(reqCtx); err != nil {
		return err
	}
	return s.render()
}

func (s *Session) UpdateNote(ctx context.Context, id string, content string, position model.GeoPoint, loc *model.LocationInfo) (model.Note, error) {
	if err := s.checkOpen(); err != nil {
		return model.Note{}, err
	}
	reqCtx, cancel := s.scoped(ctx)
	defer cancel()
	note, err := s.notes.Update(reqCtx, id, content, position, loc)
	if err != nil {
		return model.Note{}, err
	}
	return note, s.render()
}

func (s *Session) DeleteNote(ctx context.Context, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	reqCtx, cancel := s.scoped(ctx)
	defer cancel()
	if err := s.notes.Delete(reqCtx, id); err != nil {
		return err
	}
	return s.render()
}

func (s *Session) Notes() []model.Note {
	return s.notes.All()
}

// Overlays lists the IDs currently rendered on the surface.
func (s *Session) Overlays() []OverlayID {
	return s.registry.IDs()
}

// Close cancels in-flight requests and removes every overlay. Later calls
// return ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	s.prompt = nil
	s.tools.builder.Cancel()
	s.registry.Release(s.surface)
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

// scoped derives a context that is also cancelled when the session closes.
func (s *Session) scoped(ctx context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}

func (s *Session) addPolygonLocked(ring model.Ring) {
	s.nextPolygon++
	s.polygons = append(s.polygons, userPolygon{n: s.nextPolygon, ring: ring})
	s.renderLocked()
}

func (s *Session) render() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.renderLocked()
	return nil
}

func (s *Session) renderLocked() {
	s.registry.Sync(s.surface, s.desiredLocked())
}

func (s *Session) desiredLocked() []Overlay {
	var out []Overlay
	if s.parcel != nil {
		out = append(out, Overlay{
			ID:    ParcelOverlayID,
			Kind:  OverlayBoundary,
			Ring:  s.parcel.Geometry.Exterior(),
			Label: parcelLabel(s.parcel),
		})
	}
	for _, p := range s.polygons {
		out = append(out, Overlay{
			ID:   PolygonOverlayID(p.n),
			Kind: OverlayPolygon,
			Ring: p.ring,
		})
	}
	for _, n := range s.notes.All() {
		out = append(out, Overlay{
			ID:       NoteOverlayID(n.ID.String()),
			Kind:     OverlayMarker,
			Position: n.Position,
			Label:    n.Content,
		})
	}
	return out
}

func parcelLabel(p *model.Parcel) string {
	label := p.Mahalle + " " + p.Ada
	if p.Parsel != "" {
		label += "/" + p.Parsel
	}
	return label
}
