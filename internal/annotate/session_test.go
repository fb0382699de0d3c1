package annotate

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcel-service/internal/model"
)

func TestSession_PolygonBecomesOverlayAndPrompt(t *testing.T) {
	surface := newFakeSurface()
	s := NewSession(surface, &fakeBackend{}, staticSearcher{})
	ctx := context.Background()

	require.NoError(t, s.SelectTool(ToolPolygon))
	for _, ev := range []MapEvent{click(0, 0), click(0, 2), click(2, 2), click(2, 0)} {
		_, err := s.OnMapEvent(ctx, ev)
		require.NoError(t, err)
	}
	assert.Zero(t, surface.count(), "pending vertices are not an overlay")

	_, err := s.OnMapEvent(ctx, MapEvent{Kind: EventComplete})
	require.NoError(t, err)

	assert.True(t, surface.has(PolygonOverlayID(1)))
	polygons := s.Polygons()
	require.Len(t, polygons, 1)
	assert.True(t, polygons[0].IsClosed())

	prompt, ok := s.PendingPrompt()
	require.True(t, ok)
	assert.Equal(t, model.GeoPoint{Lat: 1, Lng: 1}, prompt.Anchor)

	note, err := s.SubmitNote(ctx, "kuzey sınırı", nil)
	require.NoError(t, err)
	assert.Equal(t, prompt.Anchor, note.Position)
	assert.True(t, surface.has(NoteOverlayID(note.ID.String())))
	_, ok = s.PendingPrompt()
	assert.False(t, ok)
}

func TestSession_TooFewVerticesNeverPromoted(t *testing.T) {
	surface := newFakeSurface()
	s := NewSession(surface, &fakeBackend{}, staticSearcher{})
	ctx := context.Background()

	require.NoError(t, s.SelectTool(ToolPolygon))
	for _, ev := range []MapEvent{click(0, 0), click(0, 2)} {
		_, err := s.OnMapEvent(ctx, ev)
		require.NoError(t, err)
	}

	_, err := s.OnMapEvent(ctx, MapEvent{Kind: EventComplete})
	assert.ErrorIs(t, err, ErrTooFewVertices)
	assert.Empty(t, s.Polygons())
	assert.Zero(t, surface.count())
	_, ok := s.PendingPrompt()
	assert.False(t, ok)
}

func TestSession_SubmitNoteWithoutPrompt(t *testing.T) {
	s := NewSession(newFakeSurface(), &fakeBackend{}, staticSearcher{})

	_, err := s.SubmitNote(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrNoPrompt)
}

func TestSession_FailedNoteKeepsPrompt(t *testing.T) {
	backend := &fakeBackend{}
	s := NewSession(newFakeSurface(), backend, staticSearcher{})
	require.NoError(t, s.SelectTool(ToolMarker))
	_, err := s.OnMapEvent(context.Background(), click(1, 1))
	require.NoError(t, err)

	backend.fail(errBoom)
	_, err = s.SubmitNote(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrTransport)

	_, ok := s.PendingPrompt()
	assert.True(t, ok)
}

func TestSession_SubmitCoordinates(t *testing.T) {
	surface := newFakeSurface()
	s := NewSession(surface, &fakeBackend{}, staticSearcher{})
	require.NoError(t, s.OpenTextEntry())

	ring, err := s.SubmitCoordinates("[[32.8597,39.9334],[32.8598,39.9335],[32.8599,39.9334]]")
	require.NoError(t, err)
	assert.Len(t, ring, 4)
	assert.True(t, surface.has(PolygonOverlayID(1)))

	require.Len(t, surface.fitted, 1)
	assert.InDelta(t, 39.9334, surface.fitted[0].MinLat, 1e-12)
	assert.InDelta(t, 32.8599, surface.fitted[0].MaxLng, 1e-12)
}

func TestSession_MalformedCoordinatesChangeNothing(t *testing.T) {
	surface := newFakeSurface()
	s := NewSession(surface, &fakeBackend{}, staticSearcher{})
	_, err := s.SubmitCoordinates("[[1,2],[3,4],[5,6]]")
	require.NoError(t, err)
	before := s.Overlays()

	_, err = s.SubmitCoordinates("[[1,2],[3,\"x\"]]")
	assert.ErrorIs(t, err, ErrMalformedCoordinateInput)
	assert.Equal(t, before, s.Overlays())
	assert.Len(t, surface.fitted, 1)
}

func TestSession_DeleteNoteRemovesOneMarker(t *testing.T) {
	surface := newFakeSurface()
	backend := seededBackend("a", "b", "c")
	s := NewSession(surface, backend, staticSearcher{})
	ctx := context.Background()

	require.NoError(t, s.LoadNotes(ctx))
	assert.Equal(t, 3, surface.count())
	target := s.Notes()[0].ID.String()

	require.NoError(t, s.DeleteNote(ctx, target))
	assert.Equal(t, 2, surface.count())
	assert.False(t, surface.has(NoteOverlayID(target)))

	err := s.DeleteNote(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNoteNotFound)
	assert.Equal(t, 2, surface.count())
	assert.Len(t, s.Notes(), 2)
}

func TestSession_SearchShowsParcel(t *testing.T) {
	surface := newFakeSurface()
	parcel := squareParcel(model.GeoPoint{Lat: 39.92, Lng: 32.85}, "Emek")
	s := NewSession(surface, &fakeBackend{}, staticSearcher{parcel: parcel})

	got, err := s.SearchParcel(context.Background(), model.LocationInfo{Il: "Ankara", Ilce: "Çankaya", Mahalle: "Emek", Ada: "1"})
	require.NoError(t, err)
	assert.Equal(t, parcel.ID, got.ID)
	assert.True(t, surface.has(ParcelOverlayID))
	require.Len(t, surface.fitted, 1)
	assert.True(t, surface.fitted[0].Contains(parcel.Center))
}

func TestSession_SearchErrorKeepsPreviousParcel(t *testing.T) {
	surface := newFakeSurface()
	first := squareParcel(model.GeoPoint{Lat: 39.92, Lng: 32.85}, "Emek")
	s := NewSession(surface, &fakeBackend{}, staticSearcher{parcel: first})
	_, err := s.SearchParcel(context.Background(), model.LocationInfo{})
	require.NoError(t, err)

	s.parcels = staticSearcher{err: ErrLocationNotFound}
	_, err = s.SearchParcel(context.Background(), model.LocationInfo{})
	assert.ErrorIs(t, err, ErrLocationNotFound)

	current, ok := s.Parcel()
	require.True(t, ok)
	assert.Equal(t, first.ID, current.ID)
}

func TestSession_StaleSearchIsDiscarded(t *testing.T) {
	surface := newFakeSurface()
	searcher := newBlockingSearcher()
	s := NewSession(surface, &fakeBackend{}, searcher)
	ctx := context.Background()

	type result struct {
		parcel *model.Parcel
		err    error
	}
	firstDone := make(chan result, 1)
	go func() {
		p, err := s.SearchParcel(ctx, model.LocationInfo{Mahalle: "Emek"})
		firstDone <- result{p, err}
	}()
	first := <-searcher.calls

	secondDone := make(chan result, 1)
	go func() {
		p, err := s.SearchParcel(ctx, model.LocationInfo{Mahalle: "Bahçelievler"})
		secondDone <- result{p, err}
	}()
	second := <-searcher.calls

	select {
	case <-first.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("superseded search was not cancelled")
	}

	newer := squareParcel(model.GeoPoint{Lat: 39.93, Lng: 32.83}, "Bahçelievler")
	second.reply <- searchReply{parcel: newer}
	r2 := <-secondDone
	require.NoError(t, r2.err)

	// The older response arrives last and must not replace the newer parcel.
	first.reply <- searchReply{parcel: squareParcel(model.GeoPoint{Lat: 39.92, Lng: 32.85}, "Emek")}
	r1 := <-firstDone
	assert.ErrorIs(t, r1.err, ErrSuperseded)
	assert.Nil(t, r1.parcel)

	current, ok := s.Parcel()
	require.True(t, ok)
	assert.Equal(t, newer.ID, current.ID)
	assert.Equal(t, "Bahçelievler 1", surface.overlays[ParcelOverlayID].Label)
}

func TestSession_ToolSwitchDoesNotWaitForSearch(t *testing.T) {
	searcher := newBlockingSearcher()
	s := NewSession(newFakeSurface(), &fakeBackend{}, searcher)

	done := make(chan error, 1)
	go func() {
		_, err := s.SearchParcel(context.Background(), model.LocationInfo{})
		done <- err
	}()
	call := <-searcher.calls

	require.NoError(t, s.SelectTool(ToolMarker))
	assert.Equal(t, ToolMarker, s.Tool())

	call.reply <- searchReply{parcel: squareParcel(model.GeoPoint{Lat: 1, Lng: 1}, "x")}
	assert.NoError(t, <-done)
}

func TestSession_CloseReleasesEverything(t *testing.T) {
	surface := newFakeSurface()
	searcher := newBlockingSearcher()
	s := NewSession(surface, seededBackend("a"), searcher)
	ctx := context.Background()
	require.NoError(t, s.LoadNotes(ctx))
	_, err := s.SubmitCoordinates("[[1,2],[3,4],[5,6]]")
	require.NoError(t, err)
	require.Equal(t, 2, surface.count())

	done := make(chan error, 1)
	go func() {
		_, err := s.SearchParcel(ctx, model.LocationInfo{})
		done <- err
	}()
	call := <-searcher.calls

	s.Close()
	assert.Zero(t, surface.count())
	assert.Empty(t, s.Overlays())

	select {
	case <-call.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("in-flight search was not cancelled")
	}
	call.reply <- searchReply{err: call.ctx.Err()}
	assert.ErrorIs(t, <-done, ErrSessionClosed)

	_, err = s.OnMapEvent(ctx, click(1, 1))
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, s.SelectTool(ToolPan), ErrSessionClosed)
	assert.ErrorIs(t, s.LoadNotes(ctx), ErrSessionClosed)
	s.Close()
}

func TestSession_PanClicksReachHandler(t *testing.T) {
	var got []model.GeoPoint
	s := NewSession(newFakeSurface(), &fakeBackend{}, staticSearcher{},
		WithClickHandler(func(p model.GeoPoint) { got = append(got, p) }),
		WithLogger(zerolog.Nop()),
	)

	effect, err := s.OnMapEvent(context.Background(), click(3, 4))
	require.NoError(t, err)
	assert.Equal(t, EffectForwarded, effect.Kind)
	assert.Equal(t, []model.GeoPoint{{Lat: 3, Lng: 4}}, got)
}
