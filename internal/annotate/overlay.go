package annotate

import (
	"slices"
	"sort"
	"strconv"
	"sync"

	"parcel-service/internal/model"
)

// OverlayID identifies an overlay across renders.
type OverlayID string

const ParcelOverlayID OverlayID = "parcel"

func PolygonOverlayID(n int) OverlayID {
	return OverlayID("polygon:" + strconv.Itoa(n))
}

func NoteOverlayID(noteID string) OverlayID {
	return OverlayID("note:" + noteID)
}

type OverlayKind string

const (
	OverlayBoundary OverlayKind = "boundary"
	OverlayPolygon  OverlayKind = "polygon"
	OverlayMarker   OverlayKind = "marker"
)

// Overlay is a render-ready description of a map overlay. Shapes carry a
// closed Ring, markers a Position.
type Overlay struct {
	ID       OverlayID
	Kind     OverlayKind
	Ring     model.Ring
	Position model.GeoPoint
	Label    string
}

func (o Overlay) equal(other Overlay) bool {
	return o.ID == other.ID &&
		o.Kind == other.Kind &&
		o.Position == other.Position &&
		o.Label == other.Label &&
		slices.Equal(o.Ring, other.Ring)
}

// MapSurface is the rendering engine as seen by a view. AddOverlay replaces
// an overlay with the same ID.
type MapSurface interface {
	AddOverlay(o Overlay)
	RemoveOverlay(id OverlayID)
	FitBounds(b model.Bounds)
	PanTo(p model.GeoPoint)
}

// Diff is the set of surface operations that turns the current overlays
// into a desired set.
type Diff struct {
	Add    []Overlay
	Update []Overlay
	Remove []OverlayID
}

func (d Diff) Empty() bool {
	return len(d.Add) == 0 && len(d.Update) == 0 && len(d.Remove) == 0
}

// OverlayRegistry is the arena of overlays currently on a surface.
type OverlayRegistry struct {
	mu    sync.RWMutex
	arena map[OverlayID]Overlay
}

func NewOverlayRegistry() *OverlayRegistry {
	return &OverlayRegistry{arena: make(map[OverlayID]Overlay)}
}

// Reconcile computes the diff from the current arena to desired without
// changing anything. When desired repeats an ID the last entry wins.
func (r *OverlayRegistry) Reconcile(desired []Overlay) Diff {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reconcileLocked(desired)
}

func (r *OverlayRegistry) reconcileLocked(desired []Overlay) Diff {
	want := make(map[OverlayID]Overlay, len(desired))
	for _, o := range desired {
		want[o.ID] = o
	}

	var diff Diff
	for _, id := range sortedIDs(want) {
		o := want[id]
		cur, ok := r.arena[id]
		switch {
		case !ok:
			diff.Add = append(diff.Add, o)
		case !cur.equal(o):
			diff.Update = append(diff.Update, o)
		}
	}
	for _, id := range sortedIDs(r.arena) {
		if _, ok := want[id]; !ok {
			diff.Remove = append(diff.Remove, id)
		}
	}
	return diff
}

// Apply pushes diff to surface and records it in the arena in one step.
func (r *OverlayRegistry) Apply(surface MapSurface, diff Diff) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyLocked(surface, diff)
}

func (r *OverlayRegistry) applyLocked(surface MapSurface, diff Diff) {
	for _, id := range diff.Remove {
		if _, ok := r.arena[id]; !ok {
			continue
		}
		surface.RemoveOverlay(id)
		delete(r.arena, id)
	}
	for _, o := range diff.Add {
		surface.AddOverlay(o)
		r.arena[o.ID] = o
	}
	for _, o := range diff.Update {
		surface.AddOverlay(o)
		r.arena[o.ID] = o
	}
}

// Sync reconciles against desired and applies the result under one lock.
func (r *OverlayRegistry) Sync(surface MapSurface, desired []Overlay) Diff {
	r.mu.Lock()
	defer r.mu.Unlock()
	diff := r.reconcileLocked(desired)
	r.applyLocked(surface, diff)
	return diff
}

// Release removes every overlay the registry put on surface.
func (r *OverlayRegistry) Release(surface MapSurface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range sortedIDs(r.arena) {
		surface.RemoveOverlay(id)
	}
	clear(r.arena)
}

func (r *OverlayRegistry) Get(id OverlayID) (Overlay, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.arena[id]
	return o, ok
}

func (r *OverlayRegistry) IDs() []OverlayID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedIDs(r.arena)
}

func (r *OverlayRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.arena)
}

func sortedIDs(m map[OverlayID]Overlay) []OverlayID {
	ids := make([]OverlayID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
