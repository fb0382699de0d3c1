package annotate

import (
	"fmt"

	"parcel-service/internal/model"
)

// ToolMode is the active interaction mode of a map view.
type ToolMode string

const (
	ToolPan        ToolMode = "pan"
	ToolMarker     ToolMode = "marker"
	ToolPolygon    ToolMode = "polygon"
	ToolCoordinate ToolMode = "coordinate"
	ToolInput      ToolMode = "input"
)

func (m ToolMode) Valid() bool {
	switch m {
	case ToolPan, ToolMarker, ToolPolygon, ToolCoordinate, ToolInput:
		return true
	}
	return false
}

type EventKind string

const (
	EventClick EventKind = "click"
	EventHover EventKind = "hover"
	// EventComplete finishes the polygon being drawn.
	EventComplete EventKind = "complete"
	// EventCancel drops the polygon being drawn.
	EventCancel EventKind = "cancel"
)

// MapEvent is a pointer event reported by the map surface.
type MapEvent struct {
	Kind     EventKind
	Position model.GeoPoint
}

type PromptOrigin string

const (
	PromptFromMarker  PromptOrigin = "marker"
	PromptFromPolygon PromptOrigin = "polygon"
)

// NotePrompt asks the user for note text anchored at a position.
type NotePrompt struct {
	Anchor model.GeoPoint
	Origin PromptOrigin
}

type EffectKind string

const (
	EffectNone             EffectKind = "none"
	EffectForwarded        EffectKind = "forwarded"
	EffectPrompt           EffectKind = "prompt"
	EffectVertexAdded      EffectKind = "vertex_added"
	EffectPolygonCompleted EffectKind = "polygon_completed"
	EffectPolygonCancelled EffectKind = "polygon_cancelled"
	EffectCoordinatePicked EffectKind = "coordinate_picked"
)

// Effect describes what a routed event did.
type Effect struct {
	Kind    EffectKind
	Prompt  *NotePrompt
	Polygon *CompletedPolygon
	// Picked is the clipboard text of a picked coordinate.
	Picked string
}

// ToolStateMachine routes map events according to the current tool mode.
// It is not safe for concurrent use; Session serializes access.
type ToolStateMachine struct {
	mode    ToolMode
	builder PolygonBuilder
	onClick func(model.GeoPoint)

	hover    model.GeoPoint
	hasHover bool
	picked   *model.GeoPoint
}

// NewToolStateMachine starts in pan mode. onClick, if not nil, receives
// clicks made in pan mode.
func NewToolStateMachine(onClick func(model.GeoPoint)) *ToolStateMachine {
	return &ToolStateMachine{mode: ToolPan, onClick: onClick}
}

func (m *ToolStateMachine) Current() ToolMode {
	return m.mode
}

// Select switches the tool unconditionally. Leaving polygon mode discards
// the working ring.
func (m *ToolStateMachine) Select(mode ToolMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTool, mode)
	}
	if m.mode == ToolPolygon && mode != ToolPolygon {
		m.builder.Cancel()
	}
	m.mode = mode
	return nil
}

// OpenTextEntry enters input mode. It is the only way into that mode.
func (m *ToolStateMachine) OpenTextEntry() {
	_ = m.Select(ToolInput)
}

// Pending returns the working polygon vertices.
func (m *ToolStateMachine) Pending() model.Ring {
	return m.builder.Vertices()
}

// Hover returns the last hover position.
func (m *ToolStateMachine) Hover() (model.GeoPoint, bool) {
	return m.hover, m.hasHover
}

// Picked returns the last coordinate picked in coordinate mode.
func (m *ToolStateMachine) Picked() (model.GeoPoint, bool) {
	if m.picked == nil {
		return model.GeoPoint{}, false
	}
	return *m.picked, true
}

func (m *ToolStateMachine) Handle(ev MapEvent) (Effect, error) {
	switch ev.Kind {
	case EventHover:
		m.hover = ev.Position
		m.hasHover = true
		return Effect{Kind: EffectNone}, nil
	case EventClick:
		return m.click(ev.Position)
	case EventComplete:
		done, err := m.builder.Complete()
		if err != nil {
			return Effect{Kind: EffectNone}, err
		}
		return Effect{
			Kind:    EffectPolygonCompleted,
			Polygon: &done,
			Prompt:  &NotePrompt{Anchor: done.Centroid, Origin: PromptFromPolygon},
		}, nil
	case EventCancel:
		if m.builder.Len() == 0 {
			return Effect{Kind: EffectNone}, nil
		}
		m.builder.Cancel()
		return Effect{Kind: EffectPolygonCancelled}, nil
	default:
		return Effect{Kind: EffectNone}, fmt.Errorf("unknown map event %q", ev.Kind)
	}
}

func (m *ToolStateMachine) click(p model.GeoPoint) (Effect, error) {
	if err := p.Validate(); err != nil {
		return Effect{Kind: EffectNone}, err
	}

	switch m.mode {
	case ToolPan:
		if m.onClick == nil {
			return Effect{Kind: EffectNone}, nil
		}
		m.onClick(p)
		return Effect{Kind: EffectForwarded}, nil
	case ToolMarker:
		return Effect{
			Kind:   EffectPrompt,
			Prompt: &NotePrompt{Anchor: p, Origin: PromptFromMarker},
		}, nil
	case ToolPolygon:
		if err := m.builder.AddVertex(p); err != nil {
			return Effect{Kind: EffectNone}, err
		}
		return Effect{Kind: EffectVertexAdded}, nil
	case ToolCoordinate:
		m.picked = &p
		return Effect{Kind: EffectCoordinatePicked, Picked: FormatPoint(p)}, nil
	default:
		return Effect{Kind: EffectNone}, nil
	}
}
