package annotate

import (
	"parcel-service/internal/model"
)

// CompletedPolygon is a finished user shape. Ring is closed.
type CompletedPolygon struct {
	Ring     model.Ring
	Centroid model.GeoPoint
}

// PolygonBuilder accumulates clicked vertices into a working ring.
type PolygonBuilder struct {
	ring model.Ring
}

func (b *PolygonBuilder) AddVertex(p model.GeoPoint) error {
	if err := p.Validate(); err != nil {
		return err
	}
	b.ring = append(b.ring, p)
	return nil
}

func (b *PolygonBuilder) Len() int {
	return len(b.ring)
}

// Vertices returns a copy of the working ring.
func (b *PolygonBuilder) Vertices() model.Ring {
	return append(model.Ring(nil), b.ring...)
}

// Complete promotes the working ring. With fewer than three distinct
// vertices it returns ErrTooFewVertices and keeps the ring as is.
func (b *PolygonBuilder) Complete() (CompletedPolygon, error) {
	if b.ring.DistinctLen() < model.MinRingVertices {
		return CompletedPolygon{}, ErrTooFewVertices
	}

	centroid, _ := b.ring.Centroid()
	done := CompletedPolygon{
		Ring:     b.ring.Closed(),
		Centroid: centroid,
	}
	b.ring = nil
	return done, nil
}

func (b *PolygonBuilder) Cancel() {
	b.ring = nil
}
