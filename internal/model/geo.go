package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

var ErrInvalidCoordinate = errors.New("invalid coordinate")

// GeoPoint is a WGS84 position, latitude first.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p GeoPoint) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinate, p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinate, p.Lng)
	}
	return nil
}

// Point converts to an orb point, which stores longitude as X.
func (p GeoPoint) Point() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// Value implements driver.Valuer so a GeoPoint can live in a jsonb column.
func (p GeoPoint) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *GeoPoint) Scan(value any) error {
	return scanJSON(value, p)
}

// Ring is an ordered vertex sequence. Insertion order is significant.
type Ring []GeoPoint

// MinRingVertices is the smallest number of distinct vertices that form a shape.
const MinRingVertices = 3

// IsClosed reports whether the last vertex repeats the first.
func (r Ring) IsClosed() bool {
	return len(r) > 1 && r[0] == r[len(r)-1]
}

// Closed returns a copy of r with the first vertex repeated at the end.
// A ring that is already closed is copied as is.
func (r Ring) Closed() Ring {
	out := make(Ring, len(r), len(r)+1)
	copy(out, r)
	if len(r) > 0 && !r.IsClosed() {
		out = append(out, r[0])
	}
	return out
}

// Open strips the closing vertex, if any.
func (r Ring) Open() Ring {
	if r.IsClosed() {
		return append(Ring(nil), r[:len(r)-1]...)
	}
	return append(Ring(nil), r...)
}

// DistinctLen counts vertices that differ from every earlier vertex.
func (r Ring) DistinctLen() int {
	seen := make(map[GeoPoint]struct{}, len(r))
	for _, p := range r {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// Centroid is the arithmetic mean of the vertex latitudes and longitudes.
// It is not the area-weighted polygon centroid. The closing vertex of a
// closed ring is ignored so it does not count twice.
func (r Ring) Centroid() (GeoPoint, bool) {
	pts := r.Open()
	if len(pts) == 0 {
		return GeoPoint{}, false
	}
	var lat, lng float64
	for _, p := range pts {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(pts))
	return GeoPoint{Lat: lat / n, Lng: lng / n}, true
}

func (r Ring) Validate() error {
	for i, p := range r {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("vertex %d: %w", i, err)
		}
	}
	return nil
}

// Orb converts the ring to an orb ring without altering closure.
func (r Ring) Orb() orb.Ring {
	out := make(orb.Ring, 0, len(r))
	for _, p := range r {
		out = append(out, p.Point())
	}
	return out
}

// Bounds returns the bounding box of all vertices.
func (r Ring) Bounds() Bounds {
	return BoundsFromOrb(r.Orb().Bound())
}

// Bounds is a lat/lng bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

func BoundsFromOrb(b orb.Bound) Bounds {
	return Bounds{
		MinLat: b.Min.Lat(),
		MinLng: b.Min.Lon(),
		MaxLat: b.Max.Lat(),
		MaxLng: b.Max.Lon(),
	}
}

func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// Geometry is a GeoJSON Polygon with an exterior ring only.
// Coordinates are stored [lng, lat] and the ring is always closed.
type Geometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

const GeometryTypePolygon = "Polygon"

// NewPolygonGeometry closes ring and wraps it as the exterior ring.
func NewPolygonGeometry(ring Ring) Geometry {
	closed := ring.Closed()
	coords := make([][2]float64, 0, len(closed))
	for _, p := range closed {
		coords = append(coords, [2]float64{p.Lng, p.Lat})
	}
	return Geometry{Type: GeometryTypePolygon, Coordinates: [][][2]float64{coords}}
}

// Exterior returns the exterior ring, or nil for an empty geometry.
func (g Geometry) Exterior() Ring {
	if len(g.Coordinates) == 0 {
		return nil
	}
	out := make(Ring, 0, len(g.Coordinates[0]))
	for _, c := range g.Coordinates[0] {
		out = append(out, GeoPoint{Lat: c[1], Lng: c[0]})
	}
	return out
}

func (g Geometry) Value() (driver.Value, error) {
	return json.Marshal(g)
}

func (g *Geometry) Scan(value any) error {
	return scanJSON(value, g)
}

func scanJSON(value any, dst any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported json column type %T", value)
	}
}
