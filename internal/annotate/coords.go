package annotate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"parcel-service/internal/model"
)

// ParseCoordinates reads a ring written as a JSON array of [lng, lat] pairs.
// Longitude comes first in the text and latitude first in the result.
// At least three distinct pairs are required. A trailing pair equal to the
// first is kept as given.
func ParseCoordinates(text string) (model.Ring, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedCoordinateInput)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(text), &elems); err != nil {
		return nil, fmt.Errorf("%w: expected an array of [lng, lat] pairs", ErrMalformedCoordinateInput)
	}

	ring := make(model.Ring, 0, len(elems))
	for i, raw := range elems {
		// null decodes to a nil pointer, not to zero
		var pair []*float64
		if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 || pair[0] == nil || pair[1] == nil {
			return nil, fmt.Errorf("%w: element %d is not a [lng, lat] pair", ErrMalformedCoordinateInput, i)
		}
		p := model.GeoPoint{Lat: *pair[1], Lng: *pair[0]}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%w: element %d: %w", ErrMalformedCoordinateInput, i, err)
		}
		ring = append(ring, p)
	}

	if ring.Open().DistinctLen() < model.MinRingVertices {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCoordinateInput, ErrTooFewVertices)
	}
	return ring, nil
}

// FormatCoordinates writes ring in the form ParseCoordinates reads.
func FormatCoordinates(ring model.Ring) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, p := range ring {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('[')
		b.WriteString(strconv.FormatFloat(p.Lng, 'f', -1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(p.Lat, 'f', -1, 64))
		b.WriteByte(']')
	}
	b.WriteByte(']')
	return b.String()
}

// FormatPoint renders a picked coordinate as "lat, lng" for the clipboard.
func FormatPoint(p model.GeoPoint) string {
	return strconv.FormatFloat(p.Lat, 'f', 6, 64) + ", " + strconv.FormatFloat(p.Lng, 'f', 6, 64)
}
