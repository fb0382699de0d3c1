package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"parcel-service/internal/client"
	"parcel-service/internal/metrics"
	"parcel-service/internal/model"
)

// BoundaryHalfExtent is the half side, in degrees, of the synthesized square
// boundary (about 111 m of latitude).
const BoundaryHalfExtent = 0.001

type ParcelRepository interface {
	Create(ctx context.Context, parcel *model.Parcel) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Parcel, error)
	AppendNote(ctx context.Context, id uuid.UUID, note model.EmbeddedNote) (*model.Parcel, error)
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (model.GeoPoint, error)
}

type ParcelService struct {
	parcelRepo ParcelRepository
	geocoder   Geocoder
	now        func() time.Time
	log        zerolog.Logger
}

func NewParcelService(parcelRepo ParcelRepository, geocoder Geocoder, log zerolog.Logger) *ParcelService {
	return &ParcelService{
		parcelRepo: parcelRepo,
		geocoder:   geocoder,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
	}
}

type SearchParcelInput struct {
	Il      string
	Ilce    string
	Mahalle string
	Ada     string
	Parsel  string
}

func (in SearchParcelInput) location() model.LocationInfo {
	return model.LocationInfo{
		Il:      in.Il,
		Ilce:    in.Ilce,
		Mahalle: in.Mahalle,
		Ada:     in.Ada,
		Parsel:  in.Parsel,
	}.Normalize()
}

// Search geocodes the neighborhood of the requested parcel, synthesizes a
// placeholder square boundary around the result and persists the parcel.
// The boundary is not a surveyed cadastral geometry.
func (s *ParcelService) Search(ctx context.Context, principal model.Principal, input SearchParcelInput) (*model.Parcel, error) {
	loc := input.location()
	var missing []string
	if loc.Il == "" {
		missing = append(missing, "il")
	}
	if loc.Ilce == "" {
		missing = append(missing, "ilce")
	}
	if loc.Mahalle == "" {
		missing = append(missing, "mahalle")
	}
	if loc.Ada == "" {
		missing = append(missing, "ada")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s required", ErrInvalidInput, strings.Join(missing, ", "))
	}

	center, err := s.geocoder.Geocode(ctx, loc.Address())
	if err != nil {
		switch {
		case errors.Is(err, client.ErrZeroResults):
			return nil, ErrLocationNotFound
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, err
		default:
			s.log.Error().Err(err).Str("address", loc.Address()).Msg("geocoding failed")
			return nil, fmt.Errorf("%w: %v", ErrGeocoderUnavailable, err)
		}
	}

	parcel := &model.Parcel{
		UserID:   principal.OwnerID(),
		Il:       loc.Il,
		Ilce:     loc.Ilce,
		Mahalle:  loc.Mahalle,
		Ada:      loc.Ada,
		Parsel:   loc.Parsel,
		Geometry: model.NewPolygonGeometry(SynthesizeBoundary(center)),
		Center:   center,
		Notes:    model.EmbeddedNotes{},
	}

	if err := s.parcelRepo.Create(ctx, parcel); err != nil {
		return nil, err
	}
	metrics.ParcelsSynthesized.Inc()

	s.log.Info().
		Str("parcel_id", parcel.ID.String()).
		Str("il", loc.Il).
		Str("ilce", loc.Ilce).
		Str("mahalle", loc.Mahalle).
		Msg("parcel boundary synthesized")

	return parcel, nil
}

// SynthesizeBoundary returns the axis-aligned square around center with
// half-extent BoundaryHalfExtent, counter-clockwise from the south-west corner.
// The ring is open; closing happens when it is wrapped as a Geometry.
func SynthesizeBoundary(center model.GeoPoint) model.Ring {
	d := BoundaryHalfExtent
	return model.Ring{
		{Lat: center.Lat - d, Lng: center.Lng - d},
		{Lat: center.Lat - d, Lng: center.Lng + d},
		{Lat: center.Lat + d, Lng: center.Lng + d},
		{Lat: center.Lat + d, Lng: center.Lng - d},
	}
}

func (s *ParcelService) Get(ctx context.Context, id string) (*model.Parcel, error) {
	parcelID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidInput
	}

	parcel, err := s.parcelRepo.GetByID(ctx, parcelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return parcel, nil
}

// AddNote appends a free-text note to the parcel's embedded notes.
func (s *ParcelService) AddNote(ctx context.Context, principal model.Principal, id string, content string) (*model.Parcel, error) {
	parcelID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidInput
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: note is required", ErrInvalidInput)
	}

	parcel, err := s.parcelRepo.AppendNote(ctx, parcelID, model.EmbeddedNote{
		ID:        uuid.New(),
		Content:   content,
		UserID:    principal.OwnerID(),
		CreatedAt: s.now(),
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return parcel, nil
}
