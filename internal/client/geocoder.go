package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"parcel-service/internal/config"
	"parcel-service/internal/metrics"
	"parcel-service/internal/model"
)

var (
	// ErrZeroResults means the geocoder answered but found nothing for the address.
	ErrZeroResults = errors.New("geocoder returned no results")
	// ErrGeocoderUnavailable covers transport failures and non-OK statuses.
	ErrGeocoderUnavailable = errors.New("geocoder unavailable")
)

type geocodeLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type geocodeResult struct {
	FormattedAddress string `json:"formatted_address"`
	Geometry         struct {
		Location geocodeLocation `json:"location"`
	} `json:"geometry"`
}

type geocodeResponse struct {
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Results      []geocodeResult `json:"results"`
}

// GeocoderClient resolves free-text addresses through the Google Geocoding REST API.
type GeocoderClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	log        zerolog.Logger
}

func NewGeocoderClient(cfg *config.Config, log zerolog.Logger) *GeocoderClient {
	return &GeocoderClient{
		baseURL: cfg.Geocoder.URL,
		apiKey:  cfg.Geocoder.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Geocoder.Timeout,
		},
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
		log:        log.With().Str("component", "geocoder").Logger(),
	}
}

// Geocode returns the location of the first result for address.
func (c *GeocoderClient) Geocode(ctx context.Context, address string) (model.GeoPoint, error) {
	// Check that the base URL is configured
	if c.baseURL == "" {
		return model.GeoPoint{}, fmt.Errorf("%w: geocoder URL is not configured", ErrGeocoderUnavailable)
	}

	// Build the URL
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return model.GeoPoint{}, fmt.Errorf("invalid geocoder URL: %w", err)
	}
	q := u.Query()
	q.Set("address", address)
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	// Send the request
	start := time.Now()
	body, status, err := c.do(ctx, u.String())
	metrics.GeocodeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return model.GeoPoint{}, err
	}

	if status != http.StatusOK {
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return model.GeoPoint{}, fmt.Errorf("%w: status %d: %s", ErrGeocoderUnavailable, status, string(body))
	}

	// Parse the response
	var response geocodeResponse
	if err := json.Unmarshal(body, &response); err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return model.GeoPoint{}, fmt.Errorf("%w: failed to parse response: %v", ErrGeocoderUnavailable, err)
	}

	switch response.Status {
	case "OK":
	case "ZERO_RESULTS":
		metrics.GeocodeRequestsTotal.WithLabelValues("not_found").Inc()
		return model.GeoPoint{}, ErrZeroResults
	default:
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return model.GeoPoint{}, fmt.Errorf("%w: %s %s", ErrGeocoderUnavailable, response.Status, response.ErrorMessage)
	}

	if len(response.Results) == 0 {
		metrics.GeocodeRequestsTotal.WithLabelValues("not_found").Inc()
		return model.GeoPoint{}, ErrZeroResults
	}

	// The first result wins; reject coordinates out of range
	loc := response.Results[0].Geometry.Location
	point := model.GeoPoint{Lat: loc.Lat, Lng: loc.Lng}
	if err := point.Validate(); err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return model.GeoPoint{}, fmt.Errorf("%w: %v", ErrGeocoderUnavailable, err)
	}

	metrics.GeocodeRequestsTotal.WithLabelValues("ok").Inc()
	c.log.Debug().
		Str("address", address).
		Str("formatted_address", response.Results[0].FormattedAddress).
		Float64("lat", point.Lat).
		Float64("lng", point.Lng).
		Msg("address geocoded")

	return point, nil
}

// do performs the GET, retrying network errors with a linear backoff.
func (c *GeocoderClient) do(ctx context.Context, rawURL string) ([]byte, int, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			lastErr = err
			c.log.Warn().Err(err).Int("attempt", attempt+1).Msg("geocoder request failed")
			continue
		}

		// Read the body
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, 0, fmt.Errorf("%w: failed to read response: %v", ErrGeocoderUnavailable, err)
		}
		return body, resp.StatusCode, nil
	}

	return nil, 0, fmt.Errorf("%w: failed after %d attempts: %v", ErrGeocoderUnavailable, c.maxRetries, lastErr)
}
