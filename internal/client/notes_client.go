package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"parcel-service/internal/annotate"
	"parcel-service/internal/model"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// APIClient talks to the parcel-service REST API on behalf of a map view.
// It implements annotate.NoteBackend and annotate.ParcelSearcher.
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewAPIClient(baseURL, token string, timeout time.Duration, log zerolog.Logger) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log.With().Str("component", "api_client").Logger(),
	}
}

func (c *APIClient) ListNotes(ctx context.Context) ([]model.Note, error) {
	var notes []model.Note
	if err := c.call(ctx, http.MethodGet, "/api/notes", nil, &notes, annotate.ErrNoteNotFound); err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *APIClient) CreateNote(ctx context.Context, draft annotate.NoteDraft) (model.Note, error) {
	var note model.Note
	err := c.call(ctx, http.MethodPost, "/api/notes", draft, &note, annotate.ErrNoteNotFound)
	return note, err
}

func (c *APIClient) UpdateNote(ctx context.Context, id string, draft annotate.NoteDraft) (model.Note, error) {
	var note model.Note
	err := c.call(ctx, http.MethodPut, "/api/notes/"+url.PathEscape(id), draft, &note, annotate.ErrNoteNotFound)
	return note, err
}

func (c *APIClient) DeleteNote(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/notes/"+url.PathEscape(id), nil, nil, annotate.ErrNoteNotFound)
}

func (c *APIClient) SearchParcel(ctx context.Context, loc model.LocationInfo) (model.Parcel, error) {
	var parcel model.Parcel
	err := c.call(ctx, http.MethodPost, "/api/parcels/search", loc, &parcel, annotate.ErrLocationNotFound)
	return parcel, err
}

// GetParcel loads a stored parcel. A missing parcel is ErrLocationNotFound.
func (c *APIClient) GetParcel(ctx context.Context, id string) (model.Parcel, error) {
	var parcel model.Parcel
	err := c.call(ctx, http.MethodGet, "/api/parcels/"+url.PathEscape(id), nil, &parcel, annotate.ErrLocationNotFound)
	return parcel, err
}

// AddParcelNote appends a free-text note to a parcel and returns the updated parcel.
func (c *APIClient) AddParcelNote(ctx context.Context, id, note string) (model.Parcel, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return model.Parcel{}, annotate.ErrEmptyNote
	}

	var parcel model.Parcel
	body := map[string]string{"note": note}
	err := c.call(ctx, http.MethodPost, "/api/parcels/"+url.PathEscape(id)+"/notes", body, &parcel, annotate.ErrLocationNotFound)
	return parcel, err
}

// call sends one request and decodes the data field of the envelope into out.
// A 404 is reported as notFound.
func (c *APIClient) call(ctx context.Context, method, path string, in, out any, notFound error) error {
	// Encode the request body
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	// Headers and access token
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A cancelled context is not a transport failure
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %v", annotate.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", annotate.ErrTransport, err)
	}

	// Take the error message from the envelope when there is one
	var envelope apiEnvelope
	_ = json.Unmarshal(raw, &envelope)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return notFound
	case resp.StatusCode == http.StatusUnauthorized:
		return annotate.ErrUnauthorized
	case resp.StatusCode >= 300:
		c.log.Warn().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Str("message", envelope.Message).Msg("api request failed")
		return fmt.Errorf("%w: %s %s: status %d: %s", annotate.ErrTransport, method, path, resp.StatusCode, envelope.Message)
	}

	// Decode the data field
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", annotate.ErrTransport, err)
	}
	return nil
}
