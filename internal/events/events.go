package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"parcel-service/internal/metrics"
	"parcel-service/internal/model"
)

type NoteEventType string

const (
	NoteCreated NoteEventType = "created"
	NoteUpdated NoteEventType = "updated"
	NoteDeleted NoteEventType = "deleted"
)

const subjectPrefix = "parcel.notes."

// NoteEvent is published after a note mutation is committed.
// Note is nil for deletions.
type NoteEvent struct {
	Type       NoteEventType `json:"type"`
	NoteID     uuid.UUID     `json:"note_id"`
	Note       *model.Note   `json:"note,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

func (e NoteEvent) Subject() string {
	return subjectPrefix + string(e.Type)
}

// Publisher fans note events out over NATS core pub/sub. Publishing is
// best-effort: the note store stays the source of truth.
type Publisher struct {
	conn *nats.Conn
	log  zerolog.Logger
}

func NewPublisher(url string, log zerolog.Logger) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("parcel-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{conn: conn, log: log.With().Str("component", "note_events").Logger()}, nil
}

func (p *Publisher) PublishNote(ctx context.Context, event NoteEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(event.Subject(), data); err != nil {
		metrics.NoteEventsPublished.WithLabelValues(string(event.Type), "error").Inc()
		p.log.Warn().Err(err).Str("note_id", event.NoteID.String()).Msg("failed to publish note event")
		return err
	}
	metrics.NoteEventsPublished.WithLabelValues(string(event.Type), "ok").Inc()
	return nil
}

func (p *Publisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}

// NopPublisher drops every event; used when NATS_URL is empty.
type NopPublisher struct{}

func (NopPublisher) PublishNote(ctx context.Context, event NoteEvent) error {
	return nil
}
