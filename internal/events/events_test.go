package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcel-service/internal/model"
)

func TestNoteEvent_Subject(t *testing.T) {
	assert.Equal(t, "parcel.notes.created", NoteEvent{Type: NoteCreated}.Subject())
	assert.Equal(t, "parcel.notes.updated", NoteEvent{Type: NoteUpdated}.Subject())
	assert.Equal(t, "parcel.notes.deleted", NoteEvent{Type: NoteDeleted}.Subject())
}

func TestNoteEvent_JSON(t *testing.T) {
	id := uuid.New()
	event := NoteEvent{
		Type:       NoteDeleted,
		NoteID:     id,
		OccurredAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "deleted", decoded["type"])
	assert.Equal(t, id.String(), decoded["note_id"])
	assert.NotContains(t, decoded, "note")

	event.Type = NoteCreated
	event.Note = &model.Note{ID: id, Content: "x"}
	data, err = json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"content":"x"`)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.PublishNote(context.Background(), NoteEvent{Type: NoteCreated}))
}
