package annotate

import (
	"errors"

	"parcel-service/internal/model"
)

var (
	ErrMalformedCoordinateInput = errors.New("malformed coordinate input")
	ErrTooFewVertices           = errors.New("polygon needs at least 3 distinct vertices")
	ErrUnknownTool              = errors.New("unknown tool mode")
	ErrEmptyNote                = errors.New("note content is empty")
	ErrNoPrompt                 = errors.New("no pending note prompt")

	ErrNoteNotFound     = errors.New("note not found")
	ErrLocationNotFound = errors.New("location not found")
	ErrUnauthorized     = errors.New("unauthorized")
	// ErrTransport wraps network and unexpected server failures.
	ErrTransport = errors.New("transport failure")

	ErrSuperseded    = errors.New("superseded by a newer request")
	ErrSessionClosed = errors.New("session closed")

	ErrInvalidCoordinate = model.ErrInvalidCoordinate
)
