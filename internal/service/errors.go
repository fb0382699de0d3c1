package service

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrInvalidInput        = errors.New("invalid input")
	ErrLocationNotFound    = errors.New("location not found")
	ErrGeocoderUnavailable = errors.New("geocoding service unavailable")
)
