package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcel-service/internal/model"
)

type memoryStore struct {
	data    map[string][]byte
	failGet bool
}

func (m *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.failGet {
		return nil, errors.New("connection refused")
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (m *memoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	return nil
}

type countingGeocoder struct {
	calls int
	point model.GeoPoint
	err   error
}

func (g *countingGeocoder) Geocode(ctx context.Context, address string) (model.GeoPoint, error) {
	g.calls++
	return g.point, g.err
}

func TestCachedGeocoder_ReadThrough(t *testing.T) {
	store := &memoryStore{data: map[string][]byte{}}
	next := &countingGeocoder{point: model.GeoPoint{Lat: 39.92, Lng: 32.85}}
	g := NewCachedGeocoder(next, store, time.Hour, zerolog.Nop())

	first, err := g.Geocode(context.Background(), "Emek Mahallesi,  Çankaya")
	require.NoError(t, err)
	second, err := g.Geocode(context.Background(), "emek mahallesi, çankaya")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.calls)
}

func TestCachedGeocoder_DoesNotCacheFailures(t *testing.T) {
	store := &memoryStore{data: map[string][]byte{}}
	next := &countingGeocoder{err: ErrZeroResults}
	g := NewCachedGeocoder(next, store, time.Hour, zerolog.Nop())

	_, err := g.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrZeroResults)
	_, err = g.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrZeroResults)

	assert.Equal(t, 2, next.calls)
	assert.Empty(t, store.data)
}

func TestCachedGeocoder_StoreFailureFallsThrough(t *testing.T) {
	store := &memoryStore{data: map[string][]byte{}, failGet: true}
	next := &countingGeocoder{point: model.GeoPoint{Lat: 1, Lng: 2}}
	g := NewCachedGeocoder(next, store, time.Hour, zerolog.Nop())

	point, err := g.Geocode(context.Background(), "Emek")
	require.NoError(t, err)
	assert.Equal(t, model.GeoPoint{Lat: 1, Lng: 2}, point)
}
