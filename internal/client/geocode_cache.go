package client

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"parcel-service/internal/config"
	"parcel-service/internal/metrics"
	"parcel-service/internal/model"
)

const geocodeKeyPrefix = "geocode:"

// ErrCacheMiss is returned by a CacheStore when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

type Geocoder interface {
	Geocode(ctx context.Context, address string) (model.GeoPoint, error)
}

type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore adapts a go-redis client to CacheStore.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg *config.Config) *RedisStore {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return &RedisStore{client: redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// CachedGeocoder is a read-through cache in front of a Geocoder. Only
// successful lookups are cached; cache failures degrade to a direct lookup.
type CachedGeocoder struct {
	next  Geocoder
	store CacheStore
	ttl   time.Duration
	log   zerolog.Logger
}

func NewCachedGeocoder(next Geocoder, store CacheStore, ttl time.Duration, log zerolog.Logger) *CachedGeocoder {
	return &CachedGeocoder{
		next:  next,
		store: store,
		ttl:   ttl,
		log:   log.With().Str("component", "geocode_cache").Logger(),
	}
}

func (g *CachedGeocoder) Geocode(ctx context.Context, address string) (model.GeoPoint, error) {
	key := geocodeKey(address)

	if raw, err := g.store.Get(ctx, key); err == nil {
		var point model.GeoPoint
		if jsonErr := json.Unmarshal(raw, &point); jsonErr == nil {
			metrics.GeocodeCacheHits.Inc()
			return point, nil
		}
		g.log.Warn().Str("key", key).Msg("discarding corrupt cache entry")
	} else if !errors.Is(err, ErrCacheMiss) {
		g.log.Warn().Err(err).Msg("geocode cache read failed")
	}
	metrics.GeocodeCacheMisses.Inc()

	point, err := g.next.Geocode(ctx, address)
	if err != nil {
		return model.GeoPoint{}, err
	}

	raw, err := json.Marshal(point)
	if err == nil {
		if err := g.store.Set(ctx, key, raw, g.ttl); err != nil {
			g.log.Warn().Err(err).Msg("geocode cache write failed")
		}
	}

	return point, nil
}

func geocodeKey(address string) string {
	return geocodeKeyPrefix + strings.ToLower(strings.Join(strings.Fields(address), " "))
}
