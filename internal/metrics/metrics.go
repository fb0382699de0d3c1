package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parcel",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "parcel",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "path"})

	GeocodeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parcel",
		Subsystem: "geocoder",
		Name:      "requests_total",
		Help:      "Geocoder lookups by outcome (ok, not_found, error)",
	}, []string{"outcome"})

	GeocodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "parcel",
		Subsystem: "geocoder",
		Name:      "duration_seconds",
		Help:      "Geocoder REST call duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	GeocodeCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "parcel",
		Subsystem: "geocoder",
		Name:      "cache_hits_total",
		Help:      "Geocode results served from cache",
	})

	GeocodeCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "parcel",
		Subsystem: "geocoder",
		Name:      "cache_misses_total",
		Help:      "Geocode lookups that missed the cache",
	})

	ParcelsSynthesized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "parcel",
		Subsystem: "search",
		Name:      "parcels_synthesized_total",
		Help:      "Parcels persisted with a synthesized boundary",
	})

	NoteEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parcel",
		Subsystem: "notes",
		Name:      "events_published_total",
		Help:      "Note lifecycle events published by type and result",
	}, []string{"type", "result"})
)

// Middleware records request count and latency keyed by route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
