package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parcel-service/internal/auth"
	"parcel-service/internal/client"
	"parcel-service/internal/config"
	"parcel-service/internal/db"
	"parcel-service/internal/events"
	httphandler "parcel-service/internal/http"
	"parcel-service/internal/http/middleware"
	"parcel-service/internal/logger"
	"parcel-service/internal/repository"
	"parcel-service/internal/service"
)

func main() {
	os.Exit(start())
}

// start wires the service and blocks until it stops. Deferred cleanup runs
// before the exit code reaches os.Exit.
func start() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	appLogger := logger.New(cfg.Environment)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Error().Err(err).Msg("failed to connect database")
		return 1
	}

	var cleanup closers
	defer cleanup.closeAll()

	noteRepo := repository.NewNoteRepository(database)
	parcelRepo := repository.NewParcelRepository(database)

	var geocoder service.Geocoder = client.NewGeocoderClient(cfg, appLogger)
	if store := client.NewRedisStore(cfg); store != nil {
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := store.Ping(pingCtx); err != nil {
			appLogger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, geocode cache will retry per request")
		}
		cancel()
		cleanup.add(func() {
			if err := store.Close(); err != nil {
				appLogger.Warn().Err(err).Msg("failed to close redis client")
			}
		})
		geocoder = client.NewCachedGeocoder(geocoder, store, cfg.Geocoder.CacheTTL, appLogger)
	}

	var publisher service.NotePublisher = events.NopPublisher{}
	if cfg.NATS.URL != "" {
		natsPublisher, err := events.NewPublisher(cfg.NATS.URL, appLogger)
		if err != nil {
			appLogger.Warn().Err(err).Msg("note events disabled")
		} else {
			cleanup.add(natsPublisher.Close)
			publisher = natsPublisher
		}
	}

	noteService := service.NewNoteService(noteRepo, publisher, appLogger)
	parcelService := service.NewParcelService(parcelRepo, geocoder, appLogger)

	var tokenParser *auth.Parser
	if cfg.Auth.AccessSecret != "" {
		tokenParser = auth.NewParser(cfg.Auth.AccessSecret)
	}

	identify := middleware.OptionalAuth(tokenParser)
	requireAuth := identify
	if cfg.Auth.Required {
		requireAuth = middleware.Auth(tokenParser)
	}

	handler := httphandler.NewHandler(noteService, parcelService, appLogger)
	router := httphandler.NewRouter(handler, requireAuth, identify, cfg.Environment, appLogger)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().Str("addr", addr).Bool("auth_required", cfg.Auth.Required).Msg("starting parcel service")

	if err := run(router, addr, appLogger); err != nil {
		appLogger.Error().Err(err).Msg("failed to start server")
		return 1
	}
	return 0
}

// closers releases external clients in reverse order of acquisition.
type closers []func()

func (c *closers) add(fn func()) {
	*c = append(*c, fn)
}

func (c *closers) closeAll() {
	for i := len(*c) - 1; i >= 0; i-- {
		(*c)[i]()
	}
}

// run serves until SIGINT or SIGTERM, then drains in-flight requests.
func run(router *gin.Engine, addr string, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received, draining connections")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
	return nil
}
