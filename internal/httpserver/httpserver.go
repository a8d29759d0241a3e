// Package httpserver assembles storage, authentication and the CalDAV handler
// into an HTTP server.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/cyp0633/caldora/internal/config"
	"github.com/cyp0633/caldora/internal/metrics"
	"github.com/cyp0633/caldora/server"
	authmem "github.com/cyp0633/caldora/server/auth/memory"
	"github.com/cyp0633/caldora/server/recurrence"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/cyp0633/caldora/server/storage/memory"
	"github.com/cyp0633/caldora/server/storage/sqlite"
)

type Server struct {
	http   *http.Server
	logger zerolog.Logger
}

// backend is a storage that can also create calendars, which the CalDAV surface
// does not offer.
type backend interface {
	storage.Storage
	CreateCalendar(ctx context.Context, cal *storage.Calendar) error
}

func NewServer(cfg *config.Config, logger zerolog.Logger) (*Server, func(), error) {
	store, cleanup, err := openStorage(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := seedCalendars(context.Background(), store, cfg.Calendars, logger); err != nil {
		cleanup()
		return nil, nil, err
	}

	users := authmem.New(authmem.WithLogger(logger))
	if err := users.ParseUsers(cfg.Auth.Users); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("CALDAV_USERS: %w", err)
	}
	if cfg.Auth.Users == "" {
		logger.Warn().Msg("no users configured, every request will be refused")
	}

	var davStore storage.Storage = store
	if cfg.Metrics {
		davStore = metrics.InstrumentStorage(store)
	}
	dav, err := server.New(server.Options{
		Root:                cfg.HTTP.Root,
		CalendarRoot:        cfg.HTTP.CalendarRoot,
		ICSRoot:             cfg.HTTP.ICSRoot,
		PrincipalRoot:       cfg.HTTP.PrincipalRoot,
		Realm:               cfg.Auth.Realm,
		UserPasswordPattern: cfg.Auth.UserPasswordPattern,
		DisableWellKnown:    cfg.DisableWellKnown,
		ProductID:           cfg.ProductID,
		MaxBodyBytes:        cfg.HTTP.MaxBodyBytes,
		Storage:             davStore,
		Authenticator:       users,
		Logger:              logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	srv := &Server{
		http: &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      NewRouter(cfg, dav, logger),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
	logger.Info().Msgf("listening on %s (storage=%s)", cfg.HTTP.Addr, cfg.Storage.Type)
	return srv, cleanup, nil
}

// openStorage builds the configured backend around one cached recurrence engine.
func openStorage(cfg *config.Config, logger zerolog.Logger) (backend, func(), error) {
	engine := recurrence.NewEngine()

	switch cfg.Storage.Type {
	case "memory":
		store := memory.New(memory.WithLogger(logger), memory.WithEngine(engine))
		return store, engine.Close, nil
	case "sqlite":
		store, err := sqlite.New(cfg.Storage.SQLiteDSN, logger, sqlite.WithEngine(engine))
		if err != nil {
			engine.Close()
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error().Err(err).Msg("closing sqlite store")
			}
			engine.Close()
		}, nil
	default:
		engine.Close()
		return nil, nil, errors.New("unknown storage type: " + cfg.Storage.Type)
	}
}

// seedCalendars creates the configured calendars. Existing ones are left alone.
func seedCalendars(ctx context.Context, store backend, seeds []config.CalendarSeed, logger zerolog.Logger) error {
	for _, seed := range seeds {
		err := store.CreateCalendar(ctx, &storage.Calendar{
			PrincipalID:  seed.PrincipalID,
			CalendarID:   seed.CalendarID,
			CalendarName: seed.Name,
			ReadOnly:     seed.ReadOnly,
		})
		switch {
		case errors.Is(err, storage.ErrConflict):
			logger.Debug().Str("principal", seed.PrincipalID).Str("calendar", seed.CalendarID).Msg("calendar already exists")
		case err != nil:
			return fmt.Errorf("seed calendar %s/%s: %w", seed.PrincipalID, seed.CalendarID, err)
		}
	}
	return nil
}

// Handler is the root handler of the server.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) Start() error {
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
