// Package chatservice assembles and runs the chat service process.
package chatservice

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/neegandary/NexChat/internal/api"
	"github.com/neegandary/NexChat/internal/config"
	"github.com/neegandary/NexChat/internal/contacts"
	"github.com/neegandary/NexChat/internal/delivery"
	"github.com/neegandary/NexChat/internal/hub"
	"github.com/neegandary/NexChat/internal/logger"
	"github.com/neegandary/NexChat/internal/profile"
	"github.com/neegandary/NexChat/internal/session"
	"github.com/neegandary/NexChat/internal/store"
	"github.com/neegandary/NexChat/internal/store/postgres"
	"github.com/neegandary/NexChat/internal/store/sqlite"
)

// Run starts the chat service HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("chat-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Msg("Chat service starting")

	ctx, stop := newServerContext()
	defer stop()

	st, db, err := newStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return err
	}
	defer func() { _ = db.Close() }()

	router := buildRouter(cfg, st, log)

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// newStore selects the persistence driver from configuration.
func newStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, *sql.DB, error) {
	switch cfg.DBDriver {
	case "postgres":
		if err := postgres.Bootstrap(ctx, cfg.PostgresDSN); err != nil {
			return nil, nil, fmt.Errorf("postgres bootstrap: %w", err)
		}
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Msg("Using Postgres store")
		return postgres.NewWithDB(db), db, nil
	case "sqlite":
		st, db, err := sqlite.New(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("Using SQLite store")
		return st, db, nil
	default:
		return nil, nil, fmt.Errorf("unsupported DB_DRIVER: %s", cfg.DBDriver)
	}
}

// buildRouter constructs the core components and wires them into the router.
func buildRouter(cfg *config.Config, st store.Store, log zerolog.Logger) http.Handler {
	sessions := session.NewRegistry()

	var dir profile.Directory
	if cfg.DirectoryURL != "" {
		dir = profile.NewHTTPDirectory(cfg.DirectoryURL)
	} else {
		dir = profile.NewStoreDirectory(st.Profiles())
	}
	cache := profile.NewCache(dir, cfg.ProfileCacheTTL)

	pipeline := delivery.NewPipeline(st, cache, sessions, log)
	receipts := delivery.NewReceipts(st.Messages(), sessions, log)
	aggregator := contacts.NewAggregator(st.Messages(), st.Profiles(), cache, sessions, log)

	ws := hub.New(sessions, pipeline, receipts, log, hub.Options{
		ReadBufferSize:  cfg.WSReadBufferSize,
		WriteBufferSize: cfg.WSWriteBufferSize,
		SendQueueSize:   cfg.WSSendQueueSize,
	})

	return api.NewRouter(api.Deps{
		Store:      st,
		Pipeline:   pipeline,
		Receipts:   receipts,
		Aggregator: aggregator,
		WSHandler:  ws.HandleConnection,
	})
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
