// ABOUTME: Wires the gate-opener components together and runs the HTTP server
// ABOUTME: Owns startup ordering, the refresher lifecycle, and graceful shutdown

package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ChrisTracy/gate-opener/internal/auth"
	"github.com/ChrisTracy/gate-opener/internal/config"
	"github.com/ChrisTracy/gate-opener/internal/enroll"
	"github.com/ChrisTracy/gate-opener/internal/gate"
	"github.com/ChrisTracy/gate-opener/internal/httpapi"
	"github.com/ChrisTracy/gate-opener/internal/notify"
	"github.com/ChrisTracy/gate-opener/internal/store"
)

const shutdownTimeout = 5 * time.Second

// App holds the assembled gate-opener service.
type App struct {
	config     *config.Config
	logger     *slog.Logger
	store      store.DeviceStore
	refresher  *auth.Refresher
	httpServer *http.Server
}

// New assembles the service from configuration. The store is opened and the
// auth cache is populated before New returns, so a successful New means the
// service can verify tokens immediately.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	st, err := openStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	codec, err := auth.NewTokenCodec([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating token codec: %w", err)
	}

	cache := auth.NewCache()
	refresher := auth.NewRefresher(st, cache, cfg.Auth.RefreshInterval)

	// Populate the cache synchronously so the first request after startup
	// does not race the initial refresh.
	if err := refresher.Refresh(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("initial cache refresh: %w", err)
	}
	logger.Info("auth cache populated", "devices", cache.Len())

	verifier := auth.NewVerifier(codec, cache)
	notifier := notify.NewFromConfig(cfg.Notify)
	workflow := enroll.NewWorkflow(st, codec, refresher, notifier,
		cfg.Auth.RegistrationPSK, cfg.Auth.ApprovalPSK, cfg.TokenTTL())

	actuator := gate.NewLoggingActuator()
	guard := gate.NewGuard(actuator, refresher, notifier, cfg.Gate.FriendlyName, cfg.Gate.Pulse)

	srv := httpapi.New(verifier, workflow, guard, cfg.Gate.FriendlyName)

	return &App{
		config:    cfg,
		logger:    logger,
		store:     st,
		refresher: refresher,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      srv.Handler(),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}, nil
}

func openStore(cfg config.StoreConfig) (store.DeviceStore, error) {
	switch cfg.Driver {
	case "sqlite":
		return store.NewSQLiteStore(cfg.Path)
	case "airtable":
		return store.NewAirtableStore(cfg.APIKey, cfg.BaseID, cfg.TableName), nil
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Run starts the periodic refresher and the HTTP server, then blocks until
// the context is canceled or the server fails. Returns nil on graceful
// shutdown.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.config.Server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.config.Server.Addr, err)
	}

	a.refresher.Start()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := a.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		a.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		a.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := a.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown uses a fresh context since the run context is already
// canceled by the time shutdown begins.
func (a *App) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.Shutdown(ctx)
}

// Shutdown stops the HTTP server, the refresher, and the store.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down gate-opener")

	var errs []error
	if err := a.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}

	a.refresher.Close()

	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}
