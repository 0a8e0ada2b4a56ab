package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/afyapapo/sessioncore/internal/session/gateway"
	httpapi "github.com/afyapapo/sessioncore/internal/session/http"
	"github.com/afyapapo/sessioncore/internal/session/obs"
	"github.com/afyapapo/sessioncore/internal/session/service"
	"github.com/afyapapo/sessioncore/internal/session/store"
	"github.com/afyapapo/sessioncore/internal/session/store/drivers/memory"
	"github.com/afyapapo/sessioncore/internal/session/store/drivers/sqlite"
	"github.com/afyapapo/sessioncore/pkg/cryptox"
	"github.com/afyapapo/sessioncore/pkg/slogx"
)

const (
	// BuildVersion is overridden at build time via ldflags.
	BuildVersion = "v0.1.0"
)

var (
	// ErrStopped is returned by Run once Shutdown has begun.
	ErrStopped = errors.New("application already shut down")
	// ErrRunning is returned by a second call to Run.
	ErrRunning = errors.New("application already running")
)

// Application owns the session core and everything it depends on.
type Application struct {
	cfg     Config
	logger  *slog.Logger
	metrics *obs.Metrics

	// Core dependencies
	db          store.CredentialStore
	credentials store.CredentialStore
	gateway     gateway.Gateway

	// Services
	tokenService        *service.TokenService
	authorizeService    *service.AuthorizeService
	sessionService      *service.SessionService
	guard               *service.Guard
	housekeepingService *service.HousekeepingService

	// HTTP server, nil when Port is 0
	server *http.Server
	router *httpapi.Router

	// lifecycle guards the worker handoff between Run and shutdown, which
	// may run on different goroutines.
	lifecycle    sync.Mutex
	running      bool
	stopped      bool
	shutdownOnce sync.Once
	shutdownErr  error
}

// New validates cfg and wires every component. Nothing runs until Run.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg:     cfg,
		metrics: obs.NewMetrics(),
		logger: slogx.New(slogx.Config{
			Service: "session-core",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}
	app.metrics.SetBuildInfo(BuildVersion)

	if err := app.initStore(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Session exposes the state machine to an embedding host.
func (app *Application) Session() *service.SessionService { return app.sessionService }

func (app *Application) Guard() *service.Guard { return app.guard }

func (app *Application) Authorizer() *service.AuthorizeService { return app.authorizeService }

// Handler is the status surface, usable without starting the listener.
func (app *Application) Handler() http.Handler { return app.router }

// Run performs the startup check, starts background workers and the status
// server, then blocks until ctx is cancelled or the server fails.
func (app *Application) Run(ctx context.Context) error {
	app.lifecycle.Lock()
	if app.stopped {
		app.lifecycle.Unlock()
		return ErrStopped
	}
	if app.running {
		app.lifecycle.Unlock()
		return ErrRunning
	}
	if app.housekeepingService != nil {
		app.housekeepingService.Start()
	}
	app.running = true
	app.lifecycle.Unlock()

	serverErrors := make(chan error, 1)
	if app.server != nil {
		app.logger.Info("status server starting", "port", app.cfg.Port, "version", BuildVersion)
		go func() {
			serverErrors <- app.server.ListenAndServe()
		}()
	}

	if err := app.sessionService.Start(ctx); err != nil && !errors.Is(err, service.ErrClosed) {
		app.logger.Error("session startup failed", "error", err)
	}
	st := app.sessionService.State()
	app.logger.Info("session core ready", "phase", st.Phase.String(), "authenticated", st.IsAuthenticated)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		app.logger.Info("shutdown requested")
	}

	if err := app.Shutdown(); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Shutdown stops the server, the session and the workers, then closes the
// credential store. Stored credentials are kept. Safe to call more than once.
func (app *Application) Shutdown() error {
	app.shutdownOnce.Do(func() {
		app.shutdownErr = app.shutdown()
	})
	return app.shutdownErr
}

func (app *Application) shutdown() error {
	app.logger.Info("shutting down session core...")

	if app.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
		defer cancel()

		if err := app.server.Shutdown(ctx); err != nil {
			app.logger.Error("graceful server shutdown failed", "error", err)
			if err := app.server.Close(); err != nil {
				app.logger.Error("error closing server", "error", err)
			}
		}
	}

	app.sessionService.Close()

	app.lifecycle.Lock()
	app.stopped = true
	running := app.running
	app.lifecycle.Unlock()

	if running && app.housekeepingService != nil {
		app.housekeepingService.Stop()
	}

	if err := app.credentials.Close(); err != nil {
		app.logger.Error("error closing credential store", "error", err)
		return err
	}

	app.logger.Info("session core stopped")
	return nil
}

// initStore opens the configured backend and layers sealing and
// namespacing on top of it.
func (app *Application) initStore() error {
	switch app.cfg.CredentialStore {
	case StoreMemory:
		app.db = memory.NewStore()
	case StoreSQLite:
		dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.CredentialDatabaseFile)
		db, err := sqlite.NewStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to initialize credential database: %w", err)
		}
		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply credential database migrations: %w", err)
		}
		app.logger.Info("credential database migrations applied successfully")
		app.db = db
	}

	creds := app.db
	if app.cfg.CredentialSealKey != "" {
		sealer, err := cryptox.NewSealer([]byte(app.cfg.CredentialSealKey))
		if err != nil {
			_ = app.db.Close()
			return fmt.Errorf("failed to initialize credential sealing: %w", err)
		}
		creds = store.Sealed(creds, sealer)
	} else if app.cfg.CredentialStore == StoreSQLite {
		app.logger.Warn("credentials are stored unencrypted; set CREDENTIAL_SEAL_KEY")
	}
	app.credentials = store.Namespaced(creds, app.cfg.CredentialNamespace)
	return nil
}

// initServices initializes the token, authorization and session services.
func (app *Application) initServices() error {
	policy, err := service.LoadPolicy(app.cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("failed to load RBAC policy: %w", err)
	}
	app.authorizeService = service.NewAuthorizeService(policy)

	app.tokenService = service.NewTokenService(app.credentials, app.logger, service.TokenConfig{
		ExpiryBuffer:     app.cfg.ExpiryBuffer,
		RefreshThreshold: app.cfg.RefreshThreshold,
		RefreshTokenTTL:  app.cfg.RefreshTokenTTL,
	})

	client := gateway.NewClient(app.cfg.IdentityEndpoint, app.cfg.IdentityTimeout, app.logger)
	client.Tokens = app.tokenService.AccessToken
	if n := app.cfg.IdentityRatePerMinute; n > 0 {
		client.Limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), min(n, 10))
	}
	app.gateway = gateway.Instrument(client, app.metrics)

	app.sessionService = service.NewSessionService(
		app.gateway,
		app.tokenService,
		app.authorizeService,
		app.logger,
		app.metrics,
		service.SessionConfig{RefreshInterval: app.cfg.RefreshInterval},
	)
	app.guard = service.NewGuard(app.authorizeService, app.metrics)

	if sweeper, ok := store.AsSweeper(app.credentials); ok {
		app.housekeepingService = service.NewHousekeepingService(
			sweeper,
			app.logger,
			app.cfg.HousekeepingInterval,
		)
	}
	return nil
}

// initHTTP initializes the status router and, when a port is set, the server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.credentials, app.metrics, app.logger)
	router.Session = app.sessionService
	router.Guard = app.guard
	router.Authorizer = app.authorizeService
	router.ApplyRoutes()
	app.router = router

	if app.cfg.Port == 0 {
		return
	}
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
