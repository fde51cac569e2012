package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/smtp"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	httpapi "github.com/haulstack/freightportal/internal/access/http"
	"github.com/haulstack/freightportal/internal/access/mail"
	"github.com/haulstack/freightportal/internal/access/service"
	"github.com/haulstack/freightportal/internal/access/store"
	"github.com/haulstack/freightportal/internal/access/store/drivers/sqlite"
	"github.com/haulstack/freightportal/pkg/jwtx"
	"github.com/haulstack/freightportal/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the access service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	verifier jwtx.Verifier
	mailer   mail.Mailer

	// Services
	inviteService   *service.InviteService
	rolesService    *service.RolesService
	accountsService *service.AccountsService
	gate            *service.Gate
	sessions        *service.SessionRegistry

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "access-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initVerifier(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initMailer()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("access service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down access service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Idle monitors do not survive a restart; sessions do.
	app.sessions.Shutdown()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("access service stopped")
	return nil
}

// initDatabase opens the store and applies migrations.
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initVerifier loads the identity provider's verification key. Outside prod a
// missing key file falls back to an ephemeral keypair so the service can run
// standalone; tokens minted elsewhere will not verify against it.
func (app *Application) initVerifier() error {
	if app.cfg.IdentityKeyFile != "" {
		pub, err := jwtx.LoadPublicKeyPEM(app.cfg.IdentityKeyFile)
		if err != nil {
			return fmt.Errorf("failed to load identity verification key: %w", err)
		}
		app.verifier = jwtx.NewEdDSAVerifier(pub, app.cfg.IdentityIssuer)
		return nil
	}

	_, pub, err := jwtx.GenerateEdDSASigner()
	if err != nil {
		return fmt.Errorf("failed to generate ephemeral verification key: %w", err)
	}
	app.verifier = jwtx.NewEdDSAVerifier(pub, app.cfg.IdentityIssuer)
	app.logger.Warn("no identity key file configured, using ephemeral dev keypair")
	return nil
}

// initMailer selects the SMTP relay when configured, the log-only mailer
// otherwise.
func (app *Application) initMailer() {
	if app.cfg.SMTPAddr == "" {
		app.mailer = &mail.LogMailer{Logger: app.logger}
		app.logger.Warn("no SMTP relay configured, invitation emails will only be logged")
		return
	}

	var auth smtp.Auth
	if app.cfg.SMTPUsername != "" {
		host, _, _ := strings.Cut(app.cfg.SMTPAddr, ":")
		auth = smtp.PlainAuth("", app.cfg.SMTPUsername, app.cfg.SMTPPassword, host)
	}
	app.mailer = &mail.SMTPMailer{
		Addr: app.cfg.SMTPAddr,
		From: app.cfg.SMTPFrom,
		Auth: auth,
	}
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.inviteService = &service.InviteService{
		Store:   app.db,
		Mailer:  app.mailer,
		BaseURL: app.cfg.BaseURL,
		TTL:     app.cfg.InviteTTL,
	}
	app.rolesService = &service.RolesService{Store: app.db}
	app.accountsService = &service.AccountsService{Store: app.db}
	app.gate = &service.Gate{
		Store:             app.db,
		ProfileSetupRoute: ProfileSetupRoute,
		Routes:            defaultRoutes(),
	}
	app.sessions = service.NewSessionRegistry(
		app.cfg.IdleTimeout,
		app.signOutFunc(),
		app.logger,
	)
}

// signOutFunc builds the forced sign-out primitive. With a provider endpoint
// configured it POSTs the session ID there; without one the sign-out is a
// local-only event.
func (app *Application) signOutFunc() service.SignOutFunc {
	if app.cfg.IdentitySignOutURL == "" {
		return func(ctx context.Context, sessionID string) error {
			app.logger.Info("session signed out (local only)", "session_id", sessionID)
			return nil
		}
	}

	client := &http.Client{Timeout: 10 * time.Second}
	endpoint := app.cfg.IdentitySignOutURL

	return func(ctx context.Context, sessionID string) error {
		form := url.Values{"session_id": {sessionID}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
			strings.NewReader(form.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("identity sign-out: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return fmt.Errorf("identity sign-out: unexpected status %d", resp.StatusCode)
		}
		return nil
	}
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.verifier, app.db, app.logger)

	router.InviteService = app.inviteService
	router.RolesService = app.rolesService
	router.AccountsService = app.accountsService
	router.Gate = app.gate
	router.Sessions = app.sessions
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
