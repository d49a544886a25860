package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpapi "github.com/arcwell/identity/internal/identity/http"
	"github.com/arcwell/identity/internal/identity/mailer"
	"github.com/arcwell/identity/internal/identity/service"
	"github.com/arcwell/identity/internal/identity/store"
	"github.com/arcwell/identity/internal/identity/store/drivers/sqlite"
	"github.com/arcwell/identity/pkg/cryptox"
	"github.com/arcwell/identity/pkg/jwtx"
	"github.com/arcwell/identity/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application wires the identity service together: store, services, mail
// and the HTTP server.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	authService         *service.AuthService
	tokenService        *service.TokenService
	otpService          *service.OTPService
	userService         *service.UserService
	roleService         *service.RoleService
	permissionService   *service.PermissionService
	blacklistService    *service.BlacklistService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "identity",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.bootstrapService.Seed(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("seed default catalog: %w", err)
	}

	app.initHTTP()
	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("identity service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// Shutdown drains the HTTP server, stops housekeeping and closes the
// database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied")
	return nil
}

func (app *Application) initServices() error {
	secret := []byte(app.cfg.SigningSecret)
	signer, err := jwtx.NewHMACSigner(app.cfg.Algorithm, secret)
	if err != nil {
		return fmt.Errorf("token signer: %w", err)
	}
	verifier, err := jwtx.NewHMACVerifier(app.cfg.Algorithm, secret, app.cfg.Issuer)
	if err != nil {
		return fmt.Errorf("token verifier: %w", err)
	}

	mail, err := mailer.New(mailer.Config{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.SMTPUsername,
		Password: app.cfg.SMTPPassword,
		From:     app.cfg.MailFrom,
	})
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}

	app.blacklistService = &service.BlacklistService{
		Store:    app.db,
		Verifier: verifier,
	}

	app.tokenService = &service.TokenService{
		Signer:    signer,
		Verifier:  verifier,
		Store:     app.db,
		Blacklist: app.blacklistService,
		Issuer:    app.cfg.Issuer,
		AccessTTL: app.cfg.AccessTTL,
	}

	app.otpService = &service.OTPService{
		Store:      app.db,
		Mailer:     mail,
		TTL:        app.cfg.OTPTTL,
		CodeLength: app.cfg.OTPLength,
	}

	app.authService = &service.AuthService{
		Store:           app.db,
		Tokens:          app.tokenService,
		OTPs:            app.otpService,
		Blacklist:       app.blacklistService,
		Mailer:          mail,
		AcceptedDomains: app.cfg.AcceptedDomains,
	}

	app.userService = &service.UserService{
		Store:           app.db,
		Mailer:          mail,
		AcceptedDomains: app.cfg.AcceptedDomains,
	}
	app.roleService = &service.RoleService{Store: app.db}
	app.permissionService = &service.PermissionService{Store: app.db}

	app.bootstrapService = &service.BootstrapService{
		Store:  app.db,
		Logger: app.logger,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.otpService,
		app.blacklistService,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	return nil
}

func (app *Application) initHTTP() {
	app.router = httpapi.NewRouter(BuildVersion, app.db, app.logger)
	app.router.AuthService = app.authService
	app.router.TokenService = app.tokenService
	app.router.OTPService = app.otpService
	app.router.UserService = app.userService
	app.router.RoleService = app.roleService
	app.router.PermissionService = app.permissionService
	app.router.ApplyRoutes()

	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: app.router,
	}
}
