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
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/aussiebroadwan/fastlink/internal/auth/http"
	"github.com/aussiebroadwan/fastlink/internal/auth/notify"
	"github.com/aussiebroadwan/fastlink/internal/auth/service"
	"github.com/aussiebroadwan/fastlink/internal/auth/store"
	"github.com/aussiebroadwan/fastlink/internal/auth/store/drivers/postgres"
	redisstore "github.com/aussiebroadwan/fastlink/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/fastlink/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/fastlink/pkg/cryptox"
	"github.com/aussiebroadwan/fastlink/pkg/jwtx"
	"github.com/aussiebroadwan/fastlink/pkg/slogx"
)

// BuildVersion is overridden at build time with -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application encapsulates the service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         store.Store
	redis      *redis.Client // nil unless OTP_BACKEND=redis
	otpStore   *redisstore.OTPStore
	keyManager *jwtx.KeyManager
	notifier   notify.Notifier

	// Services
	tokenService        *service.TokenService
	authService         *service.AuthService
	userService         *service.UserService
	jobOrderService     *service.JobOrderService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "fastlink",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)

	// Database first: persistent keys live in it.
	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initOTPStore(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	keyManager, err := InitAuthKeys(context.Background(), app.cfg, app.db, app.logger)
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	app.initNotifier()
	app.initServices()
	if err := app.initHTTP(); err != nil {
		app.closeStores()
		return nil, err
	}

	return app, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until a shutdown signal arrives
// or the server fails.
func (app *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.housekeepingService.Start()
	app.logger.Info("fastlink starting", "port", app.cfg.Port, "version", BuildVersion)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			app.logger.Info("shutdown signal received")
		}
		return app.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down fastlink...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("fastlink stopped")
	return nil
}

func (app *Application) closeStores() error {
	var errs []error
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
			errs = append(errs, err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// initDatabase opens the configured driver and applies migrations.
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DBDriver {
	case "postgres":
		db, err = postgres.NewStore(app.cfg.DatabaseURL)
	default:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
			app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DBDriver)
	return nil
}

// initOTPStore moves OTP records to Redis when configured. Everything else
// stays in the database.
func (app *Application) initOTPStore() error {
	if app.cfg.OTPBackend != "redis" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	app.redis = client
	app.otpStore = redisstore.NewOTPStore(client, "fastlink")
	app.db = store.WithOTPs(app.db, app.otpStore)

	app.logger.Info("otp records stored in redis", "addr", app.cfg.RedisAddr)
	return nil
}

func (app *Application) initNotifier() {
	switch app.cfg.Notifier {
	case "smtp":
		app.notifier = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     app.cfg.SMTPHost,
			Port:     app.cfg.SMTPPort,
			Username: app.cfg.SMTPUsername,
			Password: app.cfg.SMTPPassword,
			From:     app.cfg.SMTPFrom,
		}, app.logger)
		app.logger.Info("otp delivery via smtp", "host", app.cfg.SMTPHost)
	default:
		app.notifier = notify.NewLogNotifier(app.logger)
		app.logger.Warn("otp delivery via log notifier, codes are written to the log")
	}
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		KeyManager: app.keyManager,
		Store:      app.db,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	ledger := service.NewOTPLedger(app.db)
	ledger.TTL = app.cfg.OTPTTL
	ledger.MaxAttempts = app.cfg.OTPMaxAttempts

	app.authService = &service.AuthService{
		Store:    app.db,
		Ledger:   ledger,
		Notifier: app.notifier,
		Tokens:   app.tokenService,
	}
	app.userService = &service.UserService{Store: app.db}
	app.jobOrderService = &service.JobOrderService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() error {
	transport, err := httpapi.NewSessionTransport(app.cfg.SessionTransport, app.cfg.CookieSecure)
	if err != nil {
		return err
	}

	var origins []string
	if app.cfg.ClientURL != "" {
		origins = append(origins, app.cfg.ClientURL)
	}

	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		app.keyManager.Verifier,
		BuildVersion,
		app.db,
		app.logger,
		origins...,
	)

	router.Transport = transport
	router.TokenService = app.tokenService
	router.AuthService = app.authService
	router.UserService = app.userService
	router.JobOrderService = app.jobOrderService
	if app.otpStore != nil {
		router.OTPStore = app.otpStore
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
