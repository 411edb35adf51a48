package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lmittmann/tint"
	"github.com/prior-it/socialauth/config"
	"github.com/prior-it/socialauth/core"
	"github.com/prior-it/socialauth/login"
	"github.com/prior-it/socialauth/oauth"
	"github.com/prior-it/socialauth/postgres"
	"github.com/prior-it/socialauth/server"
)

const (
	// Stored provider data that was not touched for this long is removed
	storageRetention = 30 * 24 * time.Hour
	cleanupInterval  = time.Hour
)

// App is the server state created by New.
type App struct {
	logins   *oauth.LoginService
	accounts *postgres.AccountService
	db       *postgres.DB
	stop     context.CancelFunc
}

// Force struct to implement the server interface
var _ server.AuthState = &App{}

func (app *App) Logins() *oauth.LoginService {
	return app.logins
}

func (app *App) Accounts() login.AccountService {
	if app.accounts == nil {
		return nil
	}
	return app.accounts
}

func (app *App) Close(_ context.Context) {
	if app.stop != nil {
		app.stop()
	}
	if app.db != nil {
		app.db.Close()
	}
}

// New creates a new server and initializes all default systems.
//
// This will initialise the logger, Sentry (if enabled in config) and, if a database url is configured, a postgres
// database that keeps provider tokens and linked accounts. Without a database, tokens are kept in the session
// cookie and accounts are not persisted.
func New(ctx context.Context, cfg *config.Config) (*server.Server[*App], error) {
	if cfg == nil {
		panic("You need to supply a config.Config value to bootstrap a new server")
	}

	logger := createLogger(cfg)

	// Initialize Sentry
	if cfg.Sentry.Enabled {
		initSentry(logger, cfg)
	}

	app := &App{logins: oauth.NewLoginService(cfg.OAuthProviders)}
	s := server.New(app, cfg).
		WithLogger(logger)

	// Connect to the database
	if len(cfg.Database.URL) > 0 {
		db, err := postgres.NewDB(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("could not initialize database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		app.db = db
		app.accounts = postgres.NewAccountService(db)
		s.WithStorageFactory(PostgresStorage(db))

		cleanupCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
		app.stop = stop
		go cleanupStorage(cleanupCtx, db)
	} else {
		logger.Warn("No database configured, linked accounts will not be stored")
	}

	s.AttachDefaultMiddleware()

	// Enable sentry middleware
	if cfg.Sentry.Enabled {
		sentryHandler := sentryhttp.New(sentryhttp.Options{
			Repanic:         true,
			WaitForDelivery: true,
			Timeout:         5 * time.Second, //nolint:mnd
		})
		s.UseStd(sentryHandler.Handle)
		s.WithErrorHandler(ReportErrors)
	}

	// Fully disable caching in debug mode
	if cfg.App.Debug {
		s.UseStd(middleware.NoCache)
		if cfg.Log.Verbose {
			s.UseStd(server.Debug(false))
		}
	}

	server.RegisterRoutes(s)

	return s, nil
}

// ReportErrors sends errors that result in a server error response to Sentry, then responds like
// server.DefaultErrorHandler.
func ReportErrors(call *server.Call, err error) {
	if code, _ := server.ErrorStatus(err); code >= http.StatusInternalServerError {
		if hub := sentry.GetHubFromContext(call.Context()); hub != nil {
			hub.CaptureException(err)
		}
	}
	server.DefaultErrorHandler(call, err)
}

// PostgresStorage keeps provider data in the database, in a namespace that is linked to the browser session.
func PostgresStorage(db *postgres.DB) server.StorageFactory {
	return func(call *server.Call) (core.Storage, error) {
		namespace, err := call.SessionNamespace()
		if err != nil {
			return nil, err
		}
		return postgres.NewStorageService(db, namespace), nil
	}
}

func cleanupStorage(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		deleted, err := postgres.DeleteOldStorageEntries(ctx, db, storageRetention)
		if err != nil {
			slog.Error("Could not clean up provider storage", "error", err)
		} else if deleted > 0 {
			slog.Info("Provider storage cleaned up", "deleted", deleted)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func createLogger(cfg *config.Config) *slog.Logger {
	var logger *slog.Logger
	loggerOptions := &slog.HandlerOptions{
		Level:     cfg.Log.Level.ToSlog(),
		AddSource: cfg.Log.Verbose && cfg.App.Debug,
	}
	switch cfg.Log.Format {
	case config.LogFormatPlaintext:
		{
			logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{
				Level:      loggerOptions.Level,
				AddSource:  loggerOptions.AddSource,
				TimeFormat: time.TimeOnly,
			}))
		}
	default:
		{
			logger = slog.New(slog.NewJSONHandler(os.Stdout, loggerOptions))
		}
	}
	slog.SetDefault(logger)
	return logger
}

func initSentry(logger *slog.Logger, cfg *config.Config) {
	logger.Debug("Trying to initialise Sentry")
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Debug:            cfg.App.Debug,
		AttachStacktrace: true,
		SampleRate:       cfg.Sentry.SampleRate,
		EnableTracing:    true,
		TracesSampleRate: cfg.Sentry.TracesRate,
		TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
			if ctx.Span.Name == "GET /ping" {
				return 0.0
			}
			return cfg.Sentry.TracesRate
		}),
		ServerName:  cfg.App.Name,
		Release:     cfg.App.Version,
		Environment: string(cfg.App.Env),
	}); err != nil {
		logger.Error("Sentry initialization failed", "error", err)
	} else {
		logger.Debug("Sentry initialised")
	}
}
