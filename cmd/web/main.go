package main

import (
	"context"
	"encoding/gob"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/myrjola/runplan/internal/envstruct"
	"github.com/myrjola/runplan/internal/errors"
	"github.com/myrjola/runplan/internal/logging"
	"github.com/myrjola/runplan/internal/plan"
	"github.com/myrjola/runplan/internal/sqlite"
	"github.com/myrjola/runplan/internal/training"
	"golang.org/x/sync/errgroup"
)

type application struct {
	logger          *slog.Logger
	sessionManager  *scs.SessionManager
	templateFS      fs.FS
	trainingService *training.Service
	now             func() time.Time
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"RUNPLAN_ADDR" envDefault:"localhost:8081"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"RUNPLAN_SQLITE_URL" envDefault:"./runplan.sqlite3"`
	// TemplatePath is the path to the directory containing the HTML templates.
	TemplatePath string `env:"RUNPLAN_TEMPLATE_PATH" envDefault:""`
	// CatalogPath optionally replaces the embedded plan catalog with a TOML file.
	CatalogPath string `env:"RUNPLAN_CATALOG_PATH" envDefault:""`
	// SessionLifetimeHours bounds how long an unfinished onboarding draft is kept.
	SessionLifetimeHours int `env:"RUNPLAN_SESSION_LIFETIME_HOURS" envDefault:"12"`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	if cfg.SessionLifetimeHours <= 0 {
		return errors.New("session lifetime must be positive",
			slog.Int("hours", cfg.SessionLifetimeHours))
	}

	var htmlTemplatePath string
	if htmlTemplatePath, err = resolveAndVerifyTemplatePath(cfg.TemplatePath); err != nil {
		return errors.Wrap(err, "resolve template path")
	}

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return errors.Wrap(err, "load catalog", slog.String("path", cfg.CatalogPath))
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	sessionManager, sessionStore := initializeSessionManager(db,
		time.Duration(cfg.SessionLifetimeHours)*time.Hour)

	app := application{
		logger:          logger,
		sessionManager:  sessionManager,
		templateFS:      os.DirFS(htmlTemplatePath),
		trainingService: training.NewService(db, logger, catalog, time.Now),
		now:             time.Now,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.configureAndStartServer(gctx, cfg.Addr, app.routes())
	})
	g.Go(func() error {
		return db.RunOptimizer(gctx)
	})
	err = g.Wait()

	sessionStore.StopCleanup()
	if closeErr := db.Close(); closeErr != nil {
		err = errors.Join(err, errors.Wrap(closeErr, "close db"))
	}
	if err != nil {
		return errors.Wrap(err, "serve")
	}
	return nil
}

// loadCatalog returns the embedded catalog unless path points to a replacement.
func loadCatalog(path string) (*plan.Catalog, error) {
	if path == "" {
		return plan.DefaultCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog file")
	}
	defer f.Close()
	catalog, err := plan.LoadCatalog(f)
	if err != nil {
		return nil, errors.Wrap(err, "parse catalog file")
	}
	return catalog, nil
}

func initializeSessionManager(
	dbs *sqlite.Database,
	lifetime time.Duration,
) (*scs.SessionManager, *sqlite3store.SQLite3Store) {
	// The onboarding draft travels in the session between wizard steps.
	gob.Register(onboardingDraft{})

	store := sqlite3store.NewWithCleanupInterval(dbs.ReadWrite, 24*time.Hour) //nolint:mnd // day
	sessionManager := scs.New()
	sessionManager.Store = store
	sessionManager.Lifetime = lifetime
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteStrictMode
	return sessionManager, store
}

func main() {
	ctx := context.Background()
	logger := logging.New(os.Stdout, slog.LevelDebug, nil)
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
