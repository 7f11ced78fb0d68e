// Command runplan manages the active training plan from the terminal. It shares its database with the web
// application.
package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/myrjola/runplan/internal/envstruct"
	"github.com/myrjola/runplan/internal/errors"
	"github.com/myrjola/runplan/internal/logging"
	"github.com/myrjola/runplan/internal/plan"
	"github.com/myrjola/runplan/internal/sqlite"
	"github.com/myrjola/runplan/internal/training"
)

type config struct {
	// SqliteURL is the URL to the SQLite database shared with the web application.
	SqliteURL string `env:"RUNPLAN_SQLITE_URL" envDefault:"./runplan.sqlite3"`
	// CatalogPath optionally replaces the embedded plan catalog with a TOML file.
	CatalogPath string `env:"RUNPLAN_CATALOG_PATH" envDefault:""`
	// NoColor disables colored output.
	NoColor bool `env:"RUNPLAN_NO_COLOR" envDefault:"false"`
	// Debug writes diagnostic logs to stderr.
	Debug bool `env:"RUNPLAN_DEBUG" envDefault:"false"`
}

// cli holds what the commands share. The database is opened on first use so that catalog commands work without one.
type cli struct {
	cfg     config
	stderr  io.Writer
	logger  *slog.Logger
	now     func() time.Time
	catalog *plan.Catalog
	db      *sqlite.Database
	service *training.Service
}

func newCLI(stderr io.Writer, lookupEnv func(string) (string, bool), now func() time.Time) (*cli, error) {
	var cfg config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return nil, errors.Wrap(err, "populate config")
	}
	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	catalog := plan.DefaultCatalog()
	if cfg.CatalogPath != "" {
		f, err := os.Open(cfg.CatalogPath)
		if err != nil {
			return nil, errors.Wrap(err, "open catalog file", slog.String("path", cfg.CatalogPath))
		}
		defer f.Close()
		if catalog, err = plan.LoadCatalog(f); err != nil {
			return nil, errors.Wrap(err, "parse catalog file", slog.String("path", cfg.CatalogPath))
		}
	}
	return &cli{
		cfg:     cfg,
		stderr:  stderr,
		logger:  logging.New(stderr, level, nil),
		now:     now,
		catalog: catalog,
		db:      nil,
		service: nil,
	}, nil
}

// trainingService opens the database on first call.
func (c *cli) trainingService(ctx context.Context) (*training.Service, error) {
	if c.service != nil {
		return c.service, nil
	}
	db, err := sqlite.NewDatabase(ctx, c.cfg.SqliteURL, c.logger)
	if err != nil {
		return nil, errors.Wrap(err, "open db", slog.String("url", c.cfg.SqliteURL))
	}
	c.db = db
	c.service = training.NewService(db, c.logger, c.catalog, c.now)
	return c.service, nil
}

func (c *cli) close() error {
	if c.db == nil {
		return nil
	}
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// withDotEnv layers the variables of an optional .env file under lookupEnv. The process environment wins.
func withDotEnv(path string, lookupEnv func(string) (string, bool)) (func(string) (string, bool), error) {
	fileEnv, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return lookupEnv, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read env file", slog.String("path", path))
	}
	return func(key string) (string, bool) {
		if value, ok := lookupEnv(key); ok {
			return value, true
		}
		value, ok := fileEnv[key]
		return value, ok
	}, nil
}

func run(
	ctx context.Context,
	args []string,
	stdout, stderr io.Writer,
	lookupEnv func(string) (string, bool),
	now func() time.Time,
) (err error) {
	envFile, ok := lookupEnv("RUNPLAN_ENV_FILE")
	if !ok {
		envFile = ".env"
	}
	if lookupEnv, err = withDotEnv(envFile, lookupEnv); err != nil {
		return err
	}
	c, err := newCLI(stderr, lookupEnv, now)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, c.close())
	}()

	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err = root.ExecuteContext(ctx); err != nil {
		return fmt.Errorf("execute command: %w", err)
	}
	return nil
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv, time.Now); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
