package sqlite

import (
	"log/slog"
	"testing"

	"github.com/myrjola/runplan/internal/testhelpers"
)

func TestDatabase_migrate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name              string
		schemaDefinitions []string
		testQueries       []string
		wantErr           bool
	}{
		{
			name:              "empty schema",
			schemaDefinitions: []string{""},
			testQueries:       []string{"SELECT * FROM sqlite_schema"},
			wantErr:           false,
		},
		{
			name:              "create table",
			schemaDefinitions: []string{"CREATE TABLE workouts (id INTEGER PRIMARY KEY, title TEXT)"},
			testQueries: []string{
				"INSERT INTO workouts (title) VALUES ('Easy run')",
				"SELECT * FROM workouts",
			},
			wantErr: false,
		},
		{
			name: "drop table",
			schemaDefinitions: []string{
				"CREATE TABLE workouts (id INTEGER PRIMARY KEY, title TEXT)",
				"", // drop table
			},
			testQueries: []string{"INSERT INTO workouts (title) VALUES ('Easy run')"},
			wantErr:     true,
		},
		{
			name: "add column",
			schemaDefinitions: []string{
				"CREATE TABLE workouts (id INTEGER PRIMARY KEY)",
				"CREATE TABLE workouts (id INTEGER PRIMARY KEY, title TEXT)",
			},
			testQueries: []string{"INSERT INTO workouts (title) VALUES ('Easy run')"},
			wantErr:     false,
		},
		{
			name: "remove column",
			schemaDefinitions: []string{
				"CREATE TABLE workouts (id INTEGER PRIMARY KEY)",
				"CREATE TABLE workouts (id INTEGER PRIMARY KEY, title TEXT)",
				"CREATE TABLE workouts (id INTEGER PRIMARY KEY)",
			},
			testQueries: []string{"INSERT INTO workouts (title) VALUES ('Easy run')"},
			wantErr:     true,
		},
		{
			name: "create index",
			schemaDefinitions: []string{
				"CREATE TABLE workouts (id INTEGER PRIMARY KEY, title TEXT); CREATE INDEX workouts_title_idx ON workouts (title)",
			},
			testQueries: []string{"DROP INDEX workouts_title_idx"},
			wantErr:     false,
		},
		{
			name: "drop index",
			schemaDefinitions: []string{
				"CREATE TABLE workouts (id INTEGER PRIMARY KEY, title TEXT); CREATE INDEX workouts_title_idx ON workouts (title)",
				"CREATE TABLE workouts (id INTEGER PRIMARY KEY, title TEXT)",
			},
			testQueries: []string{"DROP INDEX workouts_title_idx"},
			wantErr:     true,
		},
		{
			name: "update index",
			schemaDefinitions: []string{
				"CREATE TABLE workouts (id INTEGER PRIMARY KEY, title TEXT); CREATE INDEX workouts_title_idx ON workouts (title)",
				"CREATE TABLE workouts (id INTEGER PRIMARY KEY, title TEXT); CREATE INDEX workouts_title_idx ON workouts (id, title)",
			},
			testQueries: []string{"DROP INDEX workouts_title_idx"},
			wantErr:     false,
		},
		{
			name: "add column with default",
			schemaDefinitions: []string{
				"CREATE TABLE runs (id TEXT PRIMARY KEY, week INTEGER)",
				"CREATE TABLE runs (id TEXT PRIMARY KEY, week INTEGER, status TEXT NOT NULL DEFAULT 'scheduled')",
			},
			testQueries: []string{"INSERT INTO runs (id, week) VALUES ('a', 1)"},
			wantErr:     false,
		},
		{
			name: "create trigger",
			schemaDefinitions: []string{
				`CREATE TABLE workouts ( id   INTEGER PRIMARY KEY, title TEXT );
                 CREATE TRIGGER workouts_guard AFTER INSERT ON workouts BEGIN SELECT RAISE ( FAIL, 'fail' ); END;`,
			},
			testQueries: []string{"INSERT INTO workouts (title) VALUES ('Easy run')"},
			wantErr:     true,
		},
		{
			name: "delete trigger",
			schemaDefinitions: []string{
				`CREATE TABLE workouts ( id   INTEGER PRIMARY KEY, title TEXT );
                 CREATE TRIGGER workouts_guard AFTER INSERT ON workouts BEGIN SELECT RAISE ( FAIL, 'fail' ); END;`,
				"CREATE TABLE workouts ( id   INTEGER PRIMARY KEY, title TEXT )",
			},
			testQueries: []string{"INSERT INTO workouts (title) VALUES ('Easy run')"},
			wantErr:     false,
		},
		{
			name: "update trigger",
			schemaDefinitions: []string{
				`CREATE TABLE workouts ( id   INTEGER PRIMARY KEY, title TEXT );
                 CREATE TRIGGER workouts_guard AFTER INSERT ON workouts BEGIN SELECT RAISE ( FAIL, 'fail' ); END;`,
				`CREATE TABLE workouts ( id   INTEGER PRIMARY KEY, title TEXT );
                 CREATE TRIGGER workouts_guard AFTER INSERT ON workouts BEGIN SELECT 1; END;`,
			},
			testQueries: []string{"INSERT INTO workouts (title) VALUES ('Easy run')"},
			wantErr:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := t.Context()
			logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
			db, err := connect(ctx, ":memory:", logger)
			if err != nil {
				t.Fatalf("Failed to connect to database: %v", err)
			}
			defer func(db *Database) {
				err = db.Close()
				if err != nil {
					t.Errorf("Failed to close database: %v", err)
				}
			}(db)

			for _, schemaDefinition := range tt.schemaDefinitions {
				logger.LogAttrs(ctx, slog.LevelInfo, "migrating", slog.String("schema", schemaDefinition))
				err = db.migrateTo(ctx, schemaDefinition)
				if err != nil {
					t.Fatalf("Failed to migrate: %v", err)
				}
			}

			for _, query := range tt.testQueries {
				logger.LogAttrs(ctx, slog.LevelInfo, "executing", slog.String("query", query))
				_, err = db.ReadWrite.ExecContext(ctx, query)
				if tt.wantErr && err == nil {
					t.Errorf("Expected error for query %q, but got none", query)
				}
				if !tt.wantErr && err != nil {
					t.Errorf("Unexpected error for query %q: %v", query, err)
				}
			}
		})
	}
}

func TestDatabase_migrateKeepsData(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	db, err := connect(ctx, ":memory:", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})

	if err = db.migrateTo(ctx, "CREATE TABLE runs (id TEXT PRIMARY KEY, week INTEGER, legacy TEXT)"); err != nil {
		t.Fatalf("migrate v1: %v", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "INSERT INTO runs VALUES ('a', 2, 'x')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err = db.migrateTo(ctx,
		"CREATE TABLE runs (id TEXT PRIMARY KEY, week INTEGER, status TEXT NOT NULL DEFAULT 'scheduled')"); err != nil {
		t.Fatalf("migrate v2: %v", err)
	}

	var (
		week   int
		status string
	)
	if err = db.ReadOnly.QueryRowContext(ctx, "SELECT week, status FROM runs WHERE id = 'a'").Scan(
		&week, &status); err != nil {
		t.Fatalf("select: %v", err)
	}
	if week != 2 || status != "scheduled" {
		t.Errorf("got week %d status %q, want week 2 status %q", week, status, "scheduled")
	}
}

func TestNewDatabase(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	db, err := NewDatabase(ctx, ":memory:", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})

	// Migrating an up-to-date database changes nothing.
	if err = db.migrateTo(ctx, schemaDefinition); err != nil {
		t.Fatalf("migrate again: %v", err)
	}

	stmts := []struct {
		query   string
		wantErr bool
	}{
		{query: `INSERT INTO plans (id, archetype, start_date, weekdays) VALUES ('p', 'base_builder', '2026-10-19', '1,3,5')`},
		{query: `INSERT INTO scheduled_runs (id, plan_id, run_date, archetype, week, day)
			VALUES ('r1', 'p', '2026-10-19', 'base_builder', 1, 1)`},
		// One run per date.
		{query: `INSERT INTO scheduled_runs (id, plan_id, run_date, archetype, week, day)
			VALUES ('r2', 'p', '2026-10-19', 'base_builder', 1, 2)`, wantErr: true},
		{query: `UPDATE scheduled_runs SET status = 'postponed' WHERE id = 'r1'`, wantErr: true},
		{query: `INSERT INTO scheduled_runs (id, plan_id, run_date, archetype, week, day)
			VALUES ('r3', 'missing', '2026-10-21', 'base_builder', 1, 2)`, wantErr: true},
		{query: `DELETE FROM plans WHERE id = 'p'`},
	}
	for _, stmt := range stmts {
		_, err = db.ReadWrite.ExecContext(ctx, stmt.query)
		if stmt.wantErr != (err != nil) {
			t.Errorf("exec %q: err = %v, wantErr %t", stmt.query, err, stmt.wantErr)
		}
	}

	var runs int
	if err = db.ReadOnly.QueryRowContext(ctx, "SELECT COUNT(*) FROM scheduled_runs").Scan(&runs); err != nil {
		t.Fatalf("count runs: %v", err)
	}
	if runs != 0 {
		t.Errorf("%d runs left after deleting their plan, want 0", runs)
	}
}
