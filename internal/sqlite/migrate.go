package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/runplan/internal/errors"
)

// objectType is a kind of row in sqlite_schema.
type objectType string

const (
	objectTable   objectType = "table"
	objectIndex   objectType = "index"
	objectTrigger objectType = "trigger"
)

// Queries comparing the live schema (main) with the target schema attached as schemaTarget. Internal SQLite
// objects are never touched.
const (
	queryRemovedObjects = `SELECT live.name
FROM sqlite_schema AS live
         LEFT JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
WHERE live.type = :type
  AND target.type IS NULL
  AND live.name NOT LIKE 'sqlite_%'`

	queryAddedObjects = `SELECT target.sql
FROM schemaTarget.sqlite_schema AS target
         LEFT JOIN sqlite_schema AS live ON live.name = target.name AND live.type = target.type
WHERE target.type = :type
  AND live.type IS NULL
  AND target.name NOT LIKE 'sqlite_%'`

	// Renaming a table quotes its name in sqlite_schema so quotes are ignored in the comparison.
	queryChangedObjects = `SELECT live.name, live.sql, target.sql
FROM sqlite_schema AS live
         JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
WHERE live.type = :type
  AND live.name NOT LIKE 'sqlite_%'
  AND REPLACE(live.sql, '"', '') <> REPLACE(target.sql, '"', '')`

	// Column names are quoted because they may be SQLite keywords.
	querySharedColumns = `SELECT '"' || target.name || '"'
FROM PRAGMA_TABLE_INFO(:table) AS live
         JOIN PRAGMA_TABLE_INFO(:table, 'schemaTarget') AS target ON target.name = live.name`
)

// migrateTo makes the live schema match target declaratively.
//
// Removed tables are dropped, new tables created and changed tables rebuilt following the generalized ALTER TABLE
// procedure at https://www.sqlite.org/lang_altertable.html#otheralter, keeping the columns both versions share.
// Indexes and triggers are then synchronised. The approach follows
// https://david.rothlis.net/declarative-schema-migration-for-sqlite/.
func (db *Database) migrateTo(ctx context.Context, target string) (err error) {
	start := time.Now()

	detach, err := db.attachTarget(ctx, target)
	if err != nil {
		return fmt.Errorf("attach target schema: %w", err)
	}
	defer detach()

	// Rebuilding a table temporarily breaks references to it.
	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		if _, fkErr := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); fkErr != nil {
			err = errors.Join(err, fmt.Errorf("enable foreign keys: %w", fkErr))
		}
	}()

	tx, err := db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer db.rollback(ctx, tx)

	if err = db.migrateTables(ctx, tx); err != nil {
		return fmt.Errorf("migrate tables: %w", err)
	}
	for _, typ := range []objectType{objectTrigger, objectIndex} {
		if err = db.syncObjects(ctx, tx, typ); err != nil {
			return fmt.Errorf("migrate %ss: %w", typ, err)
		}
	}
	violations, err := queryRows(ctx, tx, func(rows *sql.Rows) (string, error) {
		var (
			table, parent string
			rowID         sql.NullInt64
			fkID          int
		)
		err := rows.Scan(&table, &rowID, &parent, &fkID)
		return table + "->" + parent, err //nolint:wrapcheck // wrapped by queryRows.
	}, "PRAGMA main.foreign_key_check")
	if err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	if len(violations) > 0 {
		return errors.New("foreign key violations after migration",
			slog.String("tables", strings.Join(violations, ",")))
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database", slog.Duration("duration", time.Since(start)))
	return nil
}

// attachTarget creates the target schema in a scratch in-memory database and attaches it as schemaTarget.
// The returned function detaches it again.
func (db *Database) attachTarget(ctx context.Context, target string) (func(), error) {
	name := fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	scratch, err := sql.Open("sqlite3", name)
	if err != nil {
		return nil, fmt.Errorf("open scratch database: %w", err)
	}
	// The shared cache keeps the in-memory database alive while it is attached.
	defer func() {
		if closeErr := scratch.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close scratch database",
				slog.Any("error", closeErr))
		}
	}()
	if _, err = scratch.ExecContext(ctx, target); err != nil {
		return nil, fmt.Errorf("create target schema: %w", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", name); err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	return func() {
		if _, detachErr := db.ReadWrite.ExecContext(ctx, "DETACH DATABASE schemaTarget"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to detach target schema",
				slog.Any("error", detachErr))
		}
	}, nil
}

func (db *Database) rollback(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to roll back transaction",
			slog.Any("error", fmt.Errorf("rollback: %w", err)))
	}
}

func (db *Database) migrateTables(ctx context.Context, tx *sql.Tx) error {
	removed, err := queryColumn(ctx, tx, queryRemovedObjects, sql.Named("type", objectTable))
	if err != nil {
		return fmt.Errorf("query removed tables: %w", err)
	}
	for _, table := range removed {
		if err = db.exec(ctx, tx, "dropping table", fmt.Sprintf("DROP TABLE %s;", table)); err != nil {
			return err
		}
	}

	added, err := queryColumn(ctx, tx, queryAddedObjects, sql.Named("type", objectTable))
	if err != nil {
		return fmt.Errorf("query added tables: %w", err)
	}
	for _, createSQL := range added {
		if err = db.exec(ctx, tx, "creating table", createSQL); err != nil {
			return err
		}
	}

	changed, err := queryChanges(ctx, tx, objectTable)
	if err != nil {
		return fmt.Errorf("query changed tables: %w", err)
	}
	for _, c := range changed {
		if err = db.rebuildTable(ctx, tx, c); err != nil {
			return fmt.Errorf("rebuild %s: %w", c.name, err)
		}
	}
	return nil
}

// rebuildTable recreates a table with its new definition and copies over the columns that survive.
func (db *Database) rebuildTable(ctx context.Context, tx *sql.Tx, c schemaChange) error {
	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrating table",
		slog.String("table", c.name), slog.String("live_sql", c.liveSQL), slog.String("new_sql", c.targetSQL))

	temp := c.name + "_migration_temp"
	if err := db.exec(ctx, tx, "creating table", strings.Replace(c.targetSQL, c.name, temp, 1)); err != nil {
		return err
	}
	columns, err := queryColumn(ctx, tx, querySharedColumns, sql.Named("table", c.name))
	if err != nil {
		return fmt.Errorf("query shared columns: %w", err)
	}
	list := strings.Join(columns, ", ")
	steps := []string{
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s;", temp, list, list, c.name),
		fmt.Sprintf("DROP TABLE %s;", c.name),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s;", temp, c.name),
	}
	for _, step := range steps {
		if err = db.exec(ctx, tx, "rebuilding table", step); err != nil {
			return err
		}
	}
	return nil
}

// syncObjects drops, creates and recreates objects of typ so they match the target schema.
func (db *Database) syncObjects(ctx context.Context, tx *sql.Tx, typ objectType) error {
	keyword := strings.ToUpper(string(typ))

	removed, err := queryColumn(ctx, tx, queryRemovedObjects, sql.Named("type", typ))
	if err != nil {
		return fmt.Errorf("query removed: %w", err)
	}
	for _, name := range removed {
		if err = db.exec(ctx, tx, "dropping", fmt.Sprintf("DROP %s %s;", keyword, name)); err != nil {
			return err
		}
	}

	added, err := queryColumn(ctx, tx, queryAddedObjects, sql.Named("type", typ))
	if err != nil {
		return fmt.Errorf("query added: %w", err)
	}
	for _, createSQL := range added {
		if err = db.exec(ctx, tx, "creating", createSQL); err != nil {
			return err
		}
	}

	changed, err := queryChanges(ctx, tx, typ)
	if err != nil {
		return fmt.Errorf("query changed: %w", err)
	}
	for _, c := range changed {
		if err = db.exec(ctx, tx, "dropping changed", fmt.Sprintf("DROP %s %s;", keyword, c.name)); err != nil {
			return err
		}
		if err = db.exec(ctx, tx, "recreating changed", c.targetSQL); err != nil {
			return err
		}
	}
	return nil
}

// exec logs and runs one migration statement.
func (db *Database) exec(ctx context.Context, tx *sql.Tx, msg, query string) error {
	db.logger.LogAttrs(ctx, slog.LevelInfo, msg, slog.String("query", query))
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return errors.Wrap(err, msg, slog.String("query", query))
	}
	return nil
}

type schemaChange struct {
	name      string
	liveSQL   string
	targetSQL string
}

func queryChanges(ctx context.Context, tx *sql.Tx, typ objectType) ([]schemaChange, error) {
	return queryRows(ctx, tx, func(rows *sql.Rows) (schemaChange, error) {
		var c schemaChange
		err := rows.Scan(&c.name, &c.liveSQL, &c.targetSQL)
		return c, err //nolint:wrapcheck // wrapped by queryRows.
	}, queryChangedObjects, sql.Named("type", typ))
}

// queryColumn returns the single text column of every row of the query.
func queryColumn(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	return queryRows(ctx, tx, func(rows *sql.Rows) (string, error) {
		var s string
		err := rows.Scan(&s)
		return s, err //nolint:wrapcheck // wrapped by queryRows.
	}, query, args...)
}

func queryRows[T any](
	ctx context.Context,
	tx *sql.Tx,
	scan func(*sql.Rows) (T, error),
	query string,
	args ...any,
) (_ []T, err error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()
	var out []T
	for rows.Next() {
		v, scanErr := scan(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan: %w", scanErr)
		}
		out = append(out, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
