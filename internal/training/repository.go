package training

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/myrjola/runplan/internal/errors"
	"github.com/myrjola/runplan/internal/plan"
	"github.com/myrjola/runplan/internal/sqlite"
)

const timestampFormat = "2006-01-02T15:04:05.000Z"

var (
	// ErrNotFound is returned when there is no active plan or the plan has no run with the requested ID.
	ErrNotFound = errors.NewSentinel("not found")
	// ErrRunResolved is returned when changing the status of a run that is already completed or skipped.
	ErrRunResolved = errors.NewSentinel("run already resolved")
)

// PlanStore persists the single active plan.
type PlanStore interface {
	// Load returns the active plan or ErrNotFound.
	Load(ctx context.Context) (plan.GeneratedPlan, error)
	// Save replaces the active plan atomically.
	Save(ctx context.Context, p plan.GeneratedPlan) error
	// Update loads the active plan, passes it to fn and saves the result. No other write lands in between.
	Update(ctx context.Context, fn func(plan.GeneratedPlan) (plan.GeneratedPlan, error)) (plan.GeneratedPlan, error)
	// SetRunStatus moves a scheduled run of the active plan to status.
	SetRunStatus(ctx context.Context, runID string, status plan.RunStatus) error
}

// querier is the part of *sql.DB and *sql.Tx the loaders need.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqlitePlanStore implements PlanStore on the plans and scheduled_runs tables.
type sqlitePlanStore struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func newSQLitePlanStore(db *sqlite.Database, logger *slog.Logger) *sqlitePlanStore {
	return &sqlitePlanStore{
		db:     db,
		logger: logger,
	}
}

func (s *sqlitePlanStore) Load(ctx context.Context) (plan.GeneratedPlan, error) {
	return loadPlan(ctx, s.db.ReadOnly)
}

func loadPlan(ctx context.Context, q querier) (plan.GeneratedPlan, error) {
	var (
		p                               plan.GeneratedPlan
		goal, archetype, weekdays       string
		startDate, createdAt, updatedAt string
		fiveK, tenK                     int
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, goal, archetype, start_date, weekdays, five_k_seconds, ten_k_seconds, created_at, updated_at
		FROM plans
		ORDER BY updated_at DESC
		LIMIT 1`).Scan(&p.ID, &goal, &archetype, &startDate, &weekdays, &fiveK, &tenK, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return plan.GeneratedPlan{}, ErrNotFound
	}
	if err != nil {
		return plan.GeneratedPlan{}, fmt.Errorf("query plan: %w", err)
	}

	p.Goal = plan.Goal(goal)
	p.Archetype = plan.Archetype(archetype)
	p.PersonalBests = plan.PersonalBests{FiveK: fiveK, TenK: tenK}
	if p.Weekdays, err = parseWeekdayNumbers(weekdays); err != nil {
		return plan.GeneratedPlan{}, fmt.Errorf("parse weekdays: %w", err)
	}
	if p.StartDate, err = time.Parse(time.DateOnly, startDate); err != nil {
		return plan.GeneratedPlan{}, fmt.Errorf("parse start date: %w", err)
	}
	if p.CreatedAt, err = time.Parse(timestampFormat, createdAt); err != nil {
		return plan.GeneratedPlan{}, fmt.Errorf("parse created at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(timestampFormat, updatedAt); err != nil {
		return plan.GeneratedPlan{}, fmt.Errorf("parse updated at: %w", err)
	}
	if p.Runs, err = loadRuns(ctx, q, p.ID); err != nil {
		return plan.GeneratedPlan{}, fmt.Errorf("load runs: %w", err)
	}
	return p, nil
}

func loadRuns(ctx context.Context, q querier, planID string) (_ []plan.ScheduledRun, err error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, run_date, archetype, week, day, status, target_pace_seconds
		FROM scheduled_runs
		WHERE plan_id = ?
		ORDER BY run_date`, planID)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var runs []plan.ScheduledRun
	for rows.Next() {
		var (
			run             plan.ScheduledRun
			date, archetype string
			status          string
		)
		if err = rows.Scan(&run.ID, &date, &archetype, &run.Template.Week, &run.Template.Day, &status,
			&run.TargetPaceSeconds); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.Date, err = time.Parse(time.DateOnly, date); err != nil {
			return nil, fmt.Errorf("parse run date: %w", err)
		}
		run.Template.Archetype = plan.Archetype(archetype)
		run.Status = plan.RunStatus(status)
		runs = append(runs, run)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return runs, nil
}

// Save replaces the stored plan and its runs in one transaction. Any other stored plan is removed so that only
// one plan is ever active. On failure the previous plan stays untouched.
func (s *sqlitePlanStore) Save(ctx context.Context, p plan.GeneratedPlan) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return savePlan(ctx, tx, p)
	})
}

// Update runs fn on the active plan inside a write transaction. The read-write pool has a single connection and
// begins transactions immediately, so status changes wait until the updated plan is committed.
func (s *sqlitePlanStore) Update(
	ctx context.Context,
	fn func(plan.GeneratedPlan) (plan.GeneratedPlan, error),
) (plan.GeneratedPlan, error) {
	var updated plan.GeneratedPlan
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := loadPlan(ctx, tx)
		if err != nil {
			return err
		}
		if updated, err = fn(existing); err != nil {
			return err
		}
		return savePlan(ctx, tx, updated)
	})
	if err != nil {
		return plan.GeneratedPlan{}, err
	}
	return updated, nil
}

func (s *sqlitePlanStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.LogAttrs(ctx, slog.LevelError, "rollback transaction", slog.Any("error", rollbackErr))
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func savePlan(ctx context.Context, tx *sql.Tx, p plan.GeneratedPlan) (err error) {
	if _, err = tx.ExecContext(ctx, `DELETE FROM plans WHERE id <> ?`, p.ID); err != nil {
		return fmt.Errorf("delete other plans: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO plans (
			id, goal, archetype, start_date, weekdays, five_k_seconds, ten_k_seconds, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			goal = excluded.goal,
			archetype = excluded.archetype,
			start_date = excluded.start_date,
			weekdays = excluded.weekdays,
			five_k_seconds = excluded.five_k_seconds,
			ten_k_seconds = excluded.ten_k_seconds,
			updated_at = excluded.updated_at`,
		p.ID, string(p.Goal), string(p.Archetype), p.StartDate.Format(time.DateOnly),
		formatWeekdayNumbers(p.Weekdays), p.PersonalBests.FiveK, p.PersonalBests.TenK,
		p.CreatedAt.UTC().Format(timestampFormat), p.UpdatedAt.UTC().Format(timestampFormat),
	); err != nil {
		return fmt.Errorf("upsert plan: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM scheduled_runs WHERE plan_id = ?`, p.ID); err != nil {
		return fmt.Errorf("delete runs: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scheduled_runs (id, plan_id, run_date, archetype, week, day, status, target_pace_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert run: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close statement: %w", closeErr))
		}
	}()
	for _, run := range p.Runs {
		if _, err = stmt.ExecContext(ctx, run.ID, p.ID, run.Date.Format(time.DateOnly),
			string(run.Template.Archetype), run.Template.Week, run.Template.Day, string(run.Status),
			run.TargetPaceSeconds); err != nil {
			return errors.Wrap(err, "insert run",
				slog.String("run_id", run.ID), slog.String("date", run.Date.Format(time.DateOnly)))
		}
	}
	return nil
}

func (s *sqlitePlanStore) SetRunStatus(ctx context.Context, runID string, status plan.RunStatus) error {
	if status != plan.StatusCompleted && status != plan.StatusSkipped {
		return errors.Wrap(plan.ErrInvalidInput, "run status must be completed or skipped",
			slog.String("status", string(status)))
	}

	result, err := s.db.ReadWrite.ExecContext(ctx, `
		UPDATE scheduled_runs
		SET status = ?
		WHERE id = ? AND status = 'scheduled'`, string(status), runID)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var current string
	err = s.db.ReadOnly.QueryRowContext(ctx, `SELECT status FROM scheduled_runs WHERE id = ?`, runID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query run status: %w", err)
	}
	return errors.Wrap(ErrRunResolved, "set run status", slog.String("status", current))
}

// formatWeekdayNumbers stores weekdays as comma-separated numbers with Sunday as 0.
func formatWeekdayNumbers(days []time.Weekday) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(int(d)))
	}
	return strings.Join(parts, ",")
}

func parseWeekdayNumbers(s string) ([]time.Weekday, error) {
	var days []time.Weekday
	for part := range strings.SplitSeq(s, ",") {
		n, err := strconv.Atoi(part)
		if err != nil || n < int(time.Sunday) || n > int(time.Saturday) {
			return nil, errors.New("invalid weekday number", slog.String("value", part))
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}
