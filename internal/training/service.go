// Package training connects the plan engine to storage. It owns the lifecycle of the single active plan.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/runplan/internal/errors"
	"github.com/myrjola/runplan/internal/plan"
	"github.com/myrjola/runplan/internal/sqlite"
)

// Service handles the business logic for training plans.
type Service struct {
	store   PlanStore
	catalog *plan.Catalog
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a training service storing plans in db. now is the clock that decides what "today" is.
func NewService(db *sqlite.Database, logger *slog.Logger, catalog *plan.Catalog, now func() time.Time) *Service {
	return &Service{
		store:   newSQLitePlanStore(db, logger),
		catalog: catalog,
		logger:  logger,
		now:     now,
	}
}

// RunDetails is a run together with everything needed to show it.
type RunDetails struct {
	Run     plan.ScheduledRun
	Summary plan.RunSummary
	// NotesMarkdown holds the coaching notes for the run's workout kind.
	NotesMarkdown string
	// Week is the calendar week of the plan the run falls in, starting at 1.
	Week int
}

func (s *Service) Goals() []plan.Goal {
	return plan.Goals()
}

func (s *Service) Definitions() []plan.Definition {
	return s.catalog.Definitions()
}

func (s *Service) Catalog() *plan.Catalog {
	return s.catalog
}

// Recommend returns the plan definition recommended for goal.
func (s *Service) Recommend(goal plan.Goal) (plan.Definition, error) {
	archetype, err := plan.RecommendPlan(goal)
	if err != nil {
		return plan.Definition{}, fmt.Errorf("recommend plan: %w", err)
	}
	def, ok := s.catalog.Definition(archetype)
	if !ok {
		return plan.Definition{}, errors.Wrap(plan.ErrUnknownArchetype, "recommend plan",
			slog.String("archetype", string(archetype)))
	}
	return def, nil
}

// Preview generates the plan onboarding would create without saving it.
func (s *Service) Preview(_ context.Context, data plan.OnboardingData) (plan.GeneratedPlan, error) {
	p, err := plan.Generate(s.catalog, data, s.now())
	if err != nil {
		return plan.GeneratedPlan{}, fmt.Errorf("generate plan: %w", err)
	}
	return p, nil
}

// Start generates a plan and makes it the active plan, replacing any previous one.
func (s *Service) Start(ctx context.Context, data plan.OnboardingData) (plan.GeneratedPlan, error) {
	p, err := plan.Generate(s.catalog, data, s.now())
	if err != nil {
		return plan.GeneratedPlan{}, fmt.Errorf("generate plan: %w", err)
	}
	if err = s.store.Save(ctx, p); err != nil {
		return plan.GeneratedPlan{}, fmt.Errorf("save plan: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "started plan",
		slog.String("plan_id", p.ID),
		slog.String("goal", string(p.Goal)),
		slog.String("archetype", string(p.Archetype)),
		slog.String("start_date", p.StartDate.Format(time.DateOnly)),
		slog.Int("runs", len(p.Runs)))
	return p, nil
}

// ActivePlan returns the active plan or ErrNotFound.
func (s *Service) ActivePlan(ctx context.Context) (plan.GeneratedPlan, error) {
	p, err := s.store.Load(ctx)
	if err != nil {
		return plan.GeneratedPlan{}, fmt.Errorf("load plan: %w", err)
	}
	return p, nil
}

// ChangeSchedule moves the open part of the active plan to new weekdays. A non-empty archetype also switches the
// plan while keeping history.
func (s *Service) ChangeSchedule(
	ctx context.Context,
	days []time.Weekday,
	archetype plan.Archetype,
) (plan.GeneratedPlan, error) {
	p, err := s.store.Update(ctx, func(existing plan.GeneratedPlan) (plan.GeneratedPlan, error) {
		regenerated, err := plan.Regenerate(s.catalog, existing, archetype, days, s.now())
		if err != nil {
			return plan.GeneratedPlan{}, fmt.Errorf("regenerate plan: %w", err)
		}
		return regenerated, nil
	})
	if err != nil {
		return plan.GeneratedPlan{}, fmt.Errorf("update plan: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "changed schedule",
		slog.String("plan_id", p.ID),
		slog.String("archetype", string(p.Archetype)),
		slog.String("weekdays", plan.FormatWeekdays(p.Weekdays)),
		slog.Int("runs", len(p.Runs)))
	return p, nil
}

// CompleteRun marks a scheduled run as completed.
func (s *Service) CompleteRun(ctx context.Context, runID string) error {
	return s.resolveRun(ctx, runID, plan.StatusCompleted)
}

// SkipRun marks a scheduled run as skipped.
func (s *Service) SkipRun(ctx context.Context, runID string) error {
	return s.resolveRun(ctx, runID, plan.StatusSkipped)
}

func (s *Service) resolveRun(ctx context.Context, runID string, status plan.RunStatus) error {
	if err := s.store.SetRunStatus(ctx, runID, status); err != nil {
		return fmt.Errorf("set run %s %s: %w", runID, status, err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "resolved run",
		slog.String("run_id", runID), slog.String("status", string(status)))
	return nil
}

// Run returns a run of the active plan with its summary and notes.
func (s *Service) Run(ctx context.Context, runID string) (RunDetails, error) {
	p, err := s.store.Load(ctx)
	if err != nil {
		return RunDetails{}, fmt.Errorf("load plan: %w", err)
	}
	run, ok := p.RunByID(runID)
	if !ok {
		return RunDetails{}, fmt.Errorf("find run %s: %w", runID, ErrNotFound)
	}
	summary := plan.Summarize(s.catalog, run)
	week := 0
	for _, g := range plan.GroupByWeek(p) {
		if g.Start.Equal(plan.WeekStart(run.Date)) {
			week = g.Number
		}
	}
	return RunDetails{
		Run:           run,
		Summary:       summary,
		NotesMarkdown: s.catalog.Notes(summary.Kind),
		Week:          week,
	}, nil
}
