package training_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/runplan/internal/plan"
	"github.com/myrjola/runplan/internal/sqlite"
	"github.com/myrjola/runplan/internal/testhelpers"
	"github.com/myrjola/runplan/internal/training"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

func newTestService(t *testing.T, c *clock) *training.Service {
	t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := sqlite.NewDatabase(t.Context(), ":memory:", logger)
	if err != nil {
		t.Fatalf("create database: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("close database: %v", err)
		}
	})
	return training.NewService(db, logger, plan.DefaultCatalog(), c.Now)
}

func TestService_Recommend(t *testing.T) {
	svc := newTestService(t, &clock{now: time.Now()})
	def, err := svc.Recommend(plan.GoalImprove10K)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if def.Archetype != plan.ArchetypeTenKImprover || def.Name == "" {
		t.Errorf("Recommend() = %q (%q), want %q", def.Archetype, def.Name, plan.ArchetypeTenKImprover)
	}
	if _, err = svc.Recommend("couch"); !errors.Is(err, plan.ErrUnsupportedGoal) {
		t.Errorf("Recommend(couch) error = %v, want %v", err, plan.ErrUnsupportedGoal)
	}
	if got := len(svc.Definitions()); got != 3 {
		t.Errorf("len(Definitions()) = %d, want 3", got)
	}
}

func TestService_lifecycle(t *testing.T) {
	ctx := t.Context()
	c := &clock{now: time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)}
	svc := newTestService(t, c)
	data := plan.OnboardingData{
		Goal:          plan.GoalRunConsistently,
		Weekdays:      []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		PersonalBests: plan.PersonalBests{FiveK: 1500, TenK: 0},
	}

	preview, err := svc.Preview(ctx, data)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if len(preview.Runs) != 12 {
		t.Errorf("Preview() has %d runs, want 12", len(preview.Runs))
	}
	if _, err = svc.ActivePlan(ctx); !errors.Is(err, training.ErrNotFound) {
		t.Fatalf("ActivePlan() after Preview() error = %v, want %v", err, training.ErrNotFound)
	}

	started, err := svc.Start(ctx, data)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	active, err := svc.ActivePlan(ctx)
	if err != nil {
		t.Fatalf("ActivePlan() error = %v", err)
	}
	if diff := cmp.Diff(started, active); diff != "" {
		t.Errorf("ActivePlan() mismatch (-started +active):\n%s", diff)
	}

	// Week one goes by: Monday done, Wednesday skipped, Friday forgotten.
	if err = svc.CompleteRun(ctx, active.Runs[0].ID); err != nil {
		t.Fatalf("CompleteRun() error = %v", err)
	}
	if err = svc.SkipRun(ctx, active.Runs[1].ID); err != nil {
		t.Fatalf("SkipRun() error = %v", err)
	}
	if err = svc.CompleteRun(ctx, active.Runs[1].ID); !errors.Is(err, training.ErrRunResolved) {
		t.Errorf("CompleteRun() on skipped run error = %v, want %v", err, training.ErrRunResolved)
	}
	if err = svc.SkipRun(ctx, "missing"); !errors.Is(err, training.ErrNotFound) {
		t.Errorf("SkipRun(missing) error = %v, want %v", err, training.ErrNotFound)
	}

	c.now = time.Date(2026, 10, 26, 8, 0, 0, 0, time.UTC)
	changed, err := svc.ChangeSchedule(ctx, []time.Weekday{time.Tuesday, time.Thursday, time.Saturday}, "")
	if err != nil {
		t.Fatalf("ChangeSchedule() error = %v", err)
	}
	if got := len(changed.Runs); got != 12 {
		t.Errorf("ChangeSchedule() has %d runs, want 12", got)
	}
	history := []plan.RunStatus{plan.StatusCompleted, plan.StatusSkipped, plan.StatusScheduled}
	for i, want := range history {
		if got := changed.Runs[i]; got.ID != active.Runs[i].ID || got.Status != want {
			t.Errorf("history run %d = %s %q, want %s %q", i, got.ID, got.Status, active.Runs[i].ID, want)
		}
	}
	for _, run := range changed.Runs[3:] {
		switch run.Date.Weekday() {
		case time.Tuesday, time.Thursday, time.Saturday:
		default:
			t.Errorf("regenerated run %s on %s", run.Template, run.Date.Weekday())
		}
	}
	reloaded, err := svc.ActivePlan(ctx)
	if err != nil {
		t.Fatalf("ActivePlan() error = %v", err)
	}
	if diff := cmp.Diff(changed, reloaded); diff != "" {
		t.Errorf("stored plan differs from ChangeSchedule() result (-want +got):\n%s", diff)
	}

	if _, err = svc.ChangeSchedule(ctx, nil, ""); !errors.Is(err, plan.ErrInvalidInput) {
		t.Errorf("ChangeSchedule() without days error = %v, want %v", err, plan.ErrInvalidInput)
	}
}

func TestService_Run(t *testing.T) {
	ctx := t.Context()
	svc := newTestService(t, &clock{now: time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)})
	p, err := svc.Start(ctx, plan.OnboardingData{
		Goal:          plan.GoalImprove5K,
		Weekdays:      []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		PersonalBests: plan.PersonalBests{FiveK: 1500, TenK: 0},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	last := p.Runs[len(p.Runs)-1]
	details, err := svc.Run(ctx, last.ID)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if details.Summary.Title != "5K time trial" || details.Summary.Pace != "5:00/km" {
		t.Errorf("Run() summary = %+v", details.Summary)
	}
	if details.Week != 6 {
		t.Errorf("Run() week = %d, want 6", details.Week)
	}
	if !strings.Contains(details.NotesMarkdown, "Record your time") {
		t.Errorf("Run() notes = %q, want time trial notes", details.NotesMarkdown)
	}

	if _, err = svc.Run(ctx, "missing"); !errors.Is(err, training.ErrNotFound) {
		t.Errorf("Run(missing) error = %v, want %v", err, training.ErrNotFound)
	}
}

func TestService_Start_invalidInput(t *testing.T) {
	svc := newTestService(t, &clock{now: time.Now()})
	_, err := svc.Start(t.Context(), plan.OnboardingData{Goal: plan.GoalImprove5K, Weekdays: nil})
	if !errors.Is(err, plan.ErrInvalidInput) {
		t.Errorf("Start() error = %v, want %v", err, plan.ErrInvalidInput)
	}
	if _, err = svc.ActivePlan(t.Context()); !errors.Is(err, training.ErrNotFound) {
		t.Errorf("ActivePlan() after failed Start() error = %v, want %v", err, training.ErrNotFound)
	}
}
