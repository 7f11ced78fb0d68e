// Package plan generates and regenerates multi-week running plans.
//
// Everything in this package is a pure function of its inputs. Callers load and persist [GeneratedPlan] values
// themselves and may call into the package from any goroutine.
package plan

import (
	"fmt"
	"time"

	"github.com/myrjola/runplan/internal/errors"
)

var (
	// ErrInvalidInput tags structurally invalid input such as an empty weekday selection.
	ErrInvalidInput = errors.NewSentinel("invalid input")
	// ErrUnsupportedGoal is returned when a goal has no recommended archetype.
	ErrUnsupportedGoal = errors.NewSentinel("unsupported goal")
	// ErrUnknownArchetype is returned when an archetype is missing from the catalog.
	ErrUnknownArchetype = errors.NewSentinel("unknown archetype")
)

// Goal is what the user wants to achieve. It picks the recommended [Archetype].
type Goal string

const (
	GoalRunConsistently Goal = "run_consistently"
	GoalImprove5K       Goal = "improve_5k"
	GoalImprove10K      Goal = "improve_10k"
	GoalHalfMarathon    Goal = "half_marathon"
)

// Archetype identifies a plan definition in the [Catalog].
type Archetype string

const (
	ArchetypeBaseBuilder    Archetype = "base_builder"
	ArchetypeFiveKTimeTrial Archetype = "five_k_time_trial"
	ArchetypeTenKImprover   Archetype = "ten_k_improver"
)

// Zone is a heart-rate training zone from Z1 to Z5.
type Zone int

const (
	Zone1 Zone = iota + 1
	Zone2
	Zone3
	Zone4
	Zone5
)

func (z Zone) Valid() bool {
	return z >= Zone1 && z <= Zone5
}

func (z Zone) String() string {
	return fmt.Sprintf("Z%d", int(z))
}

// Kind is the workout type and doubles as its intensity label.
type Kind string

const (
	KindRecovery  Kind = "recovery"
	KindEasy      Kind = "easy"
	KindLong      Kind = "long"
	KindTempo     Kind = "tempo"
	KindIntervals Kind = "intervals"
	KindTimeTrial Kind = "time_trial"
)

func (k Kind) Valid() bool {
	switch k {
	case KindRecovery, KindEasy, KindLong, KindTempo, KindIntervals, KindTimeTrial:
		return true
	}
	return false
}

// Intensity is a human-readable label for the effort of a workout kind.
func (k Kind) Intensity() string {
	switch k {
	case KindRecovery:
		return "very light"
	case KindEasy, KindLong:
		return "easy"
	case KindTempo:
		return "moderately hard"
	case KindIntervals:
		return "hard"
	case KindTimeTrial:
		return "maximal"
	}
	return "unknown"
}

// PaceRef names the personal best a template calibrates its target pace against.
type PaceRef string

const (
	PaceRefNone PaceRef = ""
	PaceRef5K   PaceRef = "5k"
	PaceRef10K  PaceRef = "10k"
)

// TemplateRef identifies a workout template within the catalog.
type TemplateRef struct {
	Archetype Archetype
	// Week is the 1-based week within the archetype.
	Week int
	// Day is the 1-based session position within the week.
	Day int
}

func (r TemplateRef) String() string {
	return fmt.Sprintf("%s/w%d/d%d", r.Archetype, r.Week, r.Day)
}

// WorkoutTemplate is a catalog-owned workout prescription. It is never mutated after the catalog is loaded.
type WorkoutTemplate struct {
	Ref   TemplateRef
	Title string
	// DurationSeconds is the target duration. Nil for open-ended workouts such as time trials.
	DurationSeconds *int
	// Zone is the target heart-rate zone. Nil when effort is prescribed by pace instead.
	Zone *Zone
	Kind Kind
	// DistanceKm is set for distance-based workouts.
	DistanceKm float64
	PaceRef    PaceRef
	// PaceFactor multiplies the personal-best pace, e.g. 1.15 for 15 % slower.
	PaceFactor float64
}

// RunStatus is the lifecycle state of a scheduled run. Completed and skipped are terminal.
type RunStatus string

const (
	StatusScheduled RunStatus = "scheduled"
	StatusCompleted RunStatus = "completed"
	StatusSkipped   RunStatus = "skipped"
)

func (s RunStatus) Valid() bool {
	return s == StatusScheduled || s == StatusCompleted || s == StatusSkipped
}

// ScheduledRun is a dated instance of a workout template.
type ScheduledRun struct {
	ID       string
	Date     time.Time
	Template TemplateRef
	Status   RunStatus
	// TargetPaceSeconds is seconds per kilometre calibrated from personal bests, 0 when unknown.
	TargetPaceSeconds int
}

// PersonalBests holds race times in seconds. Zero means unknown.
type PersonalBests struct {
	FiveK int
	TenK  int
}

// GeneratedPlan is the aggregate root handed to and returned from the generator and regenerator.
type GeneratedPlan struct {
	ID            string
	Goal          Goal
	Archetype     Archetype
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartDate     time.Time
	Weekdays      []time.Weekday
	PersonalBests PersonalBests
	// Runs are in chronological order with at most one run per date.
	Runs []ScheduledRun
}

// OnboardingData is what the user confirms at the end of onboarding.
type OnboardingData struct {
	Goal Goal
	// Archetype overrides the recommendation for Goal when set.
	Archetype     Archetype
	Weekdays      []time.Weekday
	StartDate     time.Time
	PersonalBests PersonalBests
}

// RunByID returns the run with the given id.
func (p GeneratedPlan) RunByID(id string) (ScheduledRun, bool) {
	for _, run := range p.Runs {
		if run.ID == id {
			return run, true
		}
	}
	return ScheduledRun{}, false
}

// NextRun returns the first scheduled run on or after today.
func (p GeneratedPlan) NextRun(today time.Time) (ScheduledRun, bool) {
	today = Day(today)
	for _, run := range p.Runs {
		if run.Status == StatusScheduled && !run.Date.Before(today) {
			return run, true
		}
	}
	return ScheduledRun{}, false
}

// Progress counts resolved runs against the plan size.
func (p GeneratedPlan) Progress() (completed, skipped, total int) {
	for _, run := range p.Runs {
		switch run.Status {
		case StatusCompleted:
			completed++
		case StatusSkipped:
			skipped++
		case StatusScheduled:
		}
	}
	return completed, skipped, len(p.Runs)
}
