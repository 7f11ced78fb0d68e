package plan

import (
	"log/slog"
	"slices"
	"time"

	"github.com/myrjola/runplan/internal/errors"
)

// Frozen reports whether the run is history that regeneration must keep: it is in the past or already resolved.
func (r ScheduledRun) Frozen(today time.Time) bool {
	return r.Status == StatusCompleted || r.Status == StatusSkipped || Day(r.Date).Before(Day(today))
}

// Regenerate re-lays out the still open part of a plan on a new weekday selection.
//
// Frozen runs are returned verbatim. Scheduled runs dated today or later are replaced by the templates that no
// frozen run covers, laid out on newDays from today, or from the start date when the plan has not started yet.
// A non-empty newArchetype switches plans; the new archetype then skips as many of its leading templates as there
// are frozen runs from other archetypes so that progress carries over. A date taken by a frozen run is never reused.
//
// Calling Regenerate again on its own output with the same arguments returns the same runs.
func Regenerate(
	c *Catalog,
	existing GeneratedPlan,
	newArchetype Archetype,
	newDays []time.Weekday,
	today time.Time,
) (GeneratedPlan, error) {
	days := NormalizeWeekdays(newDays)
	if len(days) == 0 {
		return GeneratedPlan{}, errors.Wrap(ErrInvalidInput, "no weekdays selected")
	}
	target := existing.Archetype
	if newArchetype != "" {
		target = newArchetype
	}
	def, ok := c.Definition(target)
	if !ok {
		return GeneratedPlan{}, errors.Wrap(ErrUnknownArchetype, "regenerate plan",
			slog.String("archetype", string(target)))
	}

	today = Day(today)
	var (
		frozen   []ScheduledRun
		carried  = map[TemplateRef]bool{}
		occupied = map[time.Time]bool{}
		foreign  int
	)
	for _, run := range existing.Runs {
		if !run.Frozen(today) {
			continue
		}
		frozen = append(frozen, run)
		carried[run.Template] = true
		occupied[Day(run.Date)] = true
		if run.Template.Archetype != target {
			foreign++
		}
	}

	remaining := make([]WorkoutTemplate, 0, len(def.Templates))
	for _, t := range def.Templates {
		if carried[t.Ref] {
			continue
		}
		if foreign > 0 {
			foreign--
			continue
		}
		remaining = append(remaining, t)
	}

	next := existing
	next.Archetype = target
	next.Weekdays = days
	next.UpdatedAt = today
	// A plan that has not started yet keeps its start date.
	from := today
	if start := Day(existing.StartDate); start.After(from) {
		from = start
	}
	next.Runs = slices.Concat(frozen, next.scheduleRuns(remaining, from, occupied))
	sortRuns(next.Runs)
	return next, nil
}
