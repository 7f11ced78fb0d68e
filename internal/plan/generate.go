package plan

import (
	"cmp"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/runplan/internal/errors"
)

//nolint:gochecknoglobals // fixed namespace so that run IDs are reproducible across processes.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/myrjola/runplan/runs"))

// Generate lays out the archetype chosen during onboarding as dated runs.
//
// The archetype is data.Archetype, or the recommendation for data.Goal when unset. A zero start date defaults to
// the next Monday. today is only used for defaults and metadata. Empty weekday selections and archetypes without
// templates fail with [ErrInvalidInput]; no partial plan is ever returned.
func Generate(c *Catalog, data OnboardingData, today time.Time) (GeneratedPlan, error) {
	archetype := data.Archetype
	if archetype == "" {
		recommended, err := RecommendPlan(data.Goal)
		if err != nil {
			return GeneratedPlan{}, errors.Wrap(err, "generate plan")
		}
		archetype = recommended
	}

	days := NormalizeWeekdays(data.Weekdays)
	if len(days) == 0 {
		return GeneratedPlan{}, errors.Wrap(ErrInvalidInput, "no weekdays selected")
	}
	def, ok := c.Definition(archetype)
	if !ok {
		return GeneratedPlan{}, errors.Wrap(ErrUnknownArchetype, "generate plan",
			slog.String("archetype", string(archetype)))
	}
	if len(def.Templates) == 0 {
		return GeneratedPlan{}, errors.Wrap(ErrInvalidInput, "archetype has no templates",
			slog.String("archetype", string(archetype)))
	}

	today = Day(today)
	start := NextMonday(today)
	if !data.StartDate.IsZero() {
		start = Day(data.StartDate)
	}

	p := GeneratedPlan{
		ID:            uuid.NewString(),
		Goal:          data.Goal,
		Archetype:     archetype,
		CreatedAt:     today,
		UpdatedAt:     today,
		StartDate:     start,
		Weekdays:      days,
		PersonalBests: data.PersonalBests,
		Runs:          nil,
	}
	p.Runs = p.scheduleRuns(def.Templates, start, nil)
	return p, nil
}

// scheduleRuns turns templates into scheduled runs laid out from the first available date on or after from.
func (p GeneratedPlan) scheduleRuns(
	templates []WorkoutTemplate,
	from time.Time,
	occupied map[time.Time]bool,
) []ScheduledRun {
	placements := layout(templates, p.Weekdays, from, occupied)
	runs := make([]ScheduledRun, 0, len(placements))
	for _, pl := range placements {
		runs = append(runs, ScheduledRun{
			ID:                runID(p.ID, pl.template.Ref, pl.date),
			Date:              pl.date,
			Template:          pl.template.Ref,
			Status:            StatusScheduled,
			TargetPaceSeconds: TargetPace(pl.template, p.PersonalBests),
		})
	}
	return runs
}

func runID(planID string, ref TemplateRef, date time.Time) string {
	name := planID + "|" + ref.String() + "|" + date.Format(time.DateOnly)
	return uuid.NewSHA1(runNamespace, []byte(name)).String()
}

type placement struct {
	template WorkoutTemplate
	date     time.Time
}

// layout assigns templates to the selected weekdays on or after from, skipping occupied dates.
//
// Templates of one archetype week take consecutive slots in ascending weekday order. The following archetype week
// starts no earlier than the calendar week after the one its predecessor started in, so a week with fewer sessions
// than selected days leaves the remaining days free and a week with more sessions wraps into the next calendar week.
func layout(
	templates []WorkoutTemplate,
	days []time.Weekday,
	from time.Time,
	occupied map[time.Time]bool,
) []placement {
	if len(days) == 0 {
		return nil
	}
	selected := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		selected[d] = true
	}
	nextSlot := func(d time.Time) time.Time {
		for !selected[d.Weekday()] || occupied[d] {
			d = d.AddDate(0, 0, 1)
		}
		return d
	}

	var (
		placements    = make([]placement, 0, len(templates))
		cursor        = Day(from)
		week          = -1
		weekStartedIn time.Time
	)
	for _, t := range templates {
		if t.Ref.Week != week {
			if week != -1 {
				if boundary := weekStartedIn.AddDate(0, 0, daysPerWeek); cursor.Before(boundary) {
					cursor = boundary
				}
			}
			week = t.Ref.Week
			weekStartedIn = WeekStart(nextSlot(cursor))
		}
		date := nextSlot(cursor)
		placements = append(placements, placement{template: t, date: date})
		cursor = date.AddDate(0, 0, 1)
	}
	return placements
}

// sortRuns orders runs chronologically. Runs never share a date, the ID comparison only keeps the order total.
func sortRuns(runs []ScheduledRun) {
	slices.SortFunc(runs, func(a, b ScheduledRun) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
