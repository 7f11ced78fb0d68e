package plan

import (
	"time"

	"github.com/myrjola/runplan/internal/ptr"
)

// WeekGroup is one Monday-based calendar week of a plan.
type WeekGroup struct {
	// Number counts calendar weeks from the week the plan starts in, starting at 1.
	Number int
	Start  time.Time
	Runs   []ScheduledRun
}

// GroupByWeek splits the runs of p into calendar weeks. Weeks without runs are omitted.
func GroupByWeek(p GeneratedPlan) []WeekGroup {
	if len(p.Runs) == 0 {
		return nil
	}
	anchor := p.StartDate
	if anchor.IsZero() {
		anchor = p.Runs[0].Date
	}
	anchor = WeekStart(anchor)

	var groups []WeekGroup
	for _, run := range p.Runs {
		start := WeekStart(run.Date)
		if len(groups) == 0 || !groups[len(groups)-1].Start.Equal(start) {
			number := int(start.Sub(anchor).Hours()/24)/daysPerWeek + 1 //nolint:mnd // hours per day.
			groups = append(groups, WeekGroup{Number: number, Start: start, Runs: nil})
		}
		last := &groups[len(groups)-1]
		last.Runs = append(last.Runs, run)
	}
	return groups
}

// RunSummary is the flattened description of a run shown in lists and read by companion devices.
type RunSummary struct {
	Title      string
	Kind       Kind
	Intensity  string
	Zone       string
	Duration   string
	DistanceKm float64
	Pace       string
}

// Summarize describes run using its template. Runs whose template has left the catalog fall back to the template
// reference as title.
func Summarize(c *Catalog, run ScheduledRun) RunSummary {
	t, ok := c.Template(run.Template)
	if !ok {
		return RunSummary{
			Title:      run.Template.String(),
			Kind:       "",
			Intensity:  "unknown",
			Zone:       "",
			Duration:   "",
			DistanceKm: 0,
			Pace:       FormatPace(run.TargetPaceSeconds),
		}
	}
	zone := ""
	if t.Zone != nil {
		zone = t.Zone.String()
	}
	return RunSummary{
		Title:      t.Title,
		Kind:       t.Kind,
		Intensity:  t.Kind.Intensity(),
		Zone:       zone,
		Duration:   FormatHMS(ptr.Deref(t.DurationSeconds, 0)),
		DistanceKm: t.DistanceKm,
		Pace:       FormatPace(run.TargetPaceSeconds),
	}
}
