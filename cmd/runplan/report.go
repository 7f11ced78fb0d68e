package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/myrjola/runplan/internal/plan"
)

type palette struct {
	heading   func(a ...any) string
	muted     func(a ...any) string
	completed func(a ...any) string
	skipped   func(a ...any) string
	today     func(a ...any) string
}

// newPalette returns the report colors. Without noColor, fatih/color decides based on the terminal.
func newPalette(noColor bool) palette {
	sprint := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if noColor {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		heading:   sprint(color.FgCyan, color.Bold),
		muted:     sprint(color.Faint),
		completed: sprint(color.FgGreen),
		skipped:   sprint(color.FgYellow),
		today:     sprint(color.FgMagenta, color.Bold),
	}
}

func (p palette) status(s plan.RunStatus) string {
	label := fmt.Sprintf("%-9s", s)
	switch s {
	case plan.StatusCompleted:
		return p.completed(label)
	case plan.StatusSkipped:
		return p.skipped(label)
	case plan.StatusScheduled:
	}
	return label
}

// printPlan writes the plan grouped by calendar week, one run per line ending in its ID.
func printPlan(w io.Writer, p palette, catalog *plan.Catalog, gp plan.GeneratedPlan, now time.Time) {
	name := string(gp.Archetype)
	if def, ok := catalog.Definition(gp.Archetype); ok {
		name = def.Name
	}
	completed, skipped, total := gp.Progress()
	weekdays := make([]string, 0, len(gp.Weekdays))
	for _, d := range gp.Weekdays {
		weekdays = append(weekdays, d.String()[:3])
	}

	fmt.Fprintf(w, "%s (%s)\n", p.heading(name), gp.Goal.Label())
	fmt.Fprintf(w, "%s · started %s · %d/%d completed, %d skipped\n",
		strings.Join(weekdays, ", "), gp.StartDate.Format(time.DateOnly), completed, total, skipped)

	today := plan.Day(now)
	for _, week := range plan.GroupByWeek(gp) {
		fmt.Fprintf(w, "\n%s\n", p.heading(fmt.Sprintf("Week %d (%s)", week.Number, week.Start.Format(time.DateOnly))))
		for _, run := range week.Runs {
			summary := plan.Summarize(catalog, run)
			date := run.Date.Format("2006-01-02 Mon")
			if run.Date.Equal(today) {
				date = p.today(date)
			}
			details := []string{summary.Title}
			for _, part := range []string{summary.Duration, summary.Zone, summary.Pace} {
				if part != "" {
					details = append(details, part)
				}
			}
			if summary.DistanceKm > 0 {
				details = append(details, fmt.Sprintf("%g km", summary.DistanceKm))
			}
			fmt.Fprintf(w, "  %s  %s  %s  %s\n",
				date, p.status(run.Status), strings.Join(details, " · "), p.muted(run.ID))
		}
	}
}
