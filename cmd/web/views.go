package main

import (
	"slices"
	"strings"
	"time"

	"github.com/myrjola/runplan/internal/plan"
)

type runView struct {
	ID      string
	Date    time.Time
	Status  plan.RunStatus
	Today   bool
	Summary plan.RunSummary
}

// Open reports whether the run can still be completed or skipped.
func (v runView) Open() bool {
	return v.Status == plan.StatusScheduled
}

type weekView struct {
	Number int
	Start  time.Time
	Runs   []runView
}

type planView struct {
	GoalLabel     string
	PlanName      string
	Description   string
	StartDate     time.Time
	Weekdays      []string
	PersonalBests plan.PersonalBests
	Completed     int
	Skipped       int
	Total         int
	Next          *runView
	Weeks         []weekView
}

func newRunView(catalog *plan.Catalog, run plan.ScheduledRun, today time.Time) runView {
	return runView{
		ID:      run.ID,
		Date:    run.Date,
		Status:  run.Status,
		Today:   run.Date.Equal(plan.Day(today)),
		Summary: plan.Summarize(catalog, run),
	}
}

func newPlanView(catalog *plan.Catalog, p plan.GeneratedPlan, today time.Time) planView {
	v := planView{
		GoalLabel:     p.Goal.Label(),
		PlanName:      string(p.Archetype),
		Description:   "",
		StartDate:     p.StartDate,
		Weekdays:      weekdayNames(p.Weekdays),
		PersonalBests: p.PersonalBests,
		Completed:     0,
		Skipped:       0,
		Total:         0,
		Next:          nil,
		Weeks:         nil,
	}
	if def, ok := catalog.Definition(p.Archetype); ok {
		v.PlanName = def.Name
		v.Description = def.Description
	}
	v.Completed, v.Skipped, v.Total = p.Progress()
	if next, ok := p.NextRun(today); ok {
		nv := newRunView(catalog, next, today)
		v.Next = &nv
	}
	for _, g := range plan.GroupByWeek(p) {
		w := weekView{Number: g.Number, Start: g.Start, Runs: make([]runView, 0, len(g.Runs))}
		for _, run := range g.Runs {
			w.Runs = append(w.Runs, newRunView(catalog, run, today))
		}
		v.Weeks = append(v.Weeks, w)
	}
	return v
}

func weekdayNames(days []time.Weekday) []string {
	names := make([]string, 0, len(days))
	for _, d := range plan.NormalizeWeekdays(days) {
		names = append(names, d.String())
	}
	return names
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

func goalOptions(selected plan.Goal) []option {
	goals := plan.Goals()
	options := make([]option, 0, len(goals))
	for _, g := range goals {
		options = append(options, option{Value: string(g), Label: g.Label(), Selected: g == selected})
	}
	return options
}

// planOptions lists the catalog plans. A non-empty emptyLabel adds a leading option with an empty value.
func planOptions(defs []plan.Definition, selected plan.Archetype, emptyLabel string) []option {
	options := make([]option, 0, len(defs)+1)
	if emptyLabel != "" {
		options = append(options, option{Value: "", Label: emptyLabel, Selected: selected == ""})
	}
	for _, def := range defs {
		options = append(options, option{
			Value:    string(def.Archetype),
			Label:    def.Name,
			Selected: def.Archetype == selected,
		})
	}
	return options
}

type weekdayOption struct {
	// Value is the lowercase abbreviation accepted by [plan.ParseWeekday].
	Value   string
	Name    string
	Checked bool
}

func weekdayOptions(checked []time.Weekday) []weekdayOption {
	options := make([]weekdayOption, 0, len(plan.AllWeekdays()))
	for _, d := range plan.AllWeekdays() {
		options = append(options, weekdayOption{
			Value:   strings.ToLower(d.String()[:3]),
			Name:    d.String(),
			Checked: slices.Contains(checked, d),
		})
	}
	return options
}

// parseWeekdayValues parses the submitted weekday checkbox values.
func parseWeekdayValues(values []string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(values))
	for _, value := range values {
		d, err := plan.ParseWeekday(value)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return plan.NormalizeWeekdays(days), nil
}
