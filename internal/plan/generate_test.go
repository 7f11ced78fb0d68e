package plan_test

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/runplan/internal/plan"
)

var (
	monWedFri = []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	// saturday is the "today" most tests onboard on. The next Monday is 2026-10-19.
	saturday = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
)

func dates(runs []plan.ScheduledRun) []string {
	out := make([]string, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.Date.Format(time.DateOnly))
	}
	return out
}

func assertUniqueSortedDates(t *testing.T, runs []plan.ScheduledRun) {
	t.Helper()
	for i := 1; i < len(runs); i++ {
		if !runs[i-1].Date.Before(runs[i].Date) {
			t.Fatalf("runs not strictly chronological at %d: %s then %s", i,
				runs[i-1].Date.Format(time.DateOnly), runs[i].Date.Format(time.DateOnly))
		}
	}
}

func TestGenerate_invalidInput(t *testing.T) {
	emptyCatalog, err := plan.LoadCatalog(strings.NewReader("[[archetype]]\nid = \"empty\"\n"))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	tests := []struct {
		name    string
		catalog *plan.Catalog
		data    plan.OnboardingData
		wantErr error
	}{
		{
			name:    "no weekdays",
			catalog: plan.DefaultCatalog(),
			data:    plan.OnboardingData{Goal: plan.GoalImprove5K, Weekdays: nil},
			wantErr: plan.ErrInvalidInput,
		},
		{
			name:    "only invalid weekdays",
			catalog: plan.DefaultCatalog(),
			data:    plan.OnboardingData{Goal: plan.GoalImprove5K, Weekdays: []time.Weekday{-1, 9}},
			wantErr: plan.ErrInvalidInput,
		},
		{
			name:    "unsupported goal",
			catalog: plan.DefaultCatalog(),
			data:    plan.OnboardingData{Goal: "marathon", Weekdays: monWedFri},
			wantErr: plan.ErrUnsupportedGoal,
		},
		{
			name:    "unknown archetype",
			catalog: plan.DefaultCatalog(),
			data:    plan.OnboardingData{Archetype: "couch_to_ultra", Weekdays: monWedFri},
			wantErr: plan.ErrUnknownArchetype,
		},
		{
			name:    "archetype without templates",
			catalog: emptyCatalog,
			data:    plan.OnboardingData{Archetype: "empty", Weekdays: monWedFri},
			wantErr: plan.ErrInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := plan.Generate(tt.catalog, tt.data, saturday)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Generate() error = %v, want %v", err, tt.wantErr)
			}
			if got.ID != "" || got.Runs != nil {
				t.Errorf("Generate() returned a partial plan on failure: %+v", got)
			}
		})
	}
}

// With as many selected days as sessions per week every week maps 1:1 onto the selected days.
func TestGenerate_sessionsMatchSelectedDays(t *testing.T) {
	catalog := plan.DefaultCatalog()
	tests := []struct {
		goal plan.Goal
		days []time.Weekday
	}{
		{goal: plan.GoalRunConsistently, days: monWedFri},
		{goal: plan.GoalImprove5K, days: []time.Weekday{time.Sunday, time.Tuesday, time.Thursday}},
		{goal: plan.GoalImprove10K, days: []time.Weekday{time.Saturday, time.Monday, time.Wednesday, time.Thursday}},
		{goal: plan.GoalHalfMarathon, days: []time.Weekday{time.Tuesday, time.Wednesday, time.Friday, time.Sunday}},
	}
	for _, tt := range tests {
		t.Run(string(tt.goal), func(t *testing.T) {
			p, err := plan.Generate(catalog, plan.OnboardingData{Goal: tt.goal, Weekdays: tt.days}, saturday)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			def, _ := catalog.Definition(p.Archetype)
			sessions, weeks := def.SessionsPerWeek(), def.Weeks()
			if sessions != len(tt.days) {
				t.Fatalf("test setup: %d days for %d sessions per week", len(tt.days), sessions)
			}
			if got, want := len(p.Runs), sessions*weeks; got != want {
				t.Fatalf("len(Runs) = %d, want %d", got, want)
			}
			if got, want := p.StartDate, mustDate(t, "2026-10-19"); !got.Equal(want) {
				t.Errorf("StartDate = %s, want %s", got, want)
			}

			sortedDays := plan.NormalizeWeekdays(tt.days)
			seen := map[string]bool{}
			for _, run := range p.Runs {
				if run.Status != plan.StatusScheduled {
					t.Errorf("run %s has status %q", run.Template, run.Status)
				}
				if run.Template.Archetype != p.Archetype {
					t.Errorf("run %s belongs to another archetype", run.Template)
				}
				wantWeekStart := p.StartDate.AddDate(0, 0, 7*(run.Template.Week-1))
				if got := plan.WeekStart(run.Date); !got.Equal(wantWeekStart) {
					t.Errorf("run %s in week of %s, want %s", run.Template, got, wantWeekStart)
				}
				if got, want := run.Date.Weekday(), sortedDays[run.Template.Day-1]; got != want {
					t.Errorf("run %s on %s, want %s", run.Template, got, want)
				}
				key := run.Date.Format(time.DateOnly)
				if seen[key] {
					t.Errorf("two runs on %s", key)
				}
				seen[key] = true
			}
			assertUniqueSortedDates(t, p.Runs)
		})
	}
}

func TestGenerate_layoutPolicy(t *testing.T) {
	catalog := plan.DefaultCatalog()
	tests := []struct {
		name      string
		data      plan.OnboardingData
		today     time.Time
		wantFirst []string
		wantRuns  int
	}{
		{
			name: "fewer days than sessions wraps into the next week",
			data: plan.OnboardingData{
				Archetype: plan.ArchetypeTenKImprover,
				Weekdays:  []time.Weekday{time.Thursday, time.Monday},
			},
			today:     saturday,
			wantFirst: []string{"2026-10-19", "2026-10-22", "2026-10-26", "2026-10-29", "2026-11-02"},
			wantRuns:  24,
		},
		{
			name: "more days than sessions uses the first days of each week",
			data: plan.OnboardingData{
				Archetype: plan.ArchetypeBaseBuilder,
				Weekdays:  []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
			},
			today:     saturday,
			wantFirst: []string{"2026-10-19", "2026-10-20", "2026-10-21", "2026-10-26", "2026-10-27"},
			wantRuns:  12,
		},
		{
			name: "explicit mid-week start",
			data: plan.OnboardingData{
				Archetype: plan.ArchetypeBaseBuilder,
				Weekdays:  monWedFri,
				StartDate: time.Date(2026, 10, 21, 18, 0, 0, 0, time.UTC),
			},
			today:     saturday,
			wantFirst: []string{"2026-10-21", "2026-10-23", "2026-10-26", "2026-10-28", "2026-10-30"},
			wantRuns:  12,
		},
		{
			name:      "onboarding on a Monday starts today",
			data:      plan.OnboardingData{Goal: plan.GoalRunConsistently, Weekdays: monWedFri},
			today:     time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC),
			wantFirst: []string{"2026-10-19", "2026-10-21", "2026-10-23"},
			wantRuns:  12,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := plan.Generate(catalog, tt.data, tt.today)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if got := len(p.Runs); got != tt.wantRuns {
				t.Errorf("len(Runs) = %d, want %d", got, tt.wantRuns)
			}
			if diff := cmp.Diff(tt.wantFirst, dates(p.Runs)[:len(tt.wantFirst)]); diff != "" {
				t.Errorf("first dates mismatch (-want +got):\n%s", diff)
			}
			assertUniqueSortedDates(t, p.Runs)
		})
	}
}

// Every weekday selection yields one run per template on distinct dates.
func TestGenerate_everyWeekdaySelection(t *testing.T) {
	catalog := plan.DefaultCatalog()
	all := plan.AllWeekdays()
	for _, def := range catalog.Definitions() {
		for mask := 1; mask < 1<<len(all); mask++ {
			var days []time.Weekday
			for i, d := range all {
				if mask&(1<<i) != 0 {
					days = append(days, d)
				}
			}
			p, err := plan.Generate(catalog, plan.OnboardingData{Archetype: def.Archetype, Weekdays: days}, saturday)
			if err != nil {
				t.Fatalf("Generate(%s, %v) error = %v", def.Archetype, days, err)
			}
			if got, want := len(p.Runs), len(def.Templates); got != want {
				t.Errorf("Generate(%s, %v): %d runs, want %d", def.Archetype, days, got, want)
			}
			assertUniqueSortedDates(t, p.Runs)
		}
	}
}

func TestGenerate_calibratesPaces(t *testing.T) {
	catalog := plan.DefaultCatalog()
	data := plan.OnboardingData{
		Goal:          plan.GoalImprove5K,
		Weekdays:      monWedFri,
		PersonalBests: plan.PersonalBests{FiveK: plan.ParseHMS("25:00"), TenK: 0},
	}
	p, err := plan.Generate(catalog, data, saturday)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	paces := map[plan.TemplateRef]int{}
	for _, run := range p.Runs {
		paces[run.Template] = run.TargetPaceSeconds
	}
	ref := func(week, day int) plan.TemplateRef {
		return plan.TemplateRef{Archetype: plan.ArchetypeFiveKTimeTrial, Week: week, Day: day}
	}
	tests := []struct {
		ref  plan.TemplateRef
		want int
	}{
		{ref: ref(1, 1), want: 0},   // easy run, no pace reference
		{ref: ref(1, 2), want: 291}, // 300 s/km × 0.97
		{ref: ref(2, 2), want: 324}, // 300 s/km × 1.08
		{ref: ref(6, 3), want: 300}, // time trial at personal best pace
	}
	for _, tt := range tests {
		if got := paces[tt.ref]; got != tt.want {
			t.Errorf("pace for %s = %d, want %d", tt.ref, got, tt.want)
		}
	}
}

func TestPersonalBests_RaceTime(t *testing.T) {
	tests := []struct {
		name string
		pb   plan.PersonalBests
		ref  plan.PaceRef
		want int
	}{
		{name: "known 5K", pb: plan.PersonalBests{FiveK: 1500}, ref: plan.PaceRef5K, want: 1500},
		{
			name: "5K predicted from 10K",
			pb:   plan.PersonalBests{TenK: 3120},
			ref:  plan.PaceRef5K,
			want: int(math.Round(3120 * math.Pow(0.5, 1.06))),
		},
		{
			name: "10K predicted from 5K",
			pb:   plan.PersonalBests{FiveK: 1500},
			ref:  plan.PaceRef10K,
			want: int(math.Round(1500 * math.Pow(2, 1.06))),
		},
		{name: "unknown", pb: plan.PersonalBests{}, ref: plan.PaceRef10K, want: 0},
		{name: "no reference", pb: plan.PersonalBests{FiveK: 1500}, ref: plan.PaceRefNone, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pb.RaceTime(tt.ref); got != tt.want {
				t.Errorf("RaceTime() = %d, want %d", got, tt.want)
			}
		})
	}
}
