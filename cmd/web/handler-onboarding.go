package main

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/myrjola/runplan/internal/errors"
	"github.com/myrjola/runplan/internal/plan"
)

const onboardingDraftKey = "onboarding_draft"

// onboardingDraft is the submitted onboarding form, kept in the session until the plan is confirmed.
type onboardingDraft struct {
	Goal      plan.Goal
	Archetype plan.Archetype
	Weekdays  []time.Weekday
	// StartDate is YYYY-MM-DD or empty for the next Monday.
	StartDate string
	// FiveK and TenK hold the personal bests as typed.
	FiveK string
	TenK  string
}

// onboardingData converts the draft into generator input. Unparseable personal bests count as unknown.
func (d onboardingDraft) onboardingData() (plan.OnboardingData, error) {
	data := plan.OnboardingData{
		Goal:      d.Goal,
		Archetype: d.Archetype,
		Weekdays:  d.Weekdays,
		StartDate: time.Time{},
		PersonalBests: plan.PersonalBests{
			FiveK: plan.ParseHMS(d.FiveK),
			TenK:  plan.ParseHMS(d.TenK),
		},
	}
	if d.StartDate != "" {
		start, err := time.Parse(time.DateOnly, d.StartDate)
		if err != nil {
			return plan.OnboardingData{}, errors.Wrap(plan.ErrInvalidInput, "parse start date",
				slog.String("start_date", d.StartDate))
		}
		data.StartDate = start
	}
	return data, nil
}

type onboardingTemplateData struct {
	BaseTemplateData
	Goals     []option
	Plans     []option
	Weekdays  []weekdayOption
	StartDate string
	FiveK     string
	TenK      string
	// Problems lists what must be fixed before the form is accepted.
	Problems []string
}

func (app *application) newOnboardingTemplateData(r *http.Request, draft onboardingDraft) onboardingTemplateData {
	return onboardingTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Goals:            goalOptions(draft.Goal),
		Plans:            planOptions(app.trainingService.Definitions(), draft.Archetype, "Recommended for my goal"),
		Weekdays:         weekdayOptions(draft.Weekdays),
		StartDate:        draft.StartDate,
		FiveK:            draft.FiveK,
		TenK:             draft.TenK,
		Problems:         nil,
	}
}

func (app *application) onboardingGET(w http.ResponseWriter, r *http.Request) {
	draft, ok := app.sessionManager.Get(r.Context(), onboardingDraftKey).(onboardingDraft)
	if !ok {
		draft = onboardingDraft{
			Goal:      plan.GoalRunConsistently,
			Archetype: "",
			Weekdays:  []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			StartDate: "",
			FiveK:     "",
			TenK:      "",
		}
	}
	app.render(w, r, http.StatusOK, "onboarding", app.newOnboardingTemplateData(r, draft))
}

func (app *application) onboardingPOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.handleError(w, r, errors.Wrap(plan.ErrInvalidInput, "parse form", slog.Any("error", err)))
		return
	}

	draft := onboardingDraft{
		Goal:      plan.Goal(r.PostForm.Get("goal")),
		Archetype: plan.Archetype(r.PostForm.Get("plan")),
		Weekdays:  nil,
		StartDate: strings.TrimSpace(r.PostForm.Get("start_date")),
		FiveK:     strings.TrimSpace(r.PostForm.Get("pb_5k")),
		TenK:      strings.TrimSpace(r.PostForm.Get("pb_10k")),
	}

	var problems []string
	if _, err := app.trainingService.Recommend(draft.Goal); err != nil {
		if !errors.Is(err, plan.ErrUnsupportedGoal) {
			app.serverError(w, r, err)
			return
		}
		problems = append(problems, "Choose one of the listed goals.")
	}
	if draft.Archetype != "" {
		if _, ok := app.trainingService.Catalog().Definition(draft.Archetype); !ok {
			problems = append(problems, "Choose one of the listed plans.")
		}
	}
	days, err := parseWeekdayValues(r.PostForm["weekday"])
	if err != nil {
		problems = append(problems, "Choose running days from the list.")
	}
	draft.Weekdays = days
	if len(days) == 0 && err == nil {
		problems = append(problems, "Select at least one running day.")
	}
	if _, err = draft.onboardingData(); err != nil {
		problems = append(problems, "Enter the start date as YYYY-MM-DD.")
	}

	if len(problems) > 0 {
		data := app.newOnboardingTemplateData(r, draft)
		data.Problems = problems
		app.render(w, r, http.StatusUnprocessableEntity, "onboarding", data)
		return
	}

	app.sessionManager.Put(r.Context(), onboardingDraftKey, draft)
	redirect(w, r, "/onboarding/review")
}

type reviewTemplateData struct {
	BaseTemplateData
	Plan planView
}

// draftPlan reads the generator input from the session's onboarding draft. ok is false when the response has been
// written.
func (app *application) draftPlan(w http.ResponseWriter, r *http.Request) (plan.OnboardingData, bool) {
	draft, ok := app.sessionManager.Get(r.Context(), onboardingDraftKey).(onboardingDraft)
	if !ok {
		redirect(w, r, "/onboarding")
		return plan.OnboardingData{}, false
	}
	data, err := draft.onboardingData()
	if err != nil {
		app.handleError(w, r, err)
		return plan.OnboardingData{}, false
	}
	return data, true
}

func (app *application) onboardingReviewGET(w http.ResponseWriter, r *http.Request) {
	data, ok := app.draftPlan(w, r)
	if !ok {
		return
	}
	p, err := app.trainingService.Preview(r.Context(), data)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "review", reviewTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Plan:             newPlanView(app.trainingService.Catalog(), p, app.now()),
	})
}

func (app *application) onboardingConfirmPOST(w http.ResponseWriter, r *http.Request) {
	data, ok := app.draftPlan(w, r)
	if !ok {
		return
	}
	if _, err := app.trainingService.Start(r.Context(), data); err != nil {
		app.handleError(w, r, err)
		return
	}
	app.sessionManager.Remove(r.Context(), onboardingDraftKey)
	redirect(w, r, "/")
}
