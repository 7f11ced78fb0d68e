package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/myrjola/runplan/internal/errors"
	"github.com/myrjola/runplan/internal/plan"
	"github.com/myrjola/runplan/internal/training"
)

type scheduleTemplateData struct {
	BaseTemplateData
	Plan     planView
	Plans    []option
	Weekdays []weekdayOption
	Problems []string
}

func (app *application) newScheduleTemplateData(
	r *http.Request,
	p plan.GeneratedPlan,
	archetype plan.Archetype,
	days []time.Weekday,
) scheduleTemplateData {
	return scheduleTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Plan:             newPlanView(app.trainingService.Catalog(), p, app.now()),
		Plans:            planOptions(app.trainingService.Definitions(), archetype, ""),
		Weekdays:         weekdayOptions(days),
		Problems:         nil,
	}
}

// activePlan loads the active plan and sends the user to onboarding without one. ok is false when the response has
// been written.
func (app *application) activePlan(w http.ResponseWriter, r *http.Request) (plan.GeneratedPlan, bool) {
	p, err := app.trainingService.ActivePlan(r.Context())
	if errors.Is(err, training.ErrNotFound) {
		redirect(w, r, "/onboarding")
		return plan.GeneratedPlan{}, false
	}
	if err != nil {
		app.serverError(w, r, err)
		return plan.GeneratedPlan{}, false
	}
	return p, true
}

func (app *application) scheduleGET(w http.ResponseWriter, r *http.Request) {
	p, ok := app.activePlan(w, r)
	if !ok {
		return
	}
	app.render(w, r, http.StatusOK, "schedule", app.newScheduleTemplateData(r, p, p.Archetype, p.Weekdays))
}

func (app *application) schedulePOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.handleError(w, r, errors.Wrap(plan.ErrInvalidInput, "parse form", slog.Any("error", err)))
		return
	}
	p, ok := app.activePlan(w, r)
	if !ok {
		return
	}

	archetype := plan.Archetype(r.PostForm.Get("plan"))
	days, err := parseWeekdayValues(r.PostForm["weekday"])
	var problems []string
	switch {
	case err != nil:
		problems = append(problems, "Choose running days from the list.")
	case len(days) == 0:
		problems = append(problems, "Select at least one running day.")
	}
	if _, known := app.trainingService.Catalog().Definition(archetype); archetype != "" && !known {
		problems = append(problems, "Choose one of the listed plans.")
	}
	if len(problems) > 0 {
		data := app.newScheduleTemplateData(r, p, archetype, days)
		data.Problems = problems
		app.render(w, r, http.StatusUnprocessableEntity, "schedule", data)
		return
	}

	if _, err = app.trainingService.ChangeSchedule(r.Context(), days, archetype); err != nil {
		app.handleError(w, r, err)
		return
	}
	redirect(w, r, "/")
}
