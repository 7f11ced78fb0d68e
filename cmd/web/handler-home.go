package main

import (
	"net/http"

	"github.com/myrjola/runplan/internal/errors"
	"github.com/myrjola/runplan/internal/training"
)

type homeTemplateData struct {
	BaseTemplateData
	// HasPlan is false until onboarding is confirmed. The page then shows a call to action.
	HasPlan bool
	Plan    planView
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	data := homeTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		HasPlan:          false,
		Plan:             planView{}, //nolint:exhaustruct // empty without a plan.
	}
	p, err := app.trainingService.ActivePlan(r.Context())
	switch {
	case errors.Is(err, training.ErrNotFound):
	case err != nil:
		app.serverError(w, r, err)
		return
	default:
		data.HasPlan = true
		data.Plan = newPlanView(app.trainingService.Catalog(), p, app.now())
	}

	app.render(w, r, http.StatusOK, "home", data)
}
