package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/myrjola/runplan/internal/plan"
)

type runTemplateData struct {
	BaseTemplateData
	Run   runView
	Week  int
	Notes string
}

func (app *application) runGET(w http.ResponseWriter, r *http.Request) {
	details, err := app.trainingService.Run(r.Context(), r.PathValue("id"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "run", runTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Run: runView{
			ID:      details.Run.ID,
			Date:    details.Run.Date,
			Status:  details.Run.Status,
			Today:   details.Run.Date.Equal(plan.Day(app.now())),
			Summary: details.Summary,
		},
		Week:  details.Week,
		Notes: details.NotesMarkdown,
	})
}

func (app *application) runCompletePOST(w http.ResponseWriter, r *http.Request) {
	app.resolveRun(w, r, app.trainingService.CompleteRun)
}

func (app *application) runSkipPOST(w http.ResponseWriter, r *http.Request) {
	app.resolveRun(w, r, app.trainingService.SkipRun)
}

// resolveRun applies a status change and returns the user to the page given in the form's "next" field.
func (app *application) resolveRun(
	w http.ResponseWriter,
	r *http.Request,
	resolve func(ctx context.Context, runID string) error,
) {
	if err := resolve(r.Context(), r.PathValue("id")); err != nil {
		app.handleError(w, r, err)
		return
	}
	redirect(w, r, localPath(r.PostFormValue("next")))
}

// localPath returns next when it is a path on this site and "/" otherwise.
func localPath(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
