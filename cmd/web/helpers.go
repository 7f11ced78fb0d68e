package main

import (
	"log/slog"
	"net/http"

	"github.com/myrjola/runplan/internal/errors"
	"github.com/myrjola/runplan/internal/plan"
	"github.com/myrjola/runplan/internal/training"
)

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	app.render(w, r, http.StatusInternalServerError, "error", newErrorTemplateData(r, http.StatusInternalServerError,
		"Something went wrong on our side. Please try again."))
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusNotFound, "not-found", newBaseTemplateData(r))
}

// handleError maps service errors to responses. Errors the user can act on get an explanatory page, the rest are
// server errors.
func (app *application) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status  int
		message string
	)
	switch {
	case errors.Is(err, training.ErrNotFound):
		app.notFound(w, r)
		return
	case errors.Is(err, training.ErrRunResolved):
		status, message = http.StatusConflict, "That run has already been marked as completed or skipped."
	case errors.Is(err, plan.ErrUnsupportedGoal):
		status, message = http.StatusUnprocessableEntity, "That goal is not supported."
	case errors.Is(err, plan.ErrUnknownArchetype):
		status, message = http.StatusUnprocessableEntity, "That plan does not exist."
	case errors.Is(err, plan.ErrInvalidInput):
		status, message = http.StatusUnprocessableEntity, "The request was invalid."
	default:
		app.serverError(w, r, err)
		return
	}
	app.logger.LogAttrs(r.Context(), slog.LevelWarn, "client error",
		slog.Int("status_code", status), slog.Any("error", err))
	app.render(w, r, status, "error", newErrorTemplateData(r, status, message))
}

// redirect detects if the request is originating from a fetch API call or a top-level navigation and points the user
// to the correct URL.
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	if r.Header.Get("Sec-Fetch-Dest") == "empty" {
		w.Header().Set("Content-Location", path)
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, path, http.StatusSeeOther)
}
