package main

import (
	"net/http"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	var (
		shared = func(next http.Handler) http.Handler {
			return app.logAndTraceRequest(secureHeaders(app.crossOriginProtection(
				commonContext(app.timeout(next)))))
		}
		noSession = func(next http.Handler) http.Handler {
			return app.recoverPanic(shared(next))
		}
		session = func(next http.Handler) http.Handler {
			return app.recoverPanic(noCache(app.sessionManager.LoadAndSave(shared(next))))
		}
	)

	mux.Handle("GET /onboarding", session(http.HandlerFunc(app.onboardingGET)))
	mux.Handle("POST /onboarding", session(http.HandlerFunc(app.onboardingPOST)))
	mux.Handle("GET /onboarding/review", session(http.HandlerFunc(app.onboardingReviewGET)))
	mux.Handle("POST /onboarding/confirm", session(http.HandlerFunc(app.onboardingConfirmPOST)))

	mux.Handle("GET /schedule", session(http.HandlerFunc(app.scheduleGET)))
	mux.Handle("POST /schedule", session(http.HandlerFunc(app.schedulePOST)))

	mux.Handle("GET /runs/{id}", session(http.HandlerFunc(app.runGET)))
	mux.Handle("POST /runs/{id}/complete", session(http.HandlerFunc(app.runCompletePOST)))
	mux.Handle("POST /runs/{id}/skip", session(http.HandlerFunc(app.runSkipPOST)))

	mux.Handle("GET /api/healthy", noSession(http.HandlerFunc(app.healthy)))

	// Home route (most specific)
	mux.Handle("GET /{$}", session(http.HandlerFunc(app.home)))

	mux.Handle("/", session(http.HandlerFunc(app.notFound)))

	return mux
}
