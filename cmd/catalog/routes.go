package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bookstudio/internal/catalog"
)

func (app *application) routes(ctx context.Context) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.logRequests)
	r.Use(app.recoverPanic)
	r.Use(app.instrument)
	if app.config.Limiter.Enabled {
		r.Use(app.rateLimit(ctx))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		app.errorResponse(w, r, http.StatusNotFound, "The requested resource could not be found.", "not_found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		app.errorResponse(w, r, http.StatusMethodNotAllowed, "The "+r.Method+" method is not supported for this resource.", "method_not_allowed")
	})

	r.Get("/healthz", app.healthz)
	r.Handle("/metrics", promhttp.HandlerFor(app.metrics.registry, promhttp.HandlerOpts{}))
	r.Mount("/api", catalog.NewHandler(app.service).Routes())
	return r
}

func (app *application) healthz(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusOK, map[string]string{
		"status":      "available",
		"environment": app.config.Env,
		"database":    app.config.Database.Driver,
	})
}
