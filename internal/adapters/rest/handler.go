package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
	"github.com/ooi-data/ooi-hyd-tools/internal/core/ports"
	"github.com/ooi-data/ooi-hyd-tools/internal/core/services"
	"github.com/ooi-data/ooi-hyd-tools/internal/metrics"
)

// Discoverer lists the intervals of an instrument-day.
type Discoverer interface {
	Discover(ctx context.Context, refdes domain.RefDes, day time.Time) ([]domain.Interval, error)
}

// DayRunner reconstructs one instrument-day.
type DayRunner interface {
	RunDay(ctx context.Context, refdes domain.RefDes, day time.Time, params domain.ReconstructParams) (services.DayReport, error)
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Index    Discoverer
	Runner   DayRunner
	Runs     ports.RunRepository
	Metrics  *metrics.Metrics
	Defaults domain.ReconstructParams
}

// Handler manages the HTTP interface for our application.
type Handler struct {
	deps   Deps
	router *http.ServeMux // Standard library router
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(deps Deps) *Handler {
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	h := &Handler{
		deps:   deps,
		router: http.NewServeMux(),
	}
	h.routes()
	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	h.router.HandleFunc("GET /health", h.HealthCheck)
	h.router.HandleFunc("GET /metrics", h.Metrics)
	h.router.HandleFunc("GET /intervals", h.ListIntervals)
	h.router.HandleFunc("POST /runs", h.CreateRun)
	h.router.HandleFunc("GET /runs", h.ListRuns)
	h.router.HandleFunc("GET /runs/{id}", h.GetRun)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Metrics handles GET /metrics
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Metrics.Snapshot())
}
