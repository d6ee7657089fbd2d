package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	status StatusService,
	rev RevenueService,
	alerts AlertStore,
	loc *time.Location,
	logger *zap.Logger,
) http.Handler {
	h := &Handlers{
		status:  status,
		revenue: rev,
		alerts:  alerts,
		loc:     loc,
		logger:  logger,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Fleet.
		r.Get("/status", h.GetStatus)

		// Revenue.
		r.Get("/revenue", h.GetRevenue)

		// Alert journal.
		r.Get("/alerts", h.ListAlerts)
	})

	return r
}
