package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rentaldesk/rentaldesk/internal/commissions"
	"github.com/rentaldesk/rentaldesk/internal/dashboard"
	"github.com/rentaldesk/rentaldesk/internal/leads"
	"github.com/rentaldesk/rentaldesk/internal/quotes"
	"github.com/rentaldesk/rentaldesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	QuoteHandler      *quotes.Handler
	CommissionHandler *commissions.Handler
	LeadHandler       *leads.Handler
	DashboardHandler  *dashboard.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(IdentityMiddleware(params.Logger))

		r.Route("/quotes", params.QuoteHandler.MountRoutes)
		r.Route("/commissions", params.CommissionHandler.MountRoutes)
		r.Route("/leads", params.LeadHandler.MountRoutes)
		r.Route("/dashboard", params.DashboardHandler.MountRoutes)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
