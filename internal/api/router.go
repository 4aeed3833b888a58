package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/fuelhaul/internal/api/middleware"
	"github.com/kiranshivaraju/fuelhaul/internal/api/response"
	"github.com/kiranshivaraju/fuelhaul/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler  http.HandlerFunc
	MetricsHandler http.Handler

	// Dispatch
	CreateJob http.HandlerFunc
	ListJobs  http.HandlerFunc

	// Queries
	GetJob       http.HandlerFunc
	ListStops    http.HandlerFunc
	NextStop     http.HandlerFunc
	PreviewRoute http.HandlerFunc
	PreviousStep http.HandlerFunc

	// Driver workflow
	StartTrip           http.HandlerFunc
	ConfirmWarehouse    http.HandlerFunc
	ConfirmPickup       http.HandlerFunc
	SetRoute            http.HandlerFunc
	BeginDelivery       http.HandlerFunc
	ConfirmArrival      http.HandlerFunc
	ConfirmDelivery     http.HandlerFunc
	ConfirmDepotArrival http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public endpoints
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeDispatch))

			r.Post("/api/v1/jobs", orNotImplemented(deps.CreateJob))
			r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobs))
		})

		r.Route("/api/v1/jobs/{jobID}", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(deps.Auth.RequireScope(models.ScopeDriver, models.ScopeDispatch))

				r.Get("/", orNotImplemented(deps.GetJob))
				r.Get("/stops", orNotImplemented(deps.ListStops))
				r.Get("/next-stop", orNotImplemented(deps.NextStop))
				r.Get("/steps/previous", orNotImplemented(deps.PreviousStep))
				r.Post("/route/preview", orNotImplemented(deps.PreviewRoute))
			})

			r.Group(func(r chi.Router) {
				r.Use(deps.Auth.RequireScope(models.ScopeDriver))

				r.Post("/start-trip", orNotImplemented(deps.StartTrip))
				r.Post("/warehouse", orNotImplemented(deps.ConfirmWarehouse))
				r.Post("/pickup", orNotImplemented(deps.ConfirmPickup))
				r.Post("/route", orNotImplemented(deps.SetRoute))
				r.Post("/delivery/begin", orNotImplemented(deps.BeginDelivery))
				r.Post("/stops/{stopID}/arrival", orNotImplemented(deps.ConfirmArrival))
				r.Post("/stops/{stopID}/delivery", orNotImplemented(deps.ConfirmDelivery))
				r.Post("/depot-arrival", orNotImplemented(deps.ConfirmDepotArrival))
			})
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeAdmin))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
