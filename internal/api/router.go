package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/healthradar/internal/api/middleware"
	"github.com/kiranshivaraju/healthradar/internal/api/response"
	"github.com/kiranshivaraju/healthradar/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc
	MeHandler     http.HandlerFunc

	UploadHandler     http.HandlerFunc
	GetCounterHandler http.HandlerFunc
	ResetCounter      http.HandlerFunc

	ListCases         http.HandlerFunc
	AggregateHandler  http.HandlerFunc
	PurgeMunicipality http.HandlerFunc
	PurgeAll          http.HandlerFunc

	AnalysisHandler  http.HandlerFunc
	BroadcastHandler http.HandlerFunc
	LatestAnalysis   http.HandlerFunc
	PollJobHandler   http.HandlerFunc

	CreateWorkerHandler http.HandlerFunc
	ListWorkersHandler  http.HandlerFunc
	CreateKeyHandler    http.HandlerFunc
	ListKeysHandler     http.HandlerFunc
	RevokeKeyHandler    http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/me", orNotImplemented(deps.MeHandler))

		r.Get("/api/v1/cases", orNotImplemented(deps.ListCases))
		r.Get("/api/v1/cases/aggregate", orNotImplemented(deps.AggregateHandler))
		r.Get("/api/v1/uploads/counter", orNotImplemented(deps.GetCounterHandler))

		r.Post("/api/v1/analysis", orNotImplemented(deps.AnalysisHandler))
		r.Post("/api/v1/analysis/broadcast", orNotImplemented(deps.BroadcastHandler))
		r.Get("/api/v1/analysis/latest", orNotImplemented(deps.LatestAnalysis))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.PollJobHandler))

		// Upload routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeUpload))

			r.Post("/api/v1/uploads", orNotImplemented(deps.UploadHandler))
			r.Delete("/api/v1/cases/municipality", orNotImplemented(deps.PurgeMunicipality))
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeAdmin))

			r.Delete("/api/v1/cases", orNotImplemented(deps.PurgeAll))
			r.Delete("/api/v1/uploads/counter", orNotImplemented(deps.ResetCounter))

			r.Post("/api/v1/admin/workers", orNotImplemented(deps.CreateWorkerHandler))
			r.Get("/api/v1/admin/workers", orNotImplemented(deps.ListWorkersHandler))
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
