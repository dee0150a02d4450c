package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/eduims/eduims-backend/internal/auth"
	"github.com/eduims/eduims-backend/internal/invoicing"
	"github.com/eduims/eduims-backend/internal/leads"
	"github.com/eduims/eduims-backend/internal/masterdata"
	"github.com/eduims/eduims-backend/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	AuthHandler       *auth.Handler
	AuthMiddleware    *auth.Middleware
	InvoicingHandler  *invoicing.Handler
	LeadsHandler      *leads.Handler
	MasterDataHandler *masterdata.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi router with the API defaults.
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

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/accounts", func(r chi.Router) {
			params.InvoicingHandler.MountRoutes(r, params.AuthMiddleware)
		})
		params.LeadsHandler.MountRoutes(r, params.AuthMiddleware)
		params.MasterDataHandler.MountRoutes(r, params.AuthMiddleware)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
