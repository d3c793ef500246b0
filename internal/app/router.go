package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cartage-erp/cartage-erp/internal/auth"
	"github.com/cartage-erp/cartage-erp/internal/broker"
	"github.com/cartage-erp/cartage-erp/internal/purchasing"
	"github.com/cartage-erp/cartage-erp/internal/quotation"
	"github.com/cartage-erp/cartage-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	AuthHandler       *auth.Handler
	AuthMiddleware    func(http.Handler) http.Handler
	BrokerHandler     *broker.Handler
	QuotationHandler  *quotation.Handler
	PurchasingHandler *purchasing.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with Cartage defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api/mobile", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(LoginRateLimiter(params.Config))
			params.AuthHandler.MountRoutes(r)
		})
		r.Group(func(r chi.Router) {
			if params.AuthMiddleware != nil {
				r.Use(params.AuthMiddleware)
			}
			params.BrokerHandler.MountRoutes(r)
			params.QuotationHandler.MountRoutes(r)
			params.PurchasingHandler.MountRoutes(r)
		})
	})

	return r
}
