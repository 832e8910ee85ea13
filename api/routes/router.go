package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aogosto/order-triage/api/middleware"
	"github.com/aogosto/order-triage/api/responses"
	"github.com/aogosto/order-triage/pkg/config"
	"github.com/aogosto/order-triage/pkg/logger"
)

const envHeader = "X-Triage-Env"

// NewRouter exposes liveness and the prometheus registry.
func NewRouter(cfg *config.Config, logg *logger.Logger, gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)
	r.Get("/healthz", healthz(cfg))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

func healthz(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
