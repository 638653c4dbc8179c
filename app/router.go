package app

import (
	"context"
	"net/http"
	"time"

	"github.com/Black-And-White-Club/ctf-engine/app/shared/httpx"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthTimeout = 2 * time.Second

// HealthFunc checks every dependency and returns one result per name. A nil
// error means the dependency answered.
type HealthFunc func(ctx context.Context) map[string]error

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// NewRouter builds the root router: correlation ids, panic recovery, the
// metrics endpoint and a health check. Module routes are mounted under
// /api/v1 by Initialize.
func NewRouter(obs observability.Observability, health HealthFunc) chi.Router {
	r := chi.NewRouter()
	r.Use(httpx.CorrelationMiddleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthHandler(health))
	r.Handle("/metrics", promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{}))
	return r
}

func healthHandler(health HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok", Checks: map[string]string{}}
		if health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			for name, err := range health(ctx) {
				if err != nil {
					resp.Status = "unavailable"
					resp.Checks[name] = err.Error()
					continue
				}
				resp.Checks[name] = "ok"
			}
		}
		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		httpx.WriteJSON(w, status, resp)
	}
}

// health pings postgres and, when the clock queue runs, its pgx pool.
func (app *App) health(ctx context.Context) map[string]error {
	checks := map[string]error{"postgres": app.DB.PingContext(ctx)}
	if app.Queue != nil {
		checks["queue"] = app.Queue.HealthCheck(ctx)
	}
	return checks
}
