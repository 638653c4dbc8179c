package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Black-And-White-Club/ctf-engine/app/shared/attr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the HTTP API on the configured address until ctx is cancelled,
// then drains in-flight requests. When observability.metrics_address names a
// different address, /metrics is also served there.
func (app *App) Serve(ctx context.Context) error {
	logger := app.Observability.Logger
	servers := []*http.Server{{
		Addr:              app.Config.HTTP.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}}
	if addr := app.Config.Observability.MetricsAddress; addr != "" && addr != app.Config.HTTP.Addr {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(app.Observability.Registry, promhttp.HandlerOpts{}))
		servers = append(servers, &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			logger.Info("Starting HTTP server", attr.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	var serveErr error
	select {
	case serveErr = <-errCh:
		logger.Error("HTTP server failed", attr.Error(serveErr))
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed", attr.String("addr", srv.Addr), attr.Error(err))
			serveErr = errors.Join(serveErr, err)
		}
	}
	logger.Info("HTTP server stopped")
	return serveErr
}
