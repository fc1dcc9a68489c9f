package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const readHeaderTimeout = 10 * time.Second

// serveMetrics serves the registry on cfg.MetricsPath until ctx is done.
// Scrapes read whatever the last completed updates left in the registry.
func (a *Agent) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.MetricsPath, a.registry.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	a.logger.Info("metrics endpoint listening", "addr", a.metricsLn.Addr().String(), "path", a.cfg.MetricsPath)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(a.metricsLn)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("metrics server shutdown failed", "error", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve metrics endpoint %s: %w", a.metricsLn.Addr(), err)
	}
}
