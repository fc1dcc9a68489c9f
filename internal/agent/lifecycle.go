package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func (a *Agent) run(ctx context.Context) error {
	if err := a.listen(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.serveMetrics(gctx)
	})
	g.Go(func() error {
		return a.serveProbe(gctx)
	})
	g.Go(func() error {
		return a.runHealthLoop(gctx)
	})
	g.Go(func() error {
		return a.scheduler.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// listen binds every endpoint before the first poll starts.
func (a *Agent) listen() error {
	ln, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen metrics endpoint %s: %w", a.cfg.ListenAddr, err)
	}
	a.metricsLn = ln

	addr := strings.TrimSpace(a.cfg.ProbeListenAddr)
	if addr == "" {
		return nil
	}
	pln, err := net.Listen("tcp", addr)
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("listen probe endpoint %s: %w", addr, err)
	}
	a.probeLn = pln
	return nil
}

func (a *Agent) runHealthLoop(ctx context.Context) error {
	a.refreshProbe()

	t := time.NewTicker(a.cfg.HealthInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			a.refreshProbe()
			a.logHealth()
		}
	}
}

func (a *Agent) refreshProbe() {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if a.health.Ready() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	a.probe.SetServingStatus("", status)
	a.probe.SetServingStatus(probeService, status)
}

func (a *Agent) logHealth() {
	a.logger.Log(context.Background(), slog.LevelDebug, "exporter health", "snapshot", a.health.Snapshot())
}

func (a *Agent) shutdown() {
	a.probe.Shutdown()
	a.health.SetLibvirtConnected(false)
	a.logHealth()
}
