package agent

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const probeService = "libvirt-exporter"

// serveProbe exposes grpc.health.v1 on the probe listener. SERVING means the
// last poll cycle connected to libvirt.
func (a *Agent) serveProbe(ctx context.Context) error {
	if a.probeLn == nil {
		a.logger.Info("probe endpoint disabled")
		return nil
	}

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, a.probe)

	a.logger.Info("probe endpoint listening", "addr", a.probeLn.Addr().String())

	go func() {
		<-ctx.Done()
		a.probe.Shutdown()
		srv.Stop()
	}()

	if err := srv.Serve(a.probeLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("serve probe endpoint %s: %w", a.probeLn.Addr(), err)
	}
	return nil
}
