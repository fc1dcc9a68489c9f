package agent

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc/health"

	"libvirt-exporter/internal/agent/version"
	"libvirt-exporter/internal/collector"
	"libvirt-exporter/internal/config"
	"libvirt-exporter/internal/libvirt"
	"libvirt-exporter/internal/registry"
)

type Agent struct {
	cfg       config.Config
	logger    *slog.Logger
	info      version.Info
	registry  *registry.Registry
	scheduler *collector.Scheduler
	health    *HealthStatus
	probe     *health.Server

	// bound by listen
	metricsLn net.Listener
	probeLn   net.Listener
}

func New(cfg config.Config, logger *slog.Logger) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	source := newLibvirtSource(libvirt.NewConnector(cfg.LibvirtURI, logger))
	return newAgent(cfg, logger, source), nil
}

func newAgent(cfg config.Config, logger *slog.Logger, source collector.Source) *Agent {
	reg := registry.New()
	info := version.Get(cfg)
	version.Register(reg.PrometheusRegistry(), info)

	h := NewHealthStatus()
	scheduler := collector.NewScheduler(
		logger,
		source,
		collector.NewDomainCollector(logger, reg),
		cfg.ScrapeInterval,
		collector.RetryPolicy{
			MaxTries:        uint(cfg.EmptyRetryMaxTries),
			InitialInterval: cfg.ScrapeInterval,
			MaxInterval:     cfg.EmptyRetryMaxInterval,
		},
		collector.NewCycleMetrics(reg.PrometheusRegistry()),
		h,
	)

	return &Agent{
		cfg:       cfg,
		logger:    logger,
		info:      info,
		registry:  reg,
		scheduler: scheduler,
		health:    h,
		probe:     health.NewServer(),
	}
}

func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("starting libvirt-exporter", append(a.info.LogAttrs(), "scrape_interval", a.cfg.ScrapeInterval)...)
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- a.run(runCtx)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case runErr = <-runErrCh:
		// Stopped by itself (listen error or parent ctx canceled).
	case sig := <-sigCh:
		a.logger.Info("shutdown signal received, starting graceful shutdown", "signal", sig.String(), "timeout", a.cfg.ShutdownTimeout)
		cancelRun()

		graceTimer := time.NewTimer(a.cfg.ShutdownTimeout)
		defer graceTimer.Stop()

		select {
		case runErr = <-runErrCh:
		case sig2 := <-sigCh:
			a.logger.Warn("second signal received, forcing immediate shutdown", "signal", sig2.String())
			runErr = context.Canceled
		case <-graceTimer.C:
			a.logger.Warn("graceful shutdown timeout reached, forcing shutdown", "timeout", a.cfg.ShutdownTimeout)
			runErr = context.DeadlineExceeded
		}
	}

	a.shutdown()

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	a.logger.Info("libvirt-exporter stopped")
	return nil
}

func BuildLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	hOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, hOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, hOpts))
}
