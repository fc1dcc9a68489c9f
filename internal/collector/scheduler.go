package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

var ErrNoActiveDomains = errors.New("no active domains")

// CycleReport summarizes one poll cycle.
type CycleReport struct {
	Start     time.Time
	Duration  time.Duration
	Connected bool
	Domains   int
	Failed    int
	Err       error
}

// Observer is notified after every cycle.
type Observer interface {
	CycleFinished(CycleReport)
}

// RetryPolicy bounds the wait for domains to appear on a fresh connection.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type Scheduler struct {
	logger    *slog.Logger
	source    Source
	domains   *DomainCollector
	interval  time.Duration
	retry     RetryPolicy
	observers []Observer
}

func NewScheduler(
	logger *slog.Logger,
	source Source,
	domains *DomainCollector,
	interval time.Duration,
	retry RetryPolicy,
	observers ...Observer,
) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	if retry.MaxTries == 0 {
		retry.MaxTries = 1
	}
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = interval
	}
	if retry.MaxInterval < retry.InitialInterval {
		retry.MaxInterval = retry.InitialInterval
	}
	return &Scheduler{
		logger:    logger,
		source:    source,
		domains:   domains,
		interval:  interval,
		retry:     retry,
		observers: observers,
	}
}

// Run starts a cycle every interval, measured from the previous cycle's
// scheduled start, until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	next := time.Now()
	for {
		s.sleepWithContext(ctx, time.Until(next))
		if ctx.Err() != nil {
			return nil
		}

		scheduled := next
		report := s.RunCycle(ctx)

		now := time.Now()
		next = nextStart(scheduled, now, s.interval)
		if skipped := int(next.Sub(scheduled)/s.interval) - 1; skipped > 0 {
			s.logger.Warn("poll cycle overran its interval, skipping missed starts", "duration", report.Duration, "interval", s.interval, "skipped", skipped)
		}
	}
}

// RunCycle performs connect, enumerate and collect once and notifies the
// observers.
func (s *Scheduler) RunCycle(ctx context.Context) CycleReport {
	report := s.runCycle(ctx)
	for _, o := range s.observers {
		o.CycleFinished(report)
	}
	return report
}

func (s *Scheduler) runCycle(ctx context.Context) CycleReport {
	report := CycleReport{Start: time.Now()}
	s.logger.Info("poll cycle begun")

	sess, err := s.source.Open(ctx)
	if err != nil {
		s.logger.Error("libvirt connection failed, skipping cycle", "error", err)
		report.Err = fmt.Errorf("open session: %w", err)
		report.Duration = time.Since(report.Start)
		return report
	}
	report.Connected = true

	domains, err := s.enumerate(ctx, sess)
	switch {
	case errors.Is(err, ErrNoActiveDomains):
		s.logger.Info("no running domains after retries", "attempts", s.retry.MaxTries)
		report.Err = err
	case err != nil:
		s.logger.Error("domain enumeration failed", "error", err)
		report.Err = err
	}

	for _, dom := range domains {
		if ctx.Err() != nil {
			break
		}
		if err := s.domains.Collect(ctx, dom); err != nil {
			report.Failed++
		}
		report.Domains++
	}

	if err := sess.Close(); err != nil {
		s.logger.Warn("libvirt close failed", "error", err)
	}
	report.Duration = time.Since(report.Start)
	s.logger.Info("poll cycle finished", "domains", report.Domains, "failed", report.Failed, "duration", report.Duration)
	return report
}

func (s *Scheduler) enumerate(ctx context.Context, sess Session) ([]Domain, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retry.InitialInterval
	b.MaxInterval = s.retry.MaxInterval

	return backoff.Retry(ctx, func() ([]Domain, error) {
		domains, err := sess.ActiveDomains(ctx)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("list active domains: %w", err))
		}
		if len(domains) == 0 {
			return nil, ErrNoActiveDomains
		}
		return domains, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.retry.MaxTries),
		backoff.WithNotify(func(_ error, wait time.Duration) {
			s.logger.Info("no running domains, waiting", "retry_in", wait)
		}),
	)
}

func (s *Scheduler) sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// nextStart returns the first slot on the scheduled+k*interval grid that is
// after now.
func nextStart(scheduled, now time.Time, interval time.Duration) time.Time {
	next := scheduled.Add(interval)
	if next.After(now) {
		return next
	}
	missed := now.Sub(scheduled) / interval
	return scheduled.Add((missed + 1) * interval)
}
