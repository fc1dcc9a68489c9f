package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libvirt-exporter/internal/registry"
)

var fastRetry = RetryPolicy{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func newTestScheduler(src Source, interval time.Duration, observers ...Observer) (*Scheduler, *registry.Registry) {
	reg := registry.NewEmpty()
	return NewScheduler(discardLogger(), src, NewDomainCollector(discardLogger(), reg), interval, fastRetry, observers...), reg
}

func TestRunCycleCollectsDomains(t *testing.T) {
	vm2 := vm1()
	vm2.name = "vm2"
	sess := &fakeSession{lists: [][]Domain{{vm1(), vm2}}}
	s, reg := newTestScheduler(&fakeSource{session: sess}, time.Second)

	report := s.RunCycle(context.Background())

	require.NoError(t, report.Err)
	assert.True(t, report.Connected)
	assert.Equal(t, 2, report.Domains)
	assert.Zero(t, report.Failed)
	assert.True(t, sess.closed)
	assert.Equal(t, 2048.0, gaugeValue(t, reg, "libvirt_mem_stats_rss", "vm2"))
}

func TestRunCycleConnectFailureSkipsEnumeration(t *testing.T) {
	sess := &fakeSession{}
	src := &fakeSource{session: sess, openErr: errors.New("dial unix /var/run/libvirt/libvirt-sock: connect: no such file")}
	s, reg := newTestScheduler(src, time.Second)

	report := s.RunCycle(context.Background())

	require.Error(t, report.Err)
	assert.False(t, report.Connected)
	assert.Zero(t, sess.calls, "a failed connection must not be enumerated")
	assert.Empty(t, reg.Names())
}

func TestRunCycleWaitsForDomains(t *testing.T) {
	sess := &fakeSession{lists: [][]Domain{nil, {}, {vm1()}}}
	s, _ := newTestScheduler(&fakeSource{session: sess}, time.Second)

	report := s.RunCycle(context.Background())

	require.NoError(t, report.Err)
	assert.Equal(t, 3, sess.calls, "enumeration retried on the same session")
	assert.Equal(t, 1, report.Domains)
}

func TestRunCycleGivesUpWithoutDomains(t *testing.T) {
	sess := &fakeSession{}
	s, reg := newTestScheduler(&fakeSource{session: sess}, time.Second)

	report := s.RunCycle(context.Background())

	require.ErrorIs(t, report.Err, ErrNoActiveDomains)
	assert.Equal(t, int(fastRetry.MaxTries), sess.calls)
	assert.True(t, sess.closed)
	assert.Empty(t, reg.Names())
}

func TestRunCycleListErrorIsNotRetried(t *testing.T) {
	sess := &fakeSession{listErr: errors.New("connection reset by peer")}
	s, _ := newTestScheduler(&fakeSource{session: sess}, time.Second)

	report := s.RunCycle(context.Background())

	require.Error(t, report.Err)
	assert.NotErrorIs(t, report.Err, ErrNoActiveDomains)
	assert.Equal(t, 1, sess.calls)
	assert.True(t, sess.closed)
}

func TestRunCycleCountsFailedDomains(t *testing.T) {
	broken := vm1()
	broken.name = "broken"
	broken.cpuErr = errors.New("domain is not running")
	sess := &fakeSession{lists: [][]Domain{{vm1(), broken}}}
	s, _ := newTestScheduler(&fakeSource{session: sess}, time.Second)

	report := s.RunCycle(context.Background())

	require.NoError(t, report.Err)
	assert.Equal(t, 2, report.Domains)
	assert.Equal(t, 1, report.Failed)
}

type cycleRecorder struct {
	reports []CycleReport
	stopAt  int
	cancel  context.CancelFunc
}

func (r *cycleRecorder) CycleFinished(report CycleReport) {
	r.reports = append(r.reports, report)
	if len(r.reports) == r.stopAt {
		r.cancel()
	}
}

func TestRunFixedRate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &cycleRecorder{stopAt: 3, cancel: cancel}
	src := &fakeSource{session: &fakeSession{lists: [][]Domain{{vm1()}}}}
	s, _ := newTestScheduler(src, 20*time.Millisecond, rec)

	require.NoError(t, s.Run(ctx))

	require.Len(t, rec.reports, 3)
	assert.Equal(t, 3, src.opens, "one fresh connection per cycle")
	for i := 1; i < len(rec.reports); i++ {
		gap := rec.reports[i].Start.Sub(rec.reports[i-1].Start)
		assert.GreaterOrEqual(t, gap, 10*time.Millisecond)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{session: &fakeSession{}}
	s, _ := newTestScheduler(src, time.Hour)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNextStart(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	interval := 5 * time.Second

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{name: "fast cycle", now: base.Add(time.Second), want: base.Add(5 * time.Second)},
		{name: "nearly full interval", now: base.Add(4999 * time.Millisecond), want: base.Add(5 * time.Second)},
		{name: "exactly one interval", now: base.Add(5 * time.Second), want: base.Add(10 * time.Second)},
		{name: "overran two slots", now: base.Add(12 * time.Second), want: base.Add(15 * time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextStart(base, tt.now, interval))
		})
	}
}

func TestCycleMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCycleMetrics(reg)

	m.CycleFinished(CycleReport{Connected: true, Domains: 3, Duration: 50 * time.Millisecond})
	m.CycleFinished(CycleReport{Connected: true, Domains: 3, Failed: 1})
	m.CycleFinished(CycleReport{Connected: true, Err: ErrNoActiveDomains})
	m.CycleFinished(CycleReport{Connected: false, Err: errors.New("refused")})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues(resultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues(resultPartial)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues(resultNoDomains)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues(resultUnreachable)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.up))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.domains))
}
