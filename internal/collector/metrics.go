package collector

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK          = "ok"
	resultPartial     = "partial"
	resultNoDomains   = "no_domains"
	resultUnreachable = "unreachable"
	resultError       = "error"
)

// CycleMetrics exports the exporter's own poll statistics.
type CycleMetrics struct {
	cycles   *prometheus.CounterVec
	duration prometheus.Histogram
	domains  prometheus.Gauge
	up       prometheus.Gauge
}

func NewCycleMetrics(reg prometheus.Registerer) *CycleMetrics {
	f := promauto.With(reg)
	return &CycleMetrics{
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "libvirt_exporter",
			Name:      "cycles_total",
			Help:      "Poll cycles run, by result.",
		}, []string{"result"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "libvirt_exporter",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a poll cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		domains: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "libvirt_exporter",
			Name:      "domains",
			Help:      "Active domains collected in the last cycle.",
		}),
		up: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "libvirt_exporter",
			Name:      "up",
			Help:      "Whether the last cycle could connect to libvirt.",
		}),
	}
}

func (m *CycleMetrics) CycleFinished(r CycleReport) {
	m.cycles.WithLabelValues(cycleResult(r)).Inc()
	m.duration.Observe(r.Duration.Seconds())
	m.domains.Set(float64(r.Domains))
	if r.Connected {
		m.up.Set(1)
	} else {
		m.up.Set(0)
	}
}

func cycleResult(r CycleReport) string {
	switch {
	case !r.Connected:
		return resultUnreachable
	case errors.Is(r.Err, ErrNoActiveDomains):
		return resultNoDomains
	case r.Err != nil:
		return resultError
	case r.Failed > 0:
		return resultPartial
	default:
		return resultOK
	}
}
