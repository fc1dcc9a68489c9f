// Package registry owns the process-lifetime set of exported gauges.
//
// Gauges are created lazily the first time a metric name is observed and are
// never removed. The label keys of the first observation fix the schema of
// the gauge; later observations with a different key set are rejected.
// Values of domains that stop reporting stay exposed until restart.
//
// Each Set on a label tuple is atomic, but a Reconcile call touching many
// series is not: a concurrent scrape may see some series of a domain already
// updated and others still holding the previous poll's value.
package registry

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"libvirt-exporter/internal/model"
)

var ErrLabelSchemaMismatch = stderrors.New("label keys differ from registered schema")

type gaugeEntry struct {
	vec  *prometheus.GaugeVec
	keys []string
}

// Registry is a get-or-create gauge store backed by a prometheus.Registry.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	mu                 sync.RWMutex
	gauges             map[string]*gaugeEntry
}

// New creates a registry with Go runtime and process collectors attached.
func New() *Registry {
	r := NewEmpty()
	r.prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// NewEmpty creates a registry without any default collectors.
func NewEmpty() *Registry {
	return &Registry{
		prometheusRegistry: prometheus.NewRegistry(),
		gauges:             make(map[string]*gaugeEntry),
	}
}

func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// Handler serves the registry in the text exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prometheusRegistry, promhttp.HandlerOpts{
		Registry:      r.prometheusRegistry,
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// Gauge returns the gauge registered under name, creating it with the given
// label keys on first use. Asking for an existing gauge with another key set
// returns ErrLabelSchemaMismatch.
func (r *Registry) Gauge(name, help string, keys []string) (*prometheus.GaugeVec, error) {
	e, err := r.getOrCreate(name, help, keys)
	if err != nil {
		return nil, err
	}
	if !labelKeysEqual(e.keys, keys) {
		return nil, mismatch(name, e.keys, keys)
	}
	return e.vec, nil
}

// Reconcile ensures the gauge exists and overwrites the value of every
// observed label tuple. Observations whose label keys do not match the
// gauge's schema are skipped and reported through the returned error; the
// remaining observations are still applied.
func (r *Registry) Reconcile(name, help string, observations []model.Observation) error {
	if len(observations) == 0 {
		return nil
	}

	e, err := r.getOrCreate(name, help, observations[0].Labels.Keys())
	if err != nil {
		return err
	}

	var errs []error
	for _, o := range observations {
		if !o.Labels.SameKeys(e.keys) {
			errs = append(errs, mismatch(name, e.keys, o.Labels.Keys()))
			continue
		}
		g, getErr := e.vec.GetMetricWith(prometheus.Labels(o.Labels.Map()))
		if getErr != nil {
			errs = append(errs, fmt.Errorf("metric %s: %w", name, getErr))
			continue
		}
		g.Set(o.Value)
	}
	return stderrors.Join(errs...)
}

func (r *Registry) getOrCreate(name, help string, keys []string) (*gaugeEntry, error) {
	r.mu.RLock()
	e, ok := r.gauges[name]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.gauges[name]; ok {
		return e, nil
	}

	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, keys)
	if err := r.prometheusRegistry.Register(vec); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if stderrors.As(err, &alreadyRegErr) {
			return nil, fmt.Errorf("metric %s collides with a collector registered outside the gauge set: %w", name, err)
		}
		return nil, fmt.Errorf("register gauge %s: %w", name, err)
	}
	e = &gaugeEntry{vec: vec, keys: slices.Clone(keys)}
	r.gauges[name] = e
	return e, nil
}

// LabelKeys returns the schema of a registered gauge, or nil.
func (r *Registry) LabelKeys(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.gauges[name]; ok {
		return slices.Clone(e.keys)
	}
	return nil
}

// Names returns every gauge name created so far, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.gauges))
	for name := range r.gauges {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func mismatch(name string, schema, got []string) error {
	return fmt.Errorf("metric %s: registered with %v, observed %v: %w", name, schema, got, ErrLabelSchemaMismatch)
}

func labelKeysEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	sort.Strings(x)
	sort.Strings(y)
	return slices.Equal(x, y)
}
