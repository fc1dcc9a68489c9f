package collector

import (
	"context"

	"libvirt-exporter/internal/model"
)

// Source opens a fresh hypervisor session for one poll cycle.
type Source interface {
	Open(ctx context.Context) (Session, error)
}

// Session is a hypervisor connection valid for a single cycle.
type Session interface {
	// ActiveDomains returns the running domains. An empty result is not an error.
	ActiveDomains(ctx context.Context) ([]Domain, error)
	Close() error
}

// Domain is a poll-scoped handle; it must not be kept across cycles.
type Domain interface {
	Name() string
	// CPUStats returns the counters aggregated over all vCPUs.
	CPUStats() (map[string]uint64, error)
	MemoryStats() (map[string]uint64, error)
	BlockStats(device string) (model.BlockStats, error)
	InterfaceStats(device string) (model.InterfaceStats, error)
	IsActive() (bool, error)
	MaxMemory() (uint64, error)
	MaxVcpus() (uint64, error)
	XMLDesc() (string, error)
}

// Registry receives the normalized observations of one metric name.
type Registry interface {
	Reconcile(name, help string, observations []model.Observation) error
}
