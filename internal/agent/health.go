package agent

import (
	"sync/atomic"
	"time"

	"libvirt-exporter/internal/collector"
)

// HealthStatus tracks the outcome of the most recent poll cycle.
type HealthStatus struct {
	libvirtConnected atomic.Bool
	lastCycleAt      atomic.Int64
	lastDomains      atomic.Int64
	lastFailed       atomic.Int64
	cycles           atomic.Uint64
}

func NewHealthStatus() *HealthStatus {
	h := &HealthStatus{}
	h.libvirtConnected.Store(false)
	return h
}

func (h *HealthStatus) SetLibvirtConnected(ok bool) {
	h.libvirtConnected.Store(ok)
}

func (h *HealthStatus) CycleFinished(r collector.CycleReport) {
	h.libvirtConnected.Store(r.Connected)
	h.lastCycleAt.Store(r.Start.Add(r.Duration).UnixNano())
	h.lastDomains.Store(int64(r.Domains))
	h.lastFailed.Store(int64(r.Failed))
	h.cycles.Add(1)
}

// Ready reports whether the last cycle reached libvirt.
func (h *HealthStatus) Ready() bool {
	return h.libvirtConnected.Load()
}

func (h *HealthStatus) Snapshot() map[string]any {
	out := map[string]any{
		"libvirt_connected": h.libvirtConnected.Load(),
		"cycles":            h.cycles.Load(),
		"domains":           h.lastDomains.Load(),
		"failed_domains":    h.lastFailed.Load(),
	}
	if v := h.lastCycleAt.Load(); v > 0 {
		out["last_cycle_at"] = time.Unix(0, v).UTC()
	}
	return out
}
