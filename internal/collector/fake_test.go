package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"libvirt-exporter/internal/model"
)

var errNotFound = errors.New("not found")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDomain struct {
	name     string
	cpu      map[string]uint64
	cpuErr   error
	mem      map[string]uint64
	memErr   error
	disks    []string
	ifaces   []string
	xmlErr   error
	block    map[string]model.BlockStats
	iface    map[string]model.InterfaceStats
	active   bool
	maxMem   uint64
	maxVcpus uint64
	attrErr  error
}

func (d *fakeDomain) Name() string { return d.name }

func (d *fakeDomain) CPUStats() (map[string]uint64, error) { return d.cpu, d.cpuErr }

func (d *fakeDomain) MemoryStats() (map[string]uint64, error) { return d.mem, d.memErr }

func (d *fakeDomain) BlockStats(dev string) (model.BlockStats, error) {
	st, ok := d.block[dev]
	if !ok {
		return model.BlockStats{}, fmt.Errorf("block %s: %w", dev, errNotFound)
	}
	return st, nil
}

func (d *fakeDomain) InterfaceStats(dev string) (model.InterfaceStats, error) {
	st, ok := d.iface[dev]
	if !ok {
		return model.InterfaceStats{}, fmt.Errorf("interface %s: %w", dev, errNotFound)
	}
	return st, nil
}

func (d *fakeDomain) IsActive() (bool, error) { return d.active, d.attrErr }

func (d *fakeDomain) MaxMemory() (uint64, error) { return d.maxMem, d.attrErr }

func (d *fakeDomain) MaxVcpus() (uint64, error) { return d.maxVcpus, d.attrErr }

func (d *fakeDomain) XMLDesc() (string, error) {
	if d.xmlErr != nil {
		return "", d.xmlErr
	}
	return domainXML(d.name, d.disks, d.ifaces), nil
}

func domainXML(name string, disks, ifaces []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<domain type='kvm'><name>%s</name><devices>", name)
	for _, dev := range disks {
		fmt.Fprintf(&b, "<disk type='file' device='disk'><source file='/var/lib/libvirt/images/%s.qcow2'/><target dev='%s' bus='virtio'/></disk>", dev, dev)
	}
	for _, dev := range ifaces {
		fmt.Fprintf(&b, "<interface type='network'><source network='default'/><target dev='%s'/><model type='virtio'/></interface>", dev)
	}
	b.WriteString("</devices></domain>")
	return b.String()
}

// vm1 is the reference domain: one disk, no interfaces.
func vm1() *fakeDomain {
	return &fakeDomain{
		name:     "vm1",
		cpu:      map[string]uint64{"cpu_time": 1000},
		mem:      map[string]uint64{"rss": 2048},
		disks:    []string{"vda"},
		block:    map[string]model.BlockStats{"vda": {10, 100, 5, 50, 0}},
		active:   true,
		maxMem:   4096,
		maxVcpus: 2,
	}
}

type fakeSession struct {
	lists   [][]Domain
	listErr error
	calls   int
	closed  bool
}

func (s *fakeSession) ActiveDomains(context.Context) ([]Domain, error) {
	s.calls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	if len(s.lists) == 0 {
		return nil, nil
	}
	idx := min(s.calls-1, len(s.lists)-1)
	return s.lists[idx], nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeSource struct {
	session *fakeSession
	openErr error
	opens   int
}

func (s *fakeSource) Open(context.Context) (Session, error) {
	s.opens++
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.session, nil
}

type recordingRegistry struct {
	calls map[string][][]model.Observation
}

func (r *recordingRegistry) Reconcile(name, _ string, obs []model.Observation) error {
	if r.calls == nil {
		r.calls = map[string][][]model.Observation{}
	}
	r.calls[name] = append(r.calls[name], obs)
	return nil
}
