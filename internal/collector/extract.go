package collector

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"libvirt-exporter/internal/model"
)

// Raw is the category-shaped output of one extraction.
type Raw interface {
	Category() model.Category
}

// FlatStats holds one value per named field, all scoped to the domain.
type FlatStats struct {
	Kind   model.Category
	Fields []model.Field
}

func (s FlatStats) Category() model.Category { return s.Kind }

// DeviceStats holds one field series per attached device.
type DeviceStats struct {
	Kind    model.Category
	Devices []model.DeviceSample
}

func (s DeviceStats) Category() model.Category { return s.Kind }

// Extractor reads raw category data from a domain handle.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

func (e *Extractor) Extract(dom Domain, c model.Category) (Raw, error) {
	switch c {
	case model.CategoryCPU:
		stats, err := dom.CPUStats()
		if err != nil {
			return nil, fmt.Errorf("cpu stats: %w", err)
		}
		return FlatStats{Kind: c, Fields: flatFields(stats)}, nil
	case model.CategoryMemory:
		stats, err := dom.MemoryStats()
		if err != nil {
			return nil, fmt.Errorf("memory stats: %w", err)
		}
		return FlatStats{Kind: c, Fields: flatFields(stats)}, nil
	case model.CategoryBlock:
		return e.devices(dom, c, deviceDisk, func(dev string) ([]int64, error) {
			st, err := dom.BlockStats(dev)
			return st[:], err
		}, model.BlockFields[:])
	case model.CategoryNetwork:
		return e.devices(dom, c, deviceInterface, func(dev string) ([]int64, error) {
			st, err := dom.InterfaceStats(dev)
			return st[:], err
		}, model.InterfaceFields[:])
	case model.CategoryDomain:
		return e.lifecycle(dom)
	default:
		return nil, fmt.Errorf("unknown category %s", c)
	}
}

func (e *Extractor) devices(dom Domain, c model.Category, class deviceClass, read func(string) ([]int64, error), names []string) (Raw, error) {
	xmlDesc, err := dom.XMLDesc()
	if err != nil {
		return nil, fmt.Errorf("domain xml: %w", err)
	}
	targets, err := parseDeviceTargets(xmlDesc, class)
	if err != nil {
		return nil, err
	}

	out := DeviceStats{Kind: c, Devices: make([]model.DeviceSample, 0, len(targets))}
	for _, dev := range targets {
		values, err := read(dev)
		if err != nil {
			// One broken device must not hide the others.
			e.logger.Warn("device stats failed, skipping device", "domain", dom.Name(), "category", c.String(), "device", dev, "error", err)
			continue
		}
		out.Devices = append(out.Devices, model.DeviceSample{Device: dev, Fields: zipFields(names, values)})
	}
	return out, nil
}

func (e *Extractor) lifecycle(dom Domain) (Raw, error) {
	readers := []struct {
		name string
		read func() (float64, error)
	}{
		{name: "active", read: func() (float64, error) {
			active, err := dom.IsActive()
			if active {
				return 1, err
			}
			return 0, err
		}},
		{name: "max_memory", read: func() (float64, error) {
			v, err := dom.MaxMemory()
			return float64(v), err
		}},
		{name: "max_cpus", read: func() (float64, error) {
			v, err := dom.MaxVcpus()
			return float64(v), err
		}},
	}

	out := FlatStats{Kind: model.CategoryDomain}
	var errs []error
	for _, r := range readers {
		v, err := r.read()
		if err != nil {
			e.logger.Warn("domain attribute read failed", "domain", dom.Name(), "attribute", r.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", r.name, err))
			continue
		}
		out.Fields = append(out.Fields, model.Field{Name: r.name, Value: v})
	}
	if len(out.Fields) == 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func flatFields(stats map[string]uint64) []model.Field {
	out := make([]model.Field, 0, len(stats))
	for name, v := range stats {
		out = append(out, model.Field{Name: name, Value: float64(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func zipFields(names []string, values []int64) []model.Field {
	n := min(len(names), len(values))
	out := make([]model.Field, n)
	for i := 0; i < n; i++ {
		out[i] = model.Field{Name: names[i], Value: float64(values[i])}
	}
	return out
}
