package model

import (
	"fmt"
	"slices"
	"sort"
)

// Category is one of the fixed stat groups read from every domain.
type Category int

const (
	CategoryCPU Category = iota
	CategoryMemory
	CategoryBlock
	CategoryNetwork
	CategoryDomain
)

// Categories lists every category in collection order.
var Categories = []Category{CategoryCPU, CategoryMemory, CategoryBlock, CategoryNetwork, CategoryDomain}

const (
	LabelDomain       = "domain"
	LabelTargetDevice = "target_device"
)

func (c Category) String() string {
	switch c {
	case CategoryCPU:
		return "cpu"
	case CategoryMemory:
		return "memory"
	case CategoryBlock:
		return "block"
	case CategoryNetwork:
		return "network"
	case CategoryDomain:
		return "domain"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Prefix is prepended to every field name of the category. The names are
// part of the scrape contract and must not change.
func (c Category) Prefix() string {
	switch c {
	case CategoryCPU:
		return "libvirt_cpu_stats_"
	case CategoryMemory:
		return "libvirt_mem_stats_"
	case CategoryBlock:
		return "libvirt_block_stats_"
	case CategoryNetwork:
		return "libvirt_interface_"
	case CategoryDomain:
		return "libvirt_domain_"
	default:
		return "libvirt_"
	}
}

func (c Category) Unit() string {
	if c == CategoryCPU {
		return "_nanosecs"
	}
	return ""
}

func (c Category) Help() string {
	switch c {
	case CategoryCPU:
		return "Domain CPU time counter aggregated over all vCPUs."
	case CategoryMemory:
		return "Domain memory statistic as reported by the balloon driver."
	case CategoryBlock:
		return "Domain block device statistic per target device."
	case CategoryNetwork:
		return "Domain network interface statistic per target device."
	case CategoryDomain:
		return "Domain lifecycle attribute or resource limit."
	default:
		return "libvirt domain statistic"
	}
}

// PerDevice reports whether observations of the category carry a target_device label.
func (c Category) PerDevice() bool {
	return c == CategoryBlock || c == CategoryNetwork
}

func (c Category) MetricName(field string) string {
	return c.Prefix() + field + c.Unit()
}

type Label struct {
	Key   string
	Value string
}

// LabelSet is an ordered label mapping.
type LabelSet []Label

func DomainLabels(domain string) LabelSet {
	return LabelSet{{Key: LabelDomain, Value: domain}}
}

func DeviceLabels(domain, device string) LabelSet {
	return LabelSet{{Key: LabelDomain, Value: domain}, {Key: LabelTargetDevice, Value: device}}
}

func (l LabelSet) Keys() []string {
	out := make([]string, len(l))
	for i, lb := range l {
		out[i] = lb.Key
	}
	return out
}

func (l LabelSet) Map() map[string]string {
	out := make(map[string]string, len(l))
	for _, lb := range l {
		out[lb.Key] = lb.Value
	}
	return out
}

// SameKeys reports whether l carries exactly the given key set, ignoring order.
func (l LabelSet) SameKeys(keys []string) bool {
	if len(l) != len(keys) {
		return false
	}
	got := l.Keys()
	want := slices.Clone(keys)
	sort.Strings(got)
	sort.Strings(want)
	return slices.Equal(got, want)
}

type Observation struct {
	Value  float64
	Labels LabelSet
}

// MetricSet maps a full metric name to the observations of one poll.
type MetricSet map[string][]Observation

func (s MetricSet) Add(name string, o Observation) {
	s[name] = append(s[name], o)
}

// Names returns the metric names in lexical order.
func (s MetricSet) Names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len is the total number of observations.
func (s MetricSet) Len() int {
	n := 0
	for _, obs := range s {
		n += len(obs)
	}
	return n
}
