package collector

import (
	"sort"

	"libvirt-exporter/internal/model"
)

// Normalize converts raw category data of one domain into observations keyed
// by full metric name. The result depends only on the input.
func Normalize(domain string, raw Raw) model.MetricSet {
	set := model.MetricSet{}
	c := raw.Category()

	switch r := raw.(type) {
	case FlatStats:
		for _, f := range r.Fields {
			set.Add(c.MetricName(f.Name), model.Observation{Value: f.Value, Labels: model.DomainLabels(domain)})
		}
	case DeviceStats:
		devices := append([]model.DeviceSample(nil), r.Devices...)
		sort.SliceStable(devices, func(i, j int) bool { return devices[i].Device < devices[j].Device })
		for _, d := range devices {
			for _, f := range d.Fields {
				set.Add(c.MetricName(f.Name), model.Observation{Value: f.Value, Labels: model.DeviceLabels(domain, d.Device)})
			}
		}
	}
	return set
}
