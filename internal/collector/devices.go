package collector

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
)

type deviceClass string

const (
	deviceDisk      deviceClass = "disk"
	deviceInterface deviceClass = "interface"
)

type domainDevicesXML struct {
	Devices struct {
		Disks      []deviceTargetXML `xml:"disk"`
		Interfaces []deviceTargetXML `xml:"interface"`
	} `xml:"devices"`
}

type deviceTargetXML struct {
	Target struct {
		Dev string `xml:"dev,attr"`
	} `xml:"target"`
}

// parseDeviceTargets returns the sorted, de-duplicated target names of one
// device class in a domain XML description.
func parseDeviceTargets(xmlDesc string, class deviceClass) ([]string, error) {
	var d domainDevicesXML
	if err := xml.Unmarshal([]byte(xmlDesc), &d); err != nil {
		return nil, fmt.Errorf("unmarshal domain xml: %w", err)
	}

	var devs []deviceTargetXML
	switch class {
	case deviceDisk:
		devs = d.Devices.Disks
	case deviceInterface:
		devs = d.Devices.Interfaces
	default:
		return nil, fmt.Errorf("unknown device class %q", class)
	}

	seen := make(map[string]struct{}, len(devs))
	out := make([]string, 0, len(devs))
	for _, dev := range devs {
		name := strings.TrimSpace(dev.Target.Dev)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
