package libvirt

import (
	"fmt"

	golibvirt "github.com/digitalocean/go-libvirt"

	"libvirt-exporter/internal/model"
)

// maxMemoryStats is larger than any tag count libvirt reports; the daemon
// truncates to what it knows.
const maxMemoryStats = 16

// memoryStatNames maps virDomainMemoryStatTags to the names libvirt's own
// bindings expose for them.
var memoryStatNames = map[int32]string{
	0:  "swap_in",
	1:  "swap_out",
	2:  "major_fault",
	3:  "minor_fault",
	4:  "unused",
	5:  "available",
	6:  "actual",
	7:  "rss",
	8:  "usable",
	9:  "last_update",
	10: "disk_caches",
	11: "hugetlb_pgalloc",
	12: "hugetlb_pgfail",
}

// Domain is a handle valid for the lifetime of the Conn it came from.
type Domain struct {
	client Client
	dom    golibvirt.Domain
}

func (d *Domain) Name() string {
	return d.dom.Name
}

// CPUStats returns the total row (start cpu -1) of the domain CPU stats.
func (d *Domain) CPUStats() (map[string]uint64, error) {
	_, n, err := d.client.DomainGetCPUStats(d.dom, 0, -1, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("DomainGetCPUStats count: %w", err)
	}
	if n <= 0 {
		return map[string]uint64{}, nil
	}
	params, _, err := d.client.DomainGetCPUStats(d.dom, uint32(n), -1, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("DomainGetCPUStats: %w", err)
	}
	out := make(map[string]uint64, len(params))
	for _, p := range params {
		v, ok := asUint64(p.Value.I)
		if !ok {
			continue
		}
		out[p.Field] = v
	}
	return out, nil
}

func (d *Domain) MemoryStats() (map[string]uint64, error) {
	stats, err := d.client.DomainMemoryStats(d.dom, maxMemoryStats, 0)
	if err != nil {
		return nil, fmt.Errorf("DomainMemoryStats: %w", err)
	}
	out := make(map[string]uint64, len(stats))
	for _, s := range stats {
		name, ok := memoryStatNames[s.Tag]
		if !ok {
			continue
		}
		out[name] = s.Val
	}
	return out, nil
}

func (d *Domain) BlockStats(device string) (model.BlockStats, error) {
	rdReq, rdBytes, wrReq, wrBytes, errs, err := d.client.DomainBlockStats(d.dom, device)
	if err != nil {
		return model.BlockStats{}, fmt.Errorf("DomainBlockStats %s: %w", device, err)
	}
	return model.BlockStats{rdReq, rdBytes, wrReq, wrBytes, errs}, nil
}

func (d *Domain) InterfaceStats(device string) (model.InterfaceStats, error) {
	rxBytes, rxPkts, rxErrs, rxDrop, txBytes, txPkts, txErrs, txDrop, err := d.client.DomainInterfaceStats(d.dom, device)
	if err != nil {
		return model.InterfaceStats{}, fmt.Errorf("DomainInterfaceStats %s: %w", device, err)
	}
	return model.InterfaceStats{rxBytes, rxPkts, rxErrs, rxDrop, txBytes, txPkts, txErrs, txDrop}, nil
}

func (d *Domain) IsActive() (bool, error) {
	active, err := d.client.DomainIsActive(d.dom)
	if err != nil {
		return false, fmt.Errorf("DomainIsActive: %w", err)
	}
	return active == 1, nil
}

// MaxMemory is in KiB.
func (d *Domain) MaxMemory() (uint64, error) {
	v, err := d.client.DomainGetMaxMemory(d.dom)
	if err != nil {
		return 0, fmt.Errorf("DomainGetMaxMemory: %w", err)
	}
	return v, nil
}

func (d *Domain) MaxVcpus() (uint64, error) {
	v, err := d.client.DomainGetMaxVcpus(d.dom)
	if err != nil {
		return 0, fmt.Errorf("DomainGetMaxVcpus: %w", err)
	}
	if v < 0 {
		return 0, nil
	}
	return uint64(v), nil
}

func (d *Domain) XMLDesc() (string, error) {
	x, err := d.client.DomainGetXMLDesc(d.dom, 0)
	if err != nil {
		return "", fmt.Errorf("DomainGetXMLDesc: %w", err)
	}
	return x, nil
}

func asUint64(v any) (uint64, bool) {
	switch t := v.(type) {
	case uint64:
		return t, true
	case uint32:
		return uint64(t), true
	case int64:
		if t < 0 {
			return 0, true
		}
		return uint64(t), true
	case int32:
		if t < 0 {
			return 0, true
		}
		return uint64(t), true
	case float64:
		if t < 0 {
			return 0, true
		}
		return uint64(t), true
	default:
		return 0, false
	}
}

func uuidToString(u golibvirt.UUID) string {
	if len(u) != 16 {
		return ""
	}
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		uint32(u[0])<<24|uint32(u[1])<<16|uint32(u[2])<<8|uint32(u[3]),
		uint16(u[4])<<8|uint16(u[5]),
		uint16(u[6])<<8|uint16(u[7]),
		uint16(u[8])<<8|uint16(u[9]),
		uint64(u[10])<<40|uint64(u[11])<<32|uint64(u[12])<<24|uint64(u[13])<<16|uint64(u[14])<<8|uint64(u[15]),
	)
}
