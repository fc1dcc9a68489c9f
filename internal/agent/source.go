package agent

import (
	"context"

	"libvirt-exporter/internal/collector"
	"libvirt-exporter/internal/libvirt"
)

var _ collector.Domain = (*libvirt.Domain)(nil)

// libvirtSource adapts the go-libvirt connector to the collector's Source.
type libvirtSource struct {
	connector *libvirt.Connector
}

func newLibvirtSource(c *libvirt.Connector) collector.Source {
	return libvirtSource{connector: c}
}

func (s libvirtSource) Open(ctx context.Context) (collector.Session, error) {
	conn, err := s.connector.Open(ctx)
	if err != nil {
		return nil, err
	}
	return libvirtSession{conn: conn}, nil
}

type libvirtSession struct {
	conn *libvirt.Conn
}

func (s libvirtSession) ActiveDomains(ctx context.Context) ([]collector.Domain, error) {
	doms, err := s.conn.ActiveDomains(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]collector.Domain, len(doms))
	for i, d := range doms {
		out[i] = d
	}
	return out, nil
}

func (s libvirtSession) Close() error {
	return s.conn.Close()
}
