package libvirt

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	golibvirt "github.com/digitalocean/go-libvirt"
)

// Client is the subset of *golibvirt.Libvirt used by the exporter.
type Client interface {
	ConnectNumOfDomains() (int32, error)
	ConnectListDomains(maxids int32) ([]int32, error)
	DomainLookupByID(id int32) (golibvirt.Domain, error)
	DomainGetCPUStats(dom golibvirt.Domain, nparams uint32, startCPU int32, ncpus uint32, flags golibvirt.TypedParameterFlags) ([]golibvirt.TypedParam, int32, error)
	DomainMemoryStats(dom golibvirt.Domain, maxStats uint32, flags uint32) ([]golibvirt.DomainMemoryStat, error)
	DomainBlockStats(dom golibvirt.Domain, path string) (int64, int64, int64, int64, int64, error)
	DomainInterfaceStats(dom golibvirt.Domain, device string) (int64, int64, int64, int64, int64, int64, int64, int64, error)
	DomainIsActive(dom golibvirt.Domain) (int32, error)
	DomainGetMaxMemory(dom golibvirt.Domain) (uint64, error)
	DomainGetMaxVcpus(dom golibvirt.Domain) (int32, error)
	DomainGetXMLDesc(dom golibvirt.Domain, flags golibvirt.DomainXMLFlags) (string, error)
	Disconnect() error
}

var _ Client = (*golibvirt.Libvirt)(nil)

type dialFunc func(uri *url.URL) (Client, error)

func dialLibvirt(uri *url.URL) (Client, error) {
	return golibvirt.ConnectToURI(uri)
}

// Connector opens one libvirt connection per poll cycle.
type Connector struct {
	uri    string
	logger *slog.Logger
	dial   dialFunc
}

func NewConnector(uri string, logger *slog.Logger) *Connector {
	return &Connector{uri: uri, logger: logger, dial: dialLibvirt}
}

// Open dials once; there is no retry here, the scheduler retries at the
// next cycle.
func (c *Connector) Open(ctx context.Context) (*Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	uri, err := c.parseURI()
	if err != nil {
		return nil, err
	}
	client, err := c.dial(uri)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", uri.Redacted(), err)
	}
	c.logger.Info("libvirt connected", "uri", uri.Redacted())
	return &Conn{client: client, logger: c.logger}, nil
}

func (c *Connector) parseURI() (*url.URL, error) {
	raw := c.uri
	if raw == "" {
		raw = string(golibvirt.QEMUSystem)
	}
	uri, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse libvirt uri %q: %w", raw, err)
	}
	if uri.Scheme == "" {
		return nil, fmt.Errorf("libvirt uri %q has no scheme", raw)
	}
	return uri, nil
}

// Conn is a cycle-scoped libvirt session.
type Conn struct {
	client Client
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// ActiveDomains lists running domain IDs and resolves each one. Domains that
// vanish between listing and lookup are skipped.
func (c *Conn) ActiveDomains(_ context.Context) ([]*Domain, error) {
	n, err := c.client.ConnectNumOfDomains()
	if err != nil {
		return nil, fmt.Errorf("ConnectNumOfDomains: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	ids, err := c.client.ConnectListDomains(n)
	if err != nil {
		return nil, fmt.Errorf("ConnectListDomains: %w", err)
	}

	out := make([]*Domain, 0, len(ids))
	for _, id := range ids {
		dom, err := c.client.DomainLookupByID(id)
		if err != nil {
			c.logger.Warn("domain lookup failed, skipping", "domain_id", id, "error", err)
			continue
		}
		c.logger.Debug("domain resolved", "domain", dom.Name, "domain_id", id, "uuid", uuidToString(dom.UUID))
		out = append(out, &Domain{client: c.client, dom: dom})
	}
	return out, nil
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.client.Disconnect()
	})
	return c.closeErr
}
