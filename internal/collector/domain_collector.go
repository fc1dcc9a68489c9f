package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"libvirt-exporter/internal/model"
)

// DomainCollector runs extract, normalize and reconcile for every category of
// one domain.
type DomainCollector struct {
	logger    *slog.Logger
	extractor *Extractor
	registry  Registry
}

func NewDomainCollector(logger *slog.Logger, registry Registry) *DomainCollector {
	return &DomainCollector{
		logger:    logger,
		extractor: NewExtractor(logger),
		registry:  registry,
	}
}

// Collect processes the categories in fixed order. A failing category is
// logged and skipped; the joined failures are returned.
func (c *DomainCollector) Collect(ctx context.Context, dom Domain) error {
	name := dom.Name()
	var errs []error
	for _, cat := range model.Categories {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := c.extractor.Extract(dom, cat)
		if err != nil {
			c.logger.Warn("category extraction failed", "domain", name, "category", cat.String(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", cat, err))
			continue
		}

		set := Normalize(name, raw)
		for _, metric := range set.Names() {
			if err := c.registry.Reconcile(metric, cat.Help(), set[metric]); err != nil {
				c.logger.Error("metric reconcile failed", "domain", name, "metric", metric, "error", err)
				errs = append(errs, err)
			}
		}
		c.logger.Debug("category collected", "domain", name, "category", cat.String(), "observations", set.Len())
	}
	return errors.Join(errs...)
}
