package version

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"libvirt-exporter/internal/config"
)

func Get(cfg config.Config) Info {
	return Info{
		Version:         cfg.ExporterVersion,
		GoVersion:       runtime.Version(),
		ListenAddr:      cfg.ListenAddr,
		MetricsPath:     cfg.MetricsPath,
		ProbeListenAddr: cfg.ProbeListenAddr,
		StartedAtUnix:   time.Now().UTC().Unix(),
	}
}

// Register exposes libvirt_exporter_build_info, constant 1.
func Register(reg prometheus.Registerer, info Info) prometheus.Gauge {
	g := promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Namespace:   "libvirt_exporter",
		Name:        "build_info",
		Help:        "Build information of the running exporter.",
		ConstLabels: prometheus.Labels{"version": info.Version, "goversion": info.GoVersion},
	})
	g.Set(1)
	return g
}
