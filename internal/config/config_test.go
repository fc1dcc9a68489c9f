package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("SCRAPE_INTERVAL", "5")
	t.Setenv("LIBVIRT_URI", "qemu:///system")
	t.Setenv("EXPORTER_LOG_LEVEL", "DEBUG")
	t.Setenv("EXPORTER_EMPTY_RETRY_MAX_TRIES", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.ScrapeInterval)
	assert.Equal(t, "qemu:///system", cfg.LibvirtURI)
	assert.Equal(t, ":9177", cfg.ListenAddr)
	assert.Equal(t, "/metrics", cfg.MetricsPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.EmptyRetryMaxTries)
	assert.Equal(t, HardcodedVersion, cfg.ExporterVersion)
}

func TestLoadProbeAddr(t *testing.T) {
	t.Setenv("SCRAPE_INTERVAL", "5")
	t.Setenv("LIBVIRT_URI", "qemu:///system")

	t.Setenv("EXPORTER_PROBE_ADDR", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.ProbeListenAddr, "explicitly empty address disables the probe")

	t.Setenv("EXPORTER_PROBE_ADDR", "127.0.0.1:7000")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.ProbeListenAddr)
}

func TestLoadScrapeIntervalErrors(t *testing.T) {
	tests := []struct {
		name     string
		interval string
		missing  bool
	}{
		{name: "missing", interval: "", missing: true},
		{name: "not an integer", interval: "5s"},
		{name: "float", interval: "2.5"},
		{name: "zero", interval: "0"},
		{name: "negative", interval: "-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SCRAPE_INTERVAL", tt.interval)
			t.Setenv("LIBVIRT_URI", "qemu:///system")

			_, err := Load()
			require.Error(t, err)
			if tt.missing {
				assert.ErrorIs(t, err, ErrMissingEnv)
			}
		})
	}
}

func TestLoadMissingURI(t *testing.T) {
	t.Setenv("SCRAPE_INTERVAL", "5")
	t.Setenv("LIBVIRT_URI", "")

	_, err := Load()
	require.ErrorIs(t, err, ErrMissingEnv)
	assert.Contains(t, err.Error(), "LIBVIRT_URI")
}

func TestValidate(t *testing.T) {
	valid := Config{
		LibvirtURI:            "qemu:///system",
		ScrapeInterval:        time.Second,
		ListenAddr:            ":9177",
		MetricsPath:           "/metrics",
		EmptyRetryMaxTries:    1,
		EmptyRetryMaxInterval: time.Second,
		HealthInterval:        time.Second,
		ShutdownTimeout:       time.Second,
		ExporterVersion:       "test",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "metrics path", mutate: func(c *Config) { c.MetricsPath = "metrics" }},
		{name: "retry tries", mutate: func(c *Config) { c.EmptyRetryMaxTries = 0 }},
		{name: "retry interval", mutate: func(c *Config) { c.EmptyRetryMaxInterval = 0 }},
		{name: "listen addr", mutate: func(c *Config) { c.ListenAddr = " " }},
		{name: "shutdown timeout", mutate: func(c *Config) { c.ShutdownTimeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
