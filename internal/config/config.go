package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const HardcodedVersion string = "V0.3"

var ErrMissingEnv = errors.New("required environment variable is not set")

type Config struct {
	LibvirtURI            string
	ScrapeInterval        time.Duration
	ListenAddr            string
	MetricsPath           string
	ProbeListenAddr       string
	EmptyRetryMaxTries    int
	EmptyRetryMaxInterval time.Duration
	HealthInterval        time.Duration
	ShutdownTimeout       time.Duration
	ExporterVersion       string
	LogJSON               bool
	LogLevel              string
}

func Load() (Config, error) {
	interval, err := requiredSeconds("SCRAPE_INTERVAL")
	if err != nil {
		return Config{}, err
	}
	uri, err := required("LIBVIRT_URI")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		LibvirtURI:            uri,
		ScrapeInterval:        interval,
		ListenAddr:            env("EXPORTER_LISTEN_ADDR", ":9177"),
		MetricsPath:           env("EXPORTER_METRICS_PATH", "/metrics"),
		ProbeListenAddr:       strings.TrimSpace(os.Getenv("EXPORTER_PROBE_ADDR")),
		EmptyRetryMaxTries:    envInt("EXPORTER_EMPTY_RETRY_MAX_TRIES", 5),
		EmptyRetryMaxInterval: envDuration("EXPORTER_EMPTY_RETRY_MAX_INTERVAL", time.Minute),
		HealthInterval:        envDuration("EXPORTER_HEALTH_INTERVAL", 10*time.Second),
		ShutdownTimeout:       envDuration("EXPORTER_SHUTDOWN_TIMEOUT", 20*time.Second),
		ExporterVersion:       HardcodedVersion,
		LogJSON:               envBool("EXPORTER_LOG_JSON", false),
		LogLevel:              strings.ToLower(env("EXPORTER_LOG_LEVEL", "info")),
	}
	if _, set := os.LookupEnv("EXPORTER_PROBE_ADDR"); !set {
		cfg.ProbeListenAddr = "0.0.0.0:9178"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.LibvirtURI == "" {
		return errors.New("LIBVIRT_URI is required")
	}
	if c.ScrapeInterval <= 0 {
		return errors.New("SCRAPE_INTERVAL must be > 0")
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("EXPORTER_LISTEN_ADDR is required")
	}
	if !strings.HasPrefix(c.MetricsPath, "/") {
		return fmt.Errorf("EXPORTER_METRICS_PATH must start with /, got %q", c.MetricsPath)
	}
	if c.EmptyRetryMaxTries <= 0 {
		return errors.New("EXPORTER_EMPTY_RETRY_MAX_TRIES must be > 0")
	}
	if c.EmptyRetryMaxInterval <= 0 {
		return errors.New("EXPORTER_EMPTY_RETRY_MAX_INTERVAL must be > 0")
	}
	if c.HealthInterval <= 0 {
		return errors.New("EXPORTER_HEALTH_INTERVAL must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("EXPORTER_SHUTDOWN_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(c.ExporterVersion) == "" {
		return errors.New("exporter version must not be empty")
	}
	return nil
}

// required reads a mandatory variable; unlike env there is no fallback.
func required(key string) (string, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return "", fmt.Errorf("%s: %w", key, ErrMissingEnv)
	}
	return v, nil
}

func requiredSeconds(key string) (time.Duration, error) {
	v, err := required(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer number of seconds: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be > 0, got %d", key, n)
	}
	return time.Duration(n) * time.Second, nil
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
