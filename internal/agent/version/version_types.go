package version

// Info describes the running exporter build.
type Info struct {
	Version         string `json:"version"`
	GoVersion       string `json:"go_version"`
	ListenAddr      string `json:"listen_addr"`
	MetricsPath     string `json:"metrics_path"`
	ProbeListenAddr string `json:"probe_listen_addr"`
	StartedAtUnix   int64  `json:"started_at_unix"`
}

// LogAttrs flattens Info into slog key/value pairs.
func (i Info) LogAttrs() []any {
	return []any{
		"version", i.Version,
		"go_version", i.GoVersion,
		"listen_addr", i.ListenAddr,
		"metrics_path", i.MetricsPath,
		"probe_listen_addr", i.ProbeListenAddr,
	}
}
