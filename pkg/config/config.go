package config

// Config is the root configuration structure for httptap.
// It contains all configuration sections for the proxy engine, the tap log,
// upstream TLS, statistics, history persistence, and telemetry.
type Config struct {
	// Proxy contains listener configuration: listen address, target, and
	// optional inbound TLS material.
	Proxy ProxyConfig `yaml:"proxy"`

	// Tap contains configuration for the request/response tap log:
	// body logging, preview caps, and header redaction.
	Tap TapConfig `yaml:"tap"`

	// Upstream contains TLS policy for the upstream connection:
	// trust roots, client certificates, SNI, and the insecure switch.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Stats contains configuration for the best-effort stats event channel.
	Stats StatsConfig `yaml:"stats"`

	// History contains configuration for optional exchange persistence.
	History HistoryConfig `yaml:"history"`

	// Telemetry contains operational logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ProxyConfig contains configuration for the listener and the fixed upstream
// target.
type ProxyConfig struct {
	// ListenAddress is the address and port for the proxy to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8888").
	// Default: "127.0.0.1:8888"
	ListenAddress string `yaml:"listen_address"`

	// Target is the upstream endpoint every request is forwarded to.
	// Accepted forms: "host:port", "http://host:port", "https://host:port".
	// A bare "host:port" implies http.
	Target string `yaml:"target"`

	// HostOverride, when set, replaces the Host header sent upstream.
	// When empty the target authority is used. The client's original Host
	// is never forwarded.
	HostOverride string `yaml:"host_override"`

	// TLS contains inbound TLS configuration. When enabled, missing or
	// unparseable material is fatal at startup: the proxy refuses to start
	// rather than silently serve plaintext.
	TLS InboundTLSConfig `yaml:"tls"`
}

// InboundTLSConfig contains TLS configuration for the listening socket.
type InboundTLSConfig struct {
	// Enabled indicates whether the listener terminates TLS.
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM-encoded server certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded private key.
	KeyFile string `yaml:"key_file"`

	// Reload enables watching the certificate files and swapping the
	// serving certificate when they change. Reload failures keep the
	// previous certificate.
	// Default: false
	Reload bool `yaml:"reload"`
}

// TapConfig contains configuration for the deterministic tap log.
type TapConfig struct {
	// IncludeBodies controls whether body previews are printed.
	// Default: false
	IncludeBodies bool `yaml:"include_bodies"`

	// MaxBodyBytes caps the number of body bytes printed per message.
	// Bodies beyond the cap are forwarded in full but truncated in the log.
	// Default: 2048
	MaxBodyBytes int `yaml:"max_body_bytes"`

	// RedactHeaders lists header names whose values are replaced with a
	// redaction marker in the log. Matching is case-insensitive. The actual
	// header value is still forwarded unmodified.
	// Default: ["authorization", "cookie", "set-cookie"]
	RedactHeaders []string `yaml:"redact_headers"`
}

// UpstreamConfig contains TLS policy for upstream connections.
type UpstreamConfig struct {
	// Insecure disables certificate and hostname verification for upstream
	// HTTPS. Any certificate and any handshake signature is accepted. This
	// is the deliberately dangerous path; never enable it outside of
	// development.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// CABundles lists extra PEM CA bundle files appended to the system
	// trust roots. A bundle that cannot be opened or parsed is skipped with
	// a warning.
	CABundles []string `yaml:"ca_bundles"`

	// ClientCertFile is the path to a PEM client certificate chain for
	// mutual TLS. Both ClientCertFile and ClientKeyFile must be set for
	// client authentication to be attempted. Parse failures degrade to no
	// client authentication with a warning; they never fail startup.
	ClientCertFile string `yaml:"client_cert_file"`

	// ClientKeyFile is the path to the PEM private key for ClientCertFile.
	// PKCS#8 is tried first, then PKCS#1 RSA.
	ClientKeyFile string `yaml:"client_key_file"`

	// ServerName overrides the SNI/verification hostname for upstream TLS.
	// Useful when the target is addressed by IP.
	ServerName string `yaml:"server_name"`
}

// StatsConfig contains configuration for stats event production.
type StatsConfig struct {
	// Enabled controls whether stats events are emitted at all.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// BufferSize is the event channel capacity. Sends never block: when
	// the buffer is full events are dropped and counted.
	// Default: 10000
	BufferSize int `yaml:"buffer_size"`
}

// HistoryConfig contains configuration for exchange history persistence.
type HistoryConfig struct {
	// Enabled controls whether exchanges are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend: "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Path is the SQLite database file path.
	// Default: "data/history.db"
	Path string `yaml:"path"`

	// RetentionDays is the number of days to retain records. 0 keeps
	// records forever.
	// Default: 30
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for scheduled pruning.
	// Empty disables the scheduler.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains operational (slog) logging configuration. The tap
	// log is configured separately under tap.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains operational logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "text"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address for the /metrics endpoint.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Namespace is the metric name prefix.
	// Default: "httptap"
	Namespace string `yaml:"namespace"`
}
