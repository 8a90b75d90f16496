package config

// Default values for configuration fields.
const (
	// Proxy defaults
	DefaultListenAddress = "127.0.0.1:8888"

	// Tap defaults
	DefaultIncludeBodies = false
	DefaultMaxBodyBytes  = 2048

	// Stats defaults
	DefaultStatsEnabled    = true
	DefaultStatsBufferSize = 10000

	// History defaults
	DefaultHistoryEnabled       = false
	DefaultHistoryBackend       = "sqlite"
	DefaultHistoryPath          = "data/history.db"
	DefaultHistoryRetentionDays = 30
	DefaultHistoryPruneSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "text"
	DefaultMetricsEnabled       = false
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultMetricsNamespace     = "httptap"
)

// DefaultRedactHeaders is the default tap log redaction set.
var DefaultRedactHeaders = []string{"authorization", "cookie", "set-cookie"}

// ApplyDefaults fills in default values for any unset configuration fields.
// It modifies the configuration in place.
func ApplyDefaults(cfg *Config) {
	if cfg.Proxy.ListenAddress == "" {
		cfg.Proxy.ListenAddress = DefaultListenAddress
	}

	if cfg.Tap.MaxBodyBytes == 0 {
		cfg.Tap.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Tap.RedactHeaders == nil {
		cfg.Tap.RedactHeaders = append([]string(nil), DefaultRedactHeaders...)
	}

	if cfg.Stats.BufferSize == 0 {
		cfg.Stats.BufferSize = DefaultStatsBufferSize
	}

	if cfg.History.Backend == "" {
		cfg.History.Backend = DefaultHistoryBackend
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.History.RetentionDays == 0 {
		cfg.History.RetentionDays = DefaultHistoryRetentionDays
	}
	if cfg.History.PruneSchedule == "" {
		cfg.History.PruneSchedule = DefaultHistoryPruneSchedule
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
}
