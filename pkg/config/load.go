package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// NewConfig returns a configuration with every default applied. Boolean
// fields whose default is true (stats.enabled) are seeded here so that a
// subsequent unmarshal only changes them when the file sets them explicitly.
func NewConfig() *Config {
	cfg := &Config{
		Stats: StatsConfig{Enabled: DefaultStatsEnabled},
	}
	ApplyDefaults(cfg)
	return cfg
}

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention HTTPTAP_SECTION_FIELD (e.g., HTTPTAP_PROXY_LISTEN_ADDRESS) and
// always take precedence over file-based configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("HTTPTAP_PROXY_LISTEN_ADDRESS"); val != "" {
		cfg.Proxy.ListenAddress = val
	}
	if val := os.Getenv("HTTPTAP_PROXY_TARGET"); val != "" {
		cfg.Proxy.Target = val
	}
	if val := os.Getenv("HTTPTAP_PROXY_HOST_OVERRIDE"); val != "" {
		cfg.Proxy.HostOverride = val
	}
	if val := os.Getenv("HTTPTAP_TAP_INCLUDE_BODIES"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Tap.IncludeBodies = b
		}
	}
	if val := os.Getenv("HTTPTAP_TAP_MAX_BODY_BYTES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Tap.MaxBodyBytes = n
		}
	}
	if val := os.Getenv("HTTPTAP_TAP_REDACT_HEADERS"); val != "" {
		cfg.Tap.RedactHeaders = splitList(val)
	}
	if val := os.Getenv("HTTPTAP_UPSTREAM_INSECURE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Upstream.Insecure = b
		}
	}
	if val := os.Getenv("HTTPTAP_UPSTREAM_CA_BUNDLES"); val != "" {
		cfg.Upstream.CABundles = splitList(val)
	}
	if val := os.Getenv("HTTPTAP_UPSTREAM_SERVER_NAME"); val != "" {
		cfg.Upstream.ServerName = val
	}
	if val := os.Getenv("HTTPTAP_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("HTTPTAP_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
