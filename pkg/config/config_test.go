package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeTarget(t *testing.T) {
	tests := []struct {
		name          string
		target        string
		wantScheme    string
		wantAuthority string
		expectError   bool
	}{
		{
			name:          "bare authority implies http",
			target:        "localhost:9000",
			wantScheme:    "http",
			wantAuthority: "localhost:9000",
		},
		{
			name:          "explicit http",
			target:        "http://localhost:9000",
			wantScheme:    "http",
			wantAuthority: "localhost:9000",
		},
		{
			name:          "explicit https",
			target:        "https://api.internal:8443",
			wantScheme:    "https",
			wantAuthority: "api.internal:8443",
		},
		{
			name:          "trailing slash tolerated",
			target:        "http://localhost:9000/",
			wantScheme:    "http",
			wantAuthority: "localhost:9000",
		},
		{
			name:        "empty target",
			target:      "",
			expectError: true,
		},
		{
			name:        "unsupported scheme",
			target:      "ftp://localhost:21",
			expectError: true,
		},
		{
			name:        "base path rejected",
			target:      "http://localhost:9000/api",
			expectError: true,
		},
		{
			name:        "query rejected",
			target:      "localhost:9000?x=1",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheme, authority, err := NormalizeTarget(tt.target)
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error, got scheme=%q authority=%q", scheme, authority)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if scheme != tt.wantScheme {
				t.Errorf("scheme = %q, want %q", scheme, tt.wantScheme)
			}
			if authority != tt.wantAuthority {
				t.Errorf("authority = %q, want %q", authority, tt.wantAuthority)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Proxy.ListenAddress != DefaultListenAddress {
		t.Errorf("listen_address = %q, want %q", cfg.Proxy.ListenAddress, DefaultListenAddress)
	}
	if cfg.Tap.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Errorf("max_body_bytes = %d, want %d", cfg.Tap.MaxBodyBytes, DefaultMaxBodyBytes)
	}
	if len(cfg.Tap.RedactHeaders) != len(DefaultRedactHeaders) {
		t.Errorf("redact_headers = %v, want %v", cfg.Tap.RedactHeaders, DefaultRedactHeaders)
	}
	if cfg.Stats.BufferSize != DefaultStatsBufferSize {
		t.Errorf("stats.buffer_size = %d, want %d", cfg.Stats.BufferSize, DefaultStatsBufferSize)
	}
	if cfg.History.PruneSchedule != DefaultHistoryPruneSchedule {
		t.Errorf("history.prune_schedule = %q, want %q", cfg.History.PruneSchedule, DefaultHistoryPruneSchedule)
	}
	if cfg.Telemetry.Logging.Level != DefaultLogLevel {
		t.Errorf("logging.level = %q, want %q", cfg.Telemetry.Logging.Level, DefaultLogLevel)
	}
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Proxy.ListenAddress = "0.0.0.0:1234"
	cfg.Tap.MaxBodyBytes = 16
	cfg.Tap.RedactHeaders = []string{}

	ApplyDefaults(cfg)

	if cfg.Proxy.ListenAddress != "0.0.0.0:1234" {
		t.Errorf("listen_address overwritten: %q", cfg.Proxy.ListenAddress)
	}
	if cfg.Tap.MaxBodyBytes != 16 {
		t.Errorf("max_body_bytes overwritten: %d", cfg.Tap.MaxBodyBytes)
	}
	if len(cfg.Tap.RedactHeaders) != 0 {
		t.Errorf("explicit empty redact set overwritten: %v", cfg.Tap.RedactHeaders)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := NewConfig()
		cfg.Proxy.Target = "localhost:9000"
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:      "missing target",
			mutate:    func(c *Config) { c.Proxy.Target = "" },
			wantField: "proxy.target",
		},
		{
			name:      "bad listen address",
			mutate:    func(c *Config) { c.Proxy.ListenAddress = "nonsense" },
			wantField: "proxy.listen_address",
		},
		{
			name: "tls enabled without cert",
			mutate: func(c *Config) {
				c.Proxy.TLS.Enabled = true
				c.Proxy.TLS.KeyFile = "key.pem"
			},
			wantField: "proxy.tls.cert_file",
		},
		{
			name: "unknown history backend",
			mutate: func(c *Config) {
				c.History.Enabled = true
				c.History.Backend = "postgres"
			},
			wantField: "history.backend",
		},
		{
			name: "bad prune schedule",
			mutate: func(c *Config) {
				c.History.Enabled = true
				c.History.PruneSchedule = "whenever"
			},
			wantField: "history.prune_schedule",
		},
		{
			name:      "unknown log level",
			mutate:    func(c *Config) { c.Telemetry.Logging.Level = "loud" },
			wantField: "telemetry.logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error mentioning %q, got nil", tt.wantField)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantField)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
proxy:
  listen_address: "127.0.0.1:7777"
  target: "https://api.internal:8443"
tap:
  include_bodies: true
  max_body_bytes: 64
stats:
  enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Proxy.ListenAddress != "127.0.0.1:7777" {
		t.Errorf("listen_address = %q", cfg.Proxy.ListenAddress)
	}
	if !cfg.Tap.IncludeBodies || cfg.Tap.MaxBodyBytes != 64 {
		t.Errorf("tap = %+v", cfg.Tap)
	}
	if cfg.Stats.Enabled {
		t.Error("stats.enabled explicit false was overridden")
	}
	// Defaults still fill the rest.
	if cfg.History.Backend != DefaultHistoryBackend {
		t.Errorf("history.backend = %q", cfg.History.Backend)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("proxy:\n  target: \"localhost:9000\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HTTPTAP_PROXY_LISTEN_ADDRESS", "127.0.0.1:7070")
	t.Setenv("HTTPTAP_UPSTREAM_INSECURE", "true")
	t.Setenv("HTTPTAP_TAP_REDACT_HEADERS", "authorization, x-api-key")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides: %v", err)
	}

	if cfg.Proxy.ListenAddress != "127.0.0.1:7070" {
		t.Errorf("listen_address = %q", cfg.Proxy.ListenAddress)
	}
	if !cfg.Upstream.Insecure {
		t.Error("upstream.insecure not overridden")
	}
	want := []string{"authorization", "x-api-key"}
	if len(cfg.Tap.RedactHeaders) != len(want) || cfg.Tap.RedactHeaders[1] != "x-api-key" {
		t.Errorf("redact_headers = %v, want %v", cfg.Tap.RedactHeaders, want)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
