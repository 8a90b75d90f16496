// Package config provides configuration management for httptap.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention HTTPTAP_SECTION_FIELD.
// For example:
//
//   - HTTPTAP_PROXY_LISTEN_ADDRESS overrides proxy.listen_address
//   - HTTPTAP_UPSTREAM_INSECURE overrides upstream.insecure
//   - HTTPTAP_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Example Configuration
//
//	proxy:
//	  listen_address: "127.0.0.1:8888"
//	  target: "https://api.internal:8443"
//	  tls:
//	    enabled: true
//	    cert_file: "certs/server.pem"
//	    key_file: "certs/server-key.pem"
//	tap:
//	  include_bodies: true
//	  max_body_bytes: 2048
//	  redact_headers: ["authorization", "cookie", "set-cookie"]
//	upstream:
//	  ca_bundles: ["certs/internal-ca.pem"]
//	  client_cert_file: "certs/client.pem"
//	  client_key_file: "certs/client-key.pem"
package config
