package upstream

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"nimbus-tools/httptap/pkg/config"
)

// Build constructs the shared upstream HTTP client and the TLS configuration
// it dials with. The TLS configuration is also used by the WebSocket tunnel
// when it dials the upstream directly for an https target.
//
// Build never fails for degradable material (extra CA bundles, client
// certificates); those problems are logged and the client starts with
// reduced trust or without client authentication.
func Build(cfg *config.UpstreamConfig) (*http.Client, *tls.Config, error) {
	logger := slog.Default().With("component", "upstream")

	tlsCfg, err := buildTLSConfig(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	transport := &http.Transport{
		TLSClientConfig: tlsCfg,

		// HTTP/1.1 only: no h2 upgrade on the upstream leg.
		ForceAttemptHTTP2: false,
		TLSNextProto:      map[string]func(string, *tls.Conn) http.RoundTripper{},

		// The tap must forward bodies verbatim; transparent gzip would
		// rewrite what the client actually receives.
		DisableCompression: true,
	}

	client := &http.Client{
		Transport: transport,

		// 3xx responses belong to the tapped client, not the proxy.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},

		// No deadline on upstream exchanges. Intentional.
		Timeout: 0,
	}

	return client, tlsCfg, nil
}

// buildTLSConfig assembles the upstream TLS policy chosen once from
// configuration: either the strict verifier over system roots plus extra
// bundles, or the insecure accept-everything verifier.
func buildTLSConfig(cfg *config.UpstreamConfig, logger *slog.Logger) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		ServerName: cfg.ServerName,
	}

	if cfg.Insecure {
		// Dangerous: accepts any certificate and any handshake signature.
		tlsCfg.InsecureSkipVerify = true
		logger.Warn("upstream certificate verification is DISABLED")
		return tlsCfg, nil
	}

	roots, err := x509.SystemCertPool()
	if err != nil {
		return nil, fmt.Errorf("failed to load system trust roots: %w", err)
	}

	for _, bundle := range cfg.CABundles {
		pem, err := os.ReadFile(bundle)
		if err != nil {
			logger.Warn("skipping CA bundle", "path", bundle, "error", err)
			continue
		}
		if !roots.AppendCertsFromPEM(pem) {
			logger.Warn("skipping CA bundle: no certificates parsed", "path", bundle)
			continue
		}
		logger.Info("added upstream CA bundle", "path", bundle)
	}
	tlsCfg.RootCAs = roots

	if cfg.ClientCertFile != "" && cfg.ClientKeyFile != "" {
		cert, err := loadClientCertificate(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			logger.Warn("client authentication disabled", "error", err)
		} else {
			tlsCfg.Certificates = []tls.Certificate{*cert}
			logger.Info("upstream client certificate loaded", "cert", cfg.ClientCertFile)
		}
	}

	return tlsCfg, nil
}

// loadClientCertificate loads a PEM certificate chain and private key for
// mutual TLS. The key is parsed as PKCS#8 first, then as PKCS#1 RSA.
func loadClientCertificate(certFile, keyFile string) (*tls.Certificate, error) {
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return nil, fmt.Errorf("read client certificate %q: %w", certFile, err)
	}
	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("read client key %q: %w", keyFile, err)
	}

	chain, err := parseCertificateChain(certPEM)
	if err != nil {
		return nil, fmt.Errorf("parse client certificate %q: %w", certFile, err)
	}

	key, err := parsePrivateKey(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse client key %q: %w", keyFile, err)
	}

	return &tls.Certificate{
		Certificate: chain,
		PrivateKey:  key,
	}, nil
}
