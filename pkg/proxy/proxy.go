package proxy

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"

	"nimbus-tools/httptap/pkg/config"
	"nimbus-tools/httptap/pkg/history"
	"nimbus-tools/httptap/pkg/stats"
	"nimbus-tools/httptap/pkg/taplog"
)

// Proxy is the intercepting engine: it owns the listener, the shared
// upstream client, the tap log, and the connection-id counter.
//
// A single Proxy value is shared by every connection goroutine. The
// configuration and upstream client are read-only after New; the only
// mutable shared state is the connection-id counter, which is advanced
// atomically.
type Proxy struct {
	cfg       *config.Config
	scheme    string
	authority string

	client      *http.Client
	upstreamTLS *tls.Config

	tap      *taplog.Logger
	sender   *stats.Sender
	metrics  *stats.Metrics
	recorder *history.Recorder
	logger   *slog.Logger

	reloader *CertReloader

	// connSeq mints connection ids: globally unique, strictly increasing,
	// never reused for the lifetime of the process.
	connSeq atomic.Uint64

	server *http.Server
}

// Options carries the optional collaborators of a Proxy.
type Options struct {
	// Sender receives one stats event per forwarded non-tunnel request.
	Sender *stats.Sender

	// Metrics receives aggregate counters. Nil disables metric recording.
	Metrics *stats.Metrics

	// Recorder persists exchange summaries. Nil disables history.
	Recorder *history.Recorder

	// TapWriter overrides the tap log destination (defaults to stdout).
	TapWriter io.Writer
}

// New creates a proxy from validated configuration and the upstream client
// built once at startup. When inbound TLS is enabled the certificate
// material is loaded here: missing or unparseable material is a startup
// error: the proxy refuses to start rather than silently serve plaintext.
func New(cfg *config.Config, client *http.Client, upstreamTLS *tls.Config, opts Options) (*Proxy, error) {
	scheme, authority, err := config.NormalizeTarget(cfg.Proxy.Target)
	if err != nil {
		return nil, fmt.Errorf("invalid target: %w", err)
	}

	p := &Proxy{
		cfg:         cfg,
		scheme:      scheme,
		authority:   authority,
		client:      client,
		upstreamTLS: upstreamTLS,
		sender:      opts.Sender,
		metrics:     opts.Metrics,
		recorder:    opts.Recorder,
		logger:      slog.Default().With("component", "proxy"),
		tap: taplog.New(taplog.Config{
			IncludeBodies: cfg.Tap.IncludeBodies,
			MaxBodyBytes:  cfg.Tap.MaxBodyBytes,
			RedactHeaders: cfg.Tap.RedactHeaders,
			Writer:        opts.TapWriter,
		}),
	}

	if cfg.Proxy.TLS.Enabled {
		reloader, err := NewCertReloader(cfg.Proxy.TLS.CertFile, cfg.Proxy.TLS.KeyFile, p.logger)
		if err != nil {
			return nil, fmt.Errorf("inbound TLS material: %w", err)
		}
		p.reloader = reloader
	}

	// No read/write/idle timeouts anywhere: the absence of deadlines is an
	// intentional property of this engine.
	p.server = &http.Server{
		Handler:     p,
		ConnContext: p.connContext,
		ErrorLog:    slog.NewLogLogger(p.logger.Handler(), slog.LevelWarn),
	}

	return p, nil
}

type connIDKey struct{}

// connContext runs once per accepted connection, before any request is
// served, and stamps the connection's id into its context.
func (p *Proxy) connContext(ctx context.Context, c net.Conn) context.Context {
	id := p.connSeq.Add(1)
	p.logger.Debug("connection accepted", "conn_id", id, "peer", c.RemoteAddr().String())
	return context.WithValue(ctx, connIDKey{}, id)
}

// ConnID extracts the connection id from a request context. It returns 0
// for requests that did not pass through the proxy's own listener.
func ConnID(ctx context.Context) uint64 {
	id, _ := ctx.Value(connIDKey{}).(uint64)
	return id
}

// Start binds the configured listen address and serves until the context is
// cancelled. Inbound TLS handshakes happen inside each connection's own
// goroutine; a failed handshake is logged by the server and abandons only
// that connection.
func (p *Proxy) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", p.cfg.Proxy.ListenAddress)
	if err != nil {
		return fmt.Errorf("bind %s: %w", p.cfg.Proxy.ListenAddress, err)
	}

	if p.reloader != nil && p.cfg.Proxy.TLS.Reload {
		go func() {
			if err := p.reloader.Watch(ctx); err != nil {
				p.logger.Warn("certificate watch unavailable", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		_ = p.server.Shutdown(context.Background())
	}()

	p.logger.Info("httptap listening",
		"listen", p.cfg.Proxy.ListenAddress,
		"tls", p.reloader != nil,
		"target", fmt.Sprintf("%s://%s", p.scheme, p.authority),
	)

	return p.Serve(ln)
}

// Serve accepts connections from ln until the server is shut down. When
// inbound TLS is configured the listener is wrapped so the handshake runs
// per connection, never in the accept loop.
func (p *Proxy) Serve(ln net.Listener) error {
	if p.reloader != nil {
		ln = tls.NewListener(ln, &tls.Config{
			GetCertificate: p.reloader.GetCertificate,
		})
	}

	if err := p.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener and waits for in-flight exchanges.
func (p *Proxy) Shutdown(ctx context.Context) error {
	return p.server.Shutdown(ctx)
}

// Target returns the normalized upstream scheme and authority.
func (p *Proxy) Target() (scheme, authority string) {
	return p.scheme, p.authority
}
