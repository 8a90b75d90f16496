package proxy

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// certReloadDebounce is the quiet period after a file event before the key
// pair is reloaded, so that a cert+key rewrite produces one reload instead
// of two half-consistent ones.
const certReloadDebounce = 250 * time.Millisecond

// CertReloader serves the inbound listener certificate and swaps it when
// the files change on disk. The initial load is fatal; later reload
// failures keep the previous certificate.
type CertReloader struct {
	certFile string
	keyFile  string
	logger   *slog.Logger

	mu   sync.RWMutex
	cert *tls.Certificate
}

// NewCertReloader loads the key pair and returns a reloader holding it.
func NewCertReloader(certFile, keyFile string, logger *slog.Logger) (*CertReloader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &CertReloader{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   logger,
	}
	if err := r.reload(); err != nil {
		return nil, fmt.Errorf("loading listener certificate: %w", err)
	}
	r.logCertificate()
	return r, nil
}

// GetCertificate is wired into tls.Config.GetCertificate so new handshakes
// pick up a swapped certificate without a listener restart.
func (r *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}

// Watch blocks processing file events until ctx is cancelled. Events are
// watched on the parent directories because editors and cert renewers
// typically replace files via rename, which drops a per-file watch.
func (r *CertReloader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating certificate watcher: %w", err)
	}
	defer watcher.Close()

	dirs := map[string]struct{}{
		filepath.Dir(r.certFile): {},
		filepath.Dir(r.keyFile):  {},
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %q: %w", dir, err)
		}
	}

	r.logger.Info("certificate reload watcher started",
		"cert_file", r.certFile,
		"key_file", r.keyFile,
	)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	schedule := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(certReloadDebounce, func() {
			if err := r.reload(); err != nil {
				r.logger.Error("certificate reload failed, keeping previous certificate",
					"error", err,
				)
				return
			}
			r.logger.Info("certificate reloaded", "cert_file", r.certFile)
			r.logCertificate()
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("certificate reload watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("certificate watcher events channel closed")
			}
			if !r.relevant(event) {
				continue
			}
			r.logger.Debug("certificate file event",
				"path", event.Name,
				"op", event.Op.String(),
			)
			schedule()

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("certificate watcher errors channel closed")
			}
			r.logger.Error("certificate watcher error", "error", err)
		}
	}
}

func (r *CertReloader) relevant(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(event.Name)
	return name == filepath.Clean(r.certFile) || name == filepath.Clean(r.keyFile)
}

func (r *CertReloader) reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.cert = &cert
	r.mu.Unlock()
	return nil
}

func (r *CertReloader) logCertificate() {
	r.mu.RLock()
	cert := r.cert
	r.mu.RUnlock()
	if cert == nil || len(cert.Certificate) == 0 {
		return
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return
	}
	r.logger.Info("listener certificate loaded",
		"subject", leaf.Subject.CommonName,
		"expires_at", leaf.NotAfter.Format(time.RFC3339),
	)
}
