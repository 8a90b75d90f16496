package taplog

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Markers used in tap output.
const (
	RedactedMarker = "<redacted>"
	NoBodyMarker   = "<no body>"
)

// Config contains configuration for the tap logger.
type Config struct {
	// IncludeBodies controls whether body previews are printed.
	IncludeBodies bool

	// MaxBodyBytes caps the preview length per message.
	MaxBodyBytes int

	// RedactHeaders lists header names (case-insensitive) whose values are
	// replaced with RedactedMarker in the output.
	RedactHeaders []string

	// Writer is the output sink (defaults to os.Stdout).
	Writer io.Writer
}

// Logger writes one deterministic block per request and per response.
// Headers are printed in lexicographic name order; timestamps are RFC3339
// UTC; redaction applies to the log only, never to the forwarded values.
//
// Logger is a pure side effect: a failed write is ignored and never
// surfaces to the request path.
type Logger struct {
	mu            sync.Mutex
	w             io.Writer
	includeBodies bool
	maxBodyBytes  int
	redact        map[string]struct{}
}

// New creates a tap logger from the given configuration.
func New(cfg Config) *Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	redact := make(map[string]struct{}, len(cfg.RedactHeaders))
	for _, name := range cfg.RedactHeaders {
		redact[strings.ToLower(name)] = struct{}{}
	}
	return &Logger{
		w:             w,
		includeBodies: cfg.IncludeBodies,
		maxBodyBytes:  cfg.MaxBodyBytes,
		redact:        redact,
	}
}

// Request logs one outbound request block.
func (l *Logger) Request(connID uint64, ts time.Time, method, uri, peer string, headers http.Header, body []byte) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n[conn#%d] %s REQUEST %s %s from %s\n", connID, stamp(ts), method, uri, peer)
	l.writeHeaders(&b, "→", headers)
	if l.includeBodies {
		l.writeBody(&b, "→", body)
	}
	l.emit(b.String())
}

// Response logs one response block. Synthesized error responses are logged
// through the same path.
func (l *Logger) Response(connID uint64, ts time.Time, status int, headers http.Header, body []byte) {
	var b strings.Builder
	fmt.Fprintf(&b, "[conn#%d] %s RESPONSE %d %s\n", connID, stamp(ts), status, http.StatusText(status))
	l.writeHeaders(&b, "←", headers)
	if l.includeBodies {
		l.writeBody(&b, "←", body)
	}
	l.emit(b.String())
}

func (l *Logger) emit(block string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	// Write failures are swallowed: the tap never aborts a request.
	_, _ = io.WriteString(l.w, block)
}

func (l *Logger) writeHeaders(b *strings.Builder, prefix string, headers http.Header) {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, strings.ToLower(name))
	}
	sort.Strings(names)

	for _, name := range names {
		values := headers.Values(name)
		if _, redacted := l.redact[name]; redacted {
			for range values {
				fmt.Fprintf(b, "%s %s: %s\n", prefix, name, RedactedMarker)
			}
			continue
		}
		for _, value := range values {
			fmt.Fprintf(b, "%s %s: %s\n", prefix, name, value)
		}
	}
}

func (l *Logger) writeBody(b *strings.Builder, prefix string, body []byte) {
	if len(body) == 0 {
		fmt.Fprintf(b, "%s %s\n", prefix, NoBodyMarker)
		return
	}

	take := len(body)
	if take > l.maxBodyBytes {
		take = l.maxBodyBytes
	}
	printable := strings.ToValidUTF8(string(body[:take]), "�")

	if take < len(body) {
		fmt.Fprintf(b, "%s body (%d / %d bytes, truncated):\n%s\n…\n", prefix, take, len(body), printable)
	} else {
		fmt.Fprintf(b, "%s body (%d bytes):\n%s\n", prefix, len(body), printable)
	}
}

func stamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
