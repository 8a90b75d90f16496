package proxy

import (
	"net/http"
	"net/url"
	"testing"

	"nimbus-tools/httptap/pkg/config"
)

func TestIsWebSocketUpgrade(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string][]string
		want    bool
	}{
		{
			name: "canonical upgrade",
			headers: map[string][]string{
				"Upgrade":    {"websocket"},
				"Connection": {"Upgrade"},
			},
			want: true,
		},
		{
			name: "mixed case",
			headers: map[string][]string{
				"Upgrade":    {"WebSocket"},
				"Connection": {"UPGRADE"},
			},
			want: true,
		},
		{
			name: "upgrade among connection tokens",
			headers: map[string][]string{
				"Upgrade":    {"websocket"},
				"Connection": {"keep-alive, Upgrade"},
			},
			want: true,
		},
		{
			name: "token match not substring match",
			headers: map[string][]string{
				"Upgrade":    {"websocket"},
				"Connection": {"no-upgrade"},
			},
			want: false,
		},
		{
			name: "upgrade header missing",
			headers: map[string][]string{
				"Connection": {"Upgrade"},
			},
			want: false,
		},
		{
			name: "non-websocket upgrade",
			headers: map[string][]string{
				"Upgrade":    {"h2c"},
				"Connection": {"Upgrade"},
			},
			want: false,
		},
		{
			name: "connection header missing",
			headers: map[string][]string{
				"Upgrade": {"websocket"},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for name, values := range tt.headers {
				for _, v := range values {
					h.Add(name, v)
				}
			}
			if got := isWebSocketUpgrade(h); got != tt.want {
				t.Errorf("isWebSocketUpgrade() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStripHopByHop(t *testing.T) {
	h := http.Header{}
	h.Set("Connection", "keep-alive")
	h.Set("Proxy-Connection", "keep-alive")
	h.Set("Keep-Alive", "timeout=5")
	h.Set("Transfer-Encoding", "chunked")
	h.Set("Upgrade", "websocket")
	h.Set("Te", "trailers")
	h.Set("Trailer", "Expires")
	h.Set("Content-Type", "application/json")
	h.Set("X-Request-Id", "abc123")

	stripHopByHop(h)

	for _, name := range hopByHopHeaders {
		if h.Get(name) != "" {
			t.Errorf("header %s survived the strip", name)
		}
	}
	if h.Get("Content-Type") != "application/json" {
		t.Error("end-to-end Content-Type was removed")
	}
	if h.Get("X-Request-Id") != "abc123" {
		t.Error("end-to-end X-Request-Id was removed")
	}
}

func TestRewriteURL(t *testing.T) {
	p := &Proxy{scheme: "https", authority: "backend.example:8443"}

	in, err := url.Parse("http://proxy.local:8888/api/v1/items%20x?id=42&tag=a%20b")
	if err != nil {
		t.Fatal(err)
	}
	out := p.rewriteURL(in)

	if out.Scheme != "https" {
		t.Errorf("scheme = %q, want https", out.Scheme)
	}
	if out.Host != "backend.example:8443" {
		t.Errorf("host = %q, want backend.example:8443", out.Host)
	}
	if out.RequestURI() != in.RequestURI() {
		t.Errorf("request URI changed: %q, want %q", out.RequestURI(), in.RequestURI())
	}
	if in.Host != "proxy.local:8888" {
		t.Error("rewrite mutated the caller's URL")
	}
}

func TestOutboundHost(t *testing.T) {
	cfg := config.NewConfig()
	p := &Proxy{cfg: cfg, authority: "backend.example:8080"}
	if got := p.outboundHost(); got != "backend.example:8080" {
		t.Errorf("outboundHost() = %q, want target authority", got)
	}

	cfg.Proxy.HostOverride = "internal.example"
	if got := p.outboundHost(); got != "internal.example" {
		t.Errorf("outboundHost() = %q, want override", got)
	}
}
