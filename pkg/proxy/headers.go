package proxy

import (
	"net/http"
	"net/url"
	"strings"
)

// hopByHopHeaders are meaningful for a single transport leg only and must
// never cross the proxy boundary in either direction (RFC 7230 §6.1).
var hopByHopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Transfer-Encoding",
	"Upgrade",
	"Te",
	"Trailer",
}

// stripHopByHop removes the hop-by-hop set from h.
func stripHopByHop(h http.Header) {
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}

// rewriteURL maps a client request URL onto the target: path and query are
// preserved verbatim, only scheme and authority change.
func (p *Proxy) rewriteURL(u *url.URL) *url.URL {
	out := *u
	out.Scheme = p.scheme
	out.Host = p.authority
	out.User = nil
	return &out
}

// outboundHost returns the Host header value for forwarded requests: the
// configured override when present, the target authority otherwise. The
// client's original Host is never forwarded.
func (p *Proxy) outboundHost() string {
	if p.cfg.Proxy.HostOverride != "" {
		return p.cfg.Proxy.HostOverride
	}
	return p.authority
}

// isWebSocketUpgrade reports whether the request asks for a WebSocket
// upgrade: an Upgrade header equal to "websocket" and a Connection header
// whose comma-separated tokens include "upgrade". Both checks are
// case-insensitive; the Connection check is a token match, not a substring
// match ("no-upgrade" does not qualify).
func isWebSocketUpgrade(h http.Header) bool {
	if !strings.EqualFold(h.Get("Upgrade"), "websocket") {
		return false
	}
	for _, value := range h.Values("Connection") {
		for _, token := range strings.Split(value, ",") {
			if strings.EqualFold(strings.TrimSpace(token), "upgrade") {
				return true
			}
		}
	}
	return false
}
