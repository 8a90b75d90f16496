package proxy

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// websocketHeaders are the upgrade-handshake headers captured before the
// hop-by-hop strip and reinserted verbatim on the forwarded request.
var websocketHeaders = []string{
	"Connection",
	"Upgrade",
	"Sec-Websocket-Key",
	"Sec-Websocket-Version",
	"Sec-Websocket-Protocol",
	"Sec-Websocket-Extensions",
}

// serveTunnel forwards a WebSocket upgrade handshake and, on a 101 answer,
// splices the two raw byte streams until either side closes. On any other
// outcome the client gets a synthesized 502 and no relay is ever started.
func (p *Proxy) serveTunnel(w http.ResponseWriter, r *http.Request) {
	connID := ConnID(r.Context())
	started := time.Now()

	// Capture the handshake headers before any rewriting.
	captured := http.Header{}
	for _, name := range websocketHeaders {
		for _, value := range r.Header.Values(name) {
			captured.Add(name, value)
		}
	}

	out, err := http.NewRequestWithContext(context.Background(), r.Method, p.rewriteURL(r.URL).String(), nil)
	if err != nil {
		p.logger.Warn("cannot build upgrade request", "conn_id", connID, "error", err)
		p.synthesize(w, connID, r, started, http.StatusBadRequest, "bad request", 0)
		return
	}
	out.Header = r.Header.Clone()
	stripHopByHop(out.Header)
	out.Header.Del("Host")
	out.Host = p.outboundHost()
	for name, values := range captured {
		out.Header[name] = values
	}

	p.tap.Request(connID, started, out.Method, out.URL.String(), r.RemoteAddr, loggedHeaders(out), nil)

	upstreamConn, err := p.dialUpstream()
	if err != nil {
		p.logger.Warn("upstream WS handshake failed", "conn_id", connID, "error", err)
		p.synthesize(w, connID, r, started, http.StatusBadGateway, "upstream WS handshake failed", 0)
		return
	}

	if err := out.Write(upstreamConn); err != nil {
		upstreamConn.Close()
		p.logger.Warn("upstream WS handshake failed", "conn_id", connID, "error", err)
		p.synthesize(w, connID, r, started, http.StatusBadGateway, "upstream WS handshake failed", 0)
		return
	}

	upstreamReader := bufio.NewReader(upstreamConn)
	resp, err := http.ReadResponse(upstreamReader, out)
	if err != nil {
		upstreamConn.Close()
		p.logger.Warn("upstream WS handshake failed", "conn_id", connID, "error", err)
		p.synthesize(w, connID, r, started, http.StatusBadGateway, "upstream WS handshake failed", 0)
		return
	}

	if resp.StatusCode != http.StatusSwitchingProtocols {
		resp.Body.Close()
		upstreamConn.Close()
		p.logger.Warn("upstream refused WS upgrade",
			"conn_id", connID,
			"status", resp.StatusCode,
		)
		p.synthesize(w, connID, r, started, http.StatusBadGateway,
			fmt.Sprintf("upstream refused upgrade (%d)", resp.StatusCode), 0)
		return
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		upstreamConn.Close()
		p.logger.Error("response writer does not support hijacking", "conn_id", connID)
		p.synthesize(w, connID, r, started, http.StatusBadGateway, "tunnel unsupported", 0)
		return
	}
	clientConn, clientBuf, err := hijacker.Hijack()
	if err != nil {
		upstreamConn.Close()
		p.logger.Warn("hijack failed", "conn_id", connID, "error", err)
		return
	}

	// Deliver the 101 by mirroring the upstream's response headers exactly.
	if err := write101(clientConn, resp.Header); err != nil {
		clientConn.Close()
		upstreamConn.Close()
		p.logger.Warn("failed to deliver 101", "conn_id", connID, "error", err)
		return
	}

	p.logger.Info("tunnel established", "conn_id", connID, "path", r.URL.Path)

	// The relay owns both raw streams from here; the handler returns
	// immediately.
	go p.relay(connID, clientConn, clientBuf.Reader, upstreamConn, upstreamReader)
}

func write101(w io.Writer, headers http.Header) error {
	if _, err := io.WriteString(w, "HTTP/1.1 101 Switching Protocols\r\n"); err != nil {
		return err
	}
	if err := headers.Write(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// relay splices bytes in both directions until either side closes or
// errors. Bytes are opaque: no logging, no preview, no deadline. Errors end
// only this tunnel.
func (p *Proxy) relay(connID uint64, clientConn net.Conn, clientReader io.Reader, upstreamConn net.Conn, upstreamReader io.Reader) {
	if p.metrics != nil {
		p.metrics.TunnelOpened()
		defer p.metrics.TunnelClosed()
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		// Closing the write side unblocks the opposite copy.
		defer upstreamConn.Close()
		if _, err := io.Copy(upstreamConn, clientReader); err != nil {
			p.logger.Debug("tunnel client→upstream ended", "conn_id", connID, "error", err)
		}
	}()

	go func() {
		defer wg.Done()
		defer clientConn.Close()
		if _, err := io.Copy(clientConn, upstreamReader); err != nil {
			p.logger.Debug("tunnel upstream→client ended", "conn_id", connID, "error", err)
		}
	}()

	wg.Wait()
	p.logger.Info("tunnel closed", "conn_id", connID)
}

// dialUpstream opens the raw upstream connection for a tunnel, applying the
// same TLS policy the shared client uses for an https target.
func (p *Proxy) dialUpstream() (net.Conn, error) {
	addr := p.authority
	if _, _, err := net.SplitHostPort(addr); err != nil {
		if p.scheme == "https" {
			addr = net.JoinHostPort(addr, "443")
		} else {
			addr = net.JoinHostPort(addr, "80")
		}
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	if p.scheme != "https" {
		return conn, nil
	}

	tlsCfg := p.upstreamTLS.Clone()
	if tlsCfg == nil {
		tlsCfg = &tls.Config{}
	}
	if tlsCfg.ServerName == "" {
		host, _, _ := net.SplitHostPort(addr)
		tlsCfg.ServerName = host
	}

	tlsConn := tls.Client(conn, tlsCfg)
	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}
