package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"nimbus-tools/httptap/pkg/history"
	"nimbus-tools/httptap/pkg/stats"
)

// ServeHTTP handles one inbound request. Requests on the same connection
// arrive strictly sequentially; a failed request never terminates the
// connection's goroutine, and the next request on the connection is served
// normally.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if isWebSocketUpgrade(r.Header) {
		p.serveTunnel(w, r)
		return
	}
	p.forward(w, r)
}

// forward buffers, rewrites, taps, and dispatches one plain HTTP exchange.
func (p *Proxy) forward(w http.ResponseWriter, r *http.Request) {
	connID := ConnID(r.Context())
	started := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		p.logger.Warn("request body error", "conn_id", connID, "error", err)
		p.synthesize(w, connID, r, started, http.StatusBadRequest, "body error", len(body))
		return
	}

	out, err := p.buildForward(r, body)
	if err != nil {
		// Only a malformed method/URL reaches here; treat as a bad request.
		p.logger.Warn("cannot build forwarded request", "conn_id", connID, "error", err)
		p.synthesize(w, connID, r, started, http.StatusBadRequest, "bad request", len(body))
		return
	}

	p.tap.Request(connID, started, out.Method, out.URL.String(), r.RemoteAddr, loggedHeaders(out), body)

	if p.sender != nil {
		// Best-effort: a full buffer or missing consumer is never a
		// request error.
		p.sender.TrySend(stats.Event{Method: r.Method, Path: r.URL.Path, At: started})
	}

	resp, err := p.client.Do(out)
	if err != nil {
		p.logger.Warn("upstream error", "conn_id", connID, "url", out.URL.String(), "error", err)
		p.synthesize(w, connID, r, started, http.StatusBadGateway, "upstream connection failed", len(body))
		return
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		p.logger.Warn("upstream body error", "conn_id", connID, "error", err)
		p.synthesize(w, connID, r, started, http.StatusBadGateway, "upstream body error", len(body))
		return
	}

	p.tap.Response(connID, time.Now(), resp.StatusCode, resp.Header, respBody)

	headers := w.Header()
	for name, values := range resp.Header {
		headers[name] = values
	}
	stripHopByHop(headers)
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(respBody); err != nil {
		p.logger.Warn("client write failed", "conn_id", connID, "error", err)
	}

	p.finishExchange(r, connID, resp.StatusCode, len(body), len(respBody), started)
}

// buildForward constructs the outbound request: same method and body,
// rewritten URL, hop-by-hop headers stripped, Host replaced.
//
// The upstream dispatch deliberately does not inherit the inbound request
// context: no cancellation or deadline is propagated into in-flight
// upstream work.
func (p *Proxy) buildForward(r *http.Request, body []byte) (*http.Request, error) {
	out, err := http.NewRequestWithContext(context.Background(), r.Method, p.rewriteURL(r.URL).String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build forwarded request: %w", err)
	}

	out.Header = r.Header.Clone()
	stripHopByHop(out.Header)
	out.Header.Del("Host")
	out.Host = p.outboundHost()
	out.ContentLength = int64(len(body))

	return out, nil
}

// synthesize writes a plain-text error response generated by the proxy
// itself and logs it through the same tap path as real responses.
func (p *Proxy) synthesize(w http.ResponseWriter, connID uint64, r *http.Request, started time.Time, status int, msg string, requestBytes int) {
	body := []byte(msg)

	h := http.Header{}
	h.Set("Content-Type", "text/plain; charset=utf-8")
	p.tap.Response(connID, time.Now(), status, h, body)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)

	p.finishExchange(r, connID, status, requestBytes, len(body), started)
}

// finishExchange feeds the optional metrics and history collaborators.
func (p *Proxy) finishExchange(r *http.Request, connID uint64, status, requestBytes, responseBytes int, started time.Time) {
	if p.metrics != nil {
		p.metrics.RecordExchange(r.Method, status, requestBytes, responseBytes)
	}
	if p.recorder != nil {
		p.recorder.Record(context.Background(), history.Exchange{
			ConnID:        connID,
			Method:        r.Method,
			Path:          r.URL.Path,
			Status:        status,
			RequestBytes:  int64(requestBytes),
			ResponseBytes: int64(responseBytes),
			StartedAt:     started,
			CompletedAt:   time.Now(),
		})
	}
}

// loggedHeaders returns the header view the tap prints for an outbound
// request: the forwarded set plus the Host line, which net/http carries on
// the request value rather than in the map.
func loggedHeaders(out *http.Request) http.Header {
	h := out.Header.Clone()
	h.Set("Host", out.Host)
	return h
}
