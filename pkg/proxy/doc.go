// Package proxy implements the intercepting forward engine: it accepts
// plain or TLS connections on one listen address, logs every exchange to
// the tap log, and relays traffic to a single configured upstream target.
//
// # Architecture
//
//   - Proxy: owns the listener, the shared upstream client, and the
//     per-connection id sequence
//   - forward: buffered request/response relay with header rewriting
//   - tunnel: WebSocket upgrade pass-through with raw byte splicing
//   - CertReloader: hot-swaps the inbound listener certificate
//
// Each accepted connection is served on its own goroutine with a
// monotonically increasing connection id, retrievable from the request
// context via ConnID. Requests and responses are buffered in full before
// relaying, so bodies appear in the tap log exactly as transmitted.
// WebSocket upgrades bypass buffering: after a 101 from the upstream the
// two raw streams are spliced until either side closes.
//
// The engine deliberately applies no timeouts or deadlines anywhere in the
// data path. A stalled client or upstream occupies its goroutine until the
// peer closes; operators who need enforced deadlines must front the proxy
// with something that provides them.
package proxy
