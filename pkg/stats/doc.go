// Package stats implements the best-effort observability event channel.
//
// The proxy emits one Event per forwarded, non-tunnel request. The contract
// is strictly fire-and-forget: a send never blocks the request path, and a
// full buffer (or a missing consumer) silently drops the event. Dropped
// events are counted, not surfaced as request errors.
//
// Aggregator is the reference consumer: it folds events into per-path
// method counters with a last-seen timestamp, exactly the shape a dashboard
// renders. Metrics bridges the same activity into Prometheus collectors and
// optionally serves the exposition endpoint.
package stats
