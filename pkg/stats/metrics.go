package stats

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks aggregate proxy activity for Prometheus scraping.
//
// Metrics:
//   - <ns>_requests_total: forwarded request count by method and status
//   - <ns>_exchange_bytes: buffered body sizes by direction
//   - <ns>_tunnels_open: currently active WebSocket tunnels
//   - <ns>_stats_events_dropped_total: events discarded by the sender
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal *prometheus.CounterVec
	exchangeBytes *prometheus.HistogramVec
	tunnelsOpen   prometheus.Gauge
}

// NewMetrics creates and registers the proxy metrics. When sender is
// non-nil its drop counter is exported as a gauge function.
func NewMetrics(namespace string, sender *Sender) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of forwarded requests",
			},
			[]string{"method", "status"},
		),

		exchangeBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "exchange_bytes",
				Help:      "Buffered body sizes in bytes",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 10), // 256B to ~64MB
			},
			[]string{"direction"},
		),

		tunnelsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tunnels_open",
				Help:      "Currently active WebSocket tunnels",
			},
		),
	}

	registry.MustRegister(m.requestsTotal, m.exchangeBytes, m.tunnelsOpen)

	if sender != nil {
		registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stats_events_dropped_total",
				Help:      "Stats events discarded because the buffer was full",
			},
			func() float64 { return float64(sender.Dropped()) },
		))
	}

	return m
}

// RecordExchange records one completed (or synthesized) exchange.
func (m *Metrics) RecordExchange(method string, status int, requestBytes, responseBytes int) {
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.exchangeBytes.WithLabelValues("request").Observe(float64(requestBytes))
	m.exchangeBytes.WithLabelValues("response").Observe(float64(responseBytes))
}

// TunnelOpened marks a WebSocket tunnel as established.
func (m *Metrics) TunnelOpened() {
	m.tunnelsOpen.Inc()
}

// TunnelClosed marks a WebSocket tunnel as torn down.
func (m *Metrics) TunnelClosed() {
	m.tunnelsOpen.Dec()
}

// Handler returns the Prometheus exposition handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// Serve exposes /metrics on the given address until the context is
// cancelled. Serve failures are logged, never fatal: metrics are a
// best-effort sidecar to the proxy.
func (m *Metrics) Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	slog.Info("metrics endpoint listening", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics endpoint failed", "error", err)
	}
}
