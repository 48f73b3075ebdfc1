package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RPCMetrics observes the datagram dispatch path. The server accepts
// nil and substitutes the no-op implementation.
type RPCMetrics interface {
	// RecordRequest records one dispatched call with its program and
	// procedure names, wall time and outcome ("success" or
	// "proc_unavail").
	RecordRequest(program, procedure string, duration time.Duration, outcome string)

	// RecordDropped counts a datagram that got no reply, by reason
	// ("malformed", "rate_limit", "inflight", "decode").
	RecordDropped(reason string)
}

type rpcMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	droppedTotal    *prometheus.CounterVec
}

// NewRPCMetrics creates a Prometheus-backed RPCMetrics, or the no-op
// implementation when the registry was never initialized.
func NewRPCMetrics() RPCMetrics {
	if !IsEnabled() {
		return NoopRPCMetrics()
	}

	reg := GetRegistry()

	return &rpcMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "prolink_nfs_requests_total",
				Help: "Total dispatched RPC calls by program, procedure and outcome",
			},
			[]string{"program", "procedure", "outcome"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "prolink_nfs_request_duration_seconds",
				Help: "Wall time of dispatched RPC calls in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.0005, // 500µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1.0,    // 1s
				},
			},
			[]string{"program", "procedure"},
		),
		droppedTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "prolink_nfs_dropped_datagrams_total",
				Help: "Datagrams answered with silence, by reason",
			},
			[]string{"reason"},
		),
	}
}

func (m *rpcMetrics) RecordRequest(program, procedure string, duration time.Duration, outcome string) {
	m.requestsTotal.WithLabelValues(program, procedure, outcome).Inc()
	m.requestDuration.WithLabelValues(program, procedure).Observe(duration.Seconds())
}

func (m *rpcMetrics) RecordDropped(reason string) {
	m.droppedTotal.WithLabelValues(reason).Inc()
}

// NoopRPCMetrics returns the do-nothing implementation.
func NoopRPCMetrics() RPCMetrics {
	return noopRPCMetrics{}
}

type noopRPCMetrics struct{}

func (noopRPCMetrics) RecordRequest(string, string, time.Duration, string) {}
func (noopRPCMetrics) RecordDropped(string)                                {}
