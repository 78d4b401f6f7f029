// Package metrics exposes Prometheus collectors for the bridge.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const logPrefix = "metrics:metrics"

// Metrics groups the bridge collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	callsStarted   *prometheus.CounterVec
	callsSettled   *prometheus.CounterVec
	pending        prometheus.Gauge
	latency        *prometheus.HistogramVec
	inbound        *prometheus.CounterVec
	originRejected prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		callsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_started_total",
			Help:      "Calls sent to the host, by method.",
		}, []string{"method"}),
		callsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_settled_total",
			Help:      "Calls settled, by method and outcome.",
		}, []string{"method", "outcome"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calls_pending",
			Help:      "Calls awaiting a reply.",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Time from send to settlement.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"method"}),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_messages_total",
			Help:      "Inbound messages by classification.",
		}, []string{"kind"}),
		originRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_origin_rejected_total",
			Help:      "Inbound messages dropped by the origin filter.",
		}),
	}

	for _, c := range []prometheus.Collector{m.callsStarted, m.callsSettled, m.pending, m.latency, m.inbound, m.originRejected} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("%s - failed to register collector: %w", logPrefix, err)
		}
	}
	return m, nil
}

// CallStarted counts a sent call.
func (m *Metrics) CallStarted(method string) {
	if m == nil {
		return
	}
	m.callsStarted.WithLabelValues(method).Inc()
	m.pending.Inc()
}

// CallSettled counts a settled call and observes its latency.
func (m *Metrics) CallSettled(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.callsSettled.WithLabelValues(method, outcome).Inc()
	m.pending.Dec()
	m.latency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Inbound counts a classified inbound message.
func (m *Metrics) Inbound(kind string) {
	if m == nil {
		return
	}
	m.inbound.WithLabelValues(kind).Inc()
}

// OriginRejected counts a message dropped by the origin filter.
func (m *Metrics) OriginRejected() {
	if m == nil {
		return
	}
	m.originRejected.Inc()
}
