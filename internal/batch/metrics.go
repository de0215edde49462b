package batch

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "grove"
	metricsSubsystem = "batch"
)

type metrics struct {
	batches     *prometheus.CounterVec
	subRequests *prometheus.CounterVec
	retries     prometheus.Counter
	skipped     prometheus.Counter
	latency     prometheus.Histogram
}

func newMetrics() *metrics {
	return &metrics{
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "reads_total",
			Help:      "Batch reads by outcome.",
		}, []string{"outcome"}),
		subRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "node_requests_total",
			Help:      "Per-node sub-requests by outcome.",
		}, []string{"outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "node_request_retries_total",
			Help:      "Retried per-node sub-request attempts.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "skipped_records_total",
			Help:      "Record results that were neither found nor not found.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "node_request_duration_seconds",
			Help:      "Latency of per-node sub-requests, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.batches, m.subRequests, m.retries, m.skipped, m.latency} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	switch kindOf(err) {
	case KindInvalidParameter:
		return "invalid_parameter"
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindAggregation:
		return "aggregation"
	default:
		return "cluster"
	}
}
