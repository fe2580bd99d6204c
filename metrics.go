package ferry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are the worker-level prometheus instruments, observed once per
// cycle at detach.
type metrics struct {
	requests prometheus.Counter
	duration prometheus.Histogram
	memory   prometheus.Gauge
	recycles prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		requests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ferry",
			Subsystem: "worker",
			Name:      "requests_total",
			Help:      "Requests the worker has attached.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ferry",
			Subsystem: "worker",
			Name:      "request_duration_seconds",
			Help:      "Time between attach and detach.",
			Buckets:   prometheus.DefBuckets,
		}),
		memory: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ferry",
			Subsystem: "worker",
			Name:      "memory_usage_bytes",
			Help:      "Memory usage as sampled at the last detach.",
		}),
		recycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ferry",
			Subsystem: "worker",
			Name:      "recycle_signals_total",
			Help:      "Times the watchdog signaled that the worker should be recycled.",
		}),
	}
}
