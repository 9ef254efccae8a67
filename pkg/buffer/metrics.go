package buffer

import (
	"github.com/c360/moodlink/metric"
	"github.com/prometheus/client_golang/prometheus"
)

type ringMetrics struct {
	writes prometheus.Counter
	drops  prometheus.Counter
	size   prometheus.Gauge
}

func newRingMetrics(registry *metric.MetricsRegistry, prefix string) (*ringMetrics, error) {
	labels := prometheus.Labels{"component": prefix}
	m := &ringMetrics{
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "moodlink",
			Subsystem:   "window",
			Name:        "writes_total",
			ConstLabels: labels,
			Help:        "Total number of values pushed into the window",
		}),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "moodlink",
			Subsystem:   "window",
			Name:        "evictions_total",
			ConstLabels: labels,
			Help:        "Total number of values evicted or rejected at capacity",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "moodlink",
			Subsystem:   "window",
			Name:        "size",
			ConstLabels: labels,
			Help:        "Current number of values in the window",
		}),
	}

	if err := registry.RegisterCounter(prefix, "window_writes", m.writes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "window_evictions", m.drops); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "window_size", m.size); err != nil {
		return nil, err
	}
	return m, nil
}
