package buffer

import (
	"github.com/c360/moodlink/metric"
)

// Option configures ring behavior.
type Option[T any] func(*ringOptions[T])

type ringOptions[T any] struct {
	// metricsReg is optional; when set the ring also exports Prometheus metrics
	metricsReg    *metric.MetricsRegistry
	metricsPrefix string
}

// WithMetrics exports ring statistics under the given component label.
// A nil registry or empty prefix is ignored.
func WithMetrics[T any](registry *metric.MetricsRegistry, prefix string) Option[T] {
	return func(opts *ringOptions[T]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

func applyOptions[T any](options ...Option[T]) *ringOptions[T] {
	opts := &ringOptions[T]{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
