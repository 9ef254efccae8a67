// Package metric exposes moodlink's Prometheus metrics.
//
// MetricsRegistry wraps a private prometheus.Registry, registers the core Metrics
// (link state, attempts, bytes, decoded samples, dropped frames, classifications,
// UI updates) and lets components add their own collectors under a
// component-qualified key so duplicate registrations fail as invalid errors.
//
// Server serves the registry on /metrics and the aggregated health on /health.
package metric
