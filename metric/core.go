package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "moodlink"

// Metrics contains the metrics shared by the link, stream and pipeline stages.
// All methods are safe on a nil receiver so components can run without a registry.
type Metrics struct {
	LinkState        prometheus.Gauge
	LinkAttempts     prometheus.Counter
	LinkFailures     *prometheus.CounterVec
	LinkBytes        *prometheus.CounterVec
	SamplesReceived  *prometheus.CounterVec
	SamplesSent      *prometheus.CounterVec
	FramesDropped    prometheus.Counter
	Classifications  *prometheus.CounterVec
	UIUpdates        *prometheus.CounterVec
	ClassifyDuration prometheus.Histogram
}

// NewMetrics creates the core metrics without registering them.
func NewMetrics() *Metrics {
	return &Metrics{
		LinkState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "state",
			Help:      "Link state (0=disconnected, 1=connecting, 2=connected, 3=retrying, 4=failed)",
		}),
		LinkAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "attempts_total",
			Help:      "Total number of link establishment attempts",
		}),
		LinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "failures_total",
			Help:      "Total number of link failures by class",
		}, []string{"class"}),
		LinkBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "bytes_total",
			Help:      "Bytes moved over the link",
		}, []string{"direction"}),
		SamplesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "samples_received_total",
			Help:      "Decoded samples by kind",
		}, []string{"kind"}),
		SamplesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "samples_sent_total",
			Help:      "Samples handed to the link by result",
		}, []string{"result"}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "frames_dropped_total",
			Help:      "Malformed frames dropped by the decoder",
		}),
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emotion",
			Name:      "classifications_total",
			Help:      "Classification results by state",
		}, []string{"state"}),
		UIUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ui",
			Name:      "updates_total",
			Help:      "UI updates by result (delivered, dropped, failed)",
		}, []string{"result"}),
		ClassifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "emotion",
			Name:      "pipeline_duration_seconds",
			Help:      "Time from decoded sample to posted UI update",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.LinkState,
		m.LinkAttempts,
		m.LinkFailures,
		m.LinkBytes,
		m.SamplesReceived,
		m.SamplesSent,
		m.FramesDropped,
		m.Classifications,
		m.UIUpdates,
		m.ClassifyDuration,
	}
}

// RecordLinkState sets the link state gauge.
func (m *Metrics) RecordLinkState(code int) {
	if m == nil {
		return
	}
	m.LinkState.Set(float64(code))
}

// RecordLinkAttempt counts one establishment attempt.
func (m *Metrics) RecordLinkAttempt() {
	if m == nil {
		return
	}
	m.LinkAttempts.Inc()
}

// RecordLinkFailure counts a link failure of the given class.
func (m *Metrics) RecordLinkFailure(class string) {
	if m == nil {
		return
	}
	m.LinkFailures.WithLabelValues(class).Inc()
}

// RecordBytes adds n bytes in direction "in" or "out".
func (m *Metrics) RecordBytes(direction string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.LinkBytes.WithLabelValues(direction).Add(float64(n))
}

// RecordSample counts a decoded sample of the given kind.
func (m *Metrics) RecordSample(kind string) {
	if m == nil {
		return
	}
	m.SamplesReceived.WithLabelValues(kind).Inc()
}

// RecordSent counts a sample handed to the link with result "sent" or "dropped".
func (m *Metrics) RecordSent(result string) {
	if m == nil {
		return
	}
	m.SamplesSent.WithLabelValues(result).Inc()
}

// RecordDrop counts a malformed frame.
func (m *Metrics) RecordDrop() {
	if m == nil {
		return
	}
	m.FramesDropped.Inc()
}

// RecordClassification counts one classification result.
func (m *Metrics) RecordClassification(state string, seconds float64) {
	if m == nil {
		return
	}
	m.Classifications.WithLabelValues(state).Inc()
	m.ClassifyDuration.Observe(seconds)
}

// RecordUIUpdate counts a UI update outcome.
func (m *Metrics) RecordUIUpdate(result string) {
	if m == nil {
		return
	}
	m.UIUpdates.WithLabelValues(result).Inc()
}
