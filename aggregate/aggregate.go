// Package aggregate keeps sliding windows of recent heart-rate and movement values
// and summarises them for classification.
package aggregate

import (
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/c360/moodlink/errors"
	"github.com/c360/moodlink/metric"
	"github.com/c360/moodlink/pkg/buffer"
	"github.com/c360/moodlink/sample"
)

// DefaultWindowSize is the number of recent values each window holds.
const DefaultWindowSize = 5

// Stats summarises the current windows. Variability is the population standard
// deviation. Empty windows yield zeros.
type Stats struct {
	HeartRateMean        float64 `json:"heart_rate_mean"`
	HeartRateVariability float64 `json:"heart_rate_variability"`
	MovementMean         float64 `json:"movement_mean"`
	MovementVariability  float64 `json:"movement_variability"`
}

// Snapshot is a consistent view of the aggregator taken under one lock.
type Snapshot struct {
	Stats           Stats
	HasEnoughData   bool
	LatestHeartRate float64
	HasHeartRate    bool
	HeartRates      []float64
	Movements       []float64
}

// Aggregator holds a heart-rate window and a movement-magnitude window of equal
// capacity. All methods are safe for concurrent use.
type Aggregator struct {
	mu        sync.Mutex
	heartRate *buffer.Ring[float64]
	movement  *buffer.Ring[float64]
}

// Option configures an Aggregator.
type Option func(*options)

type options struct {
	registry *metric.MetricsRegistry
}

// WithMetrics exports window sizes and eviction counts.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *options) { o.registry = registry }
}

// New creates an aggregator whose windows each hold windowSize values.
func New(windowSize int, opts ...Option) (*Aggregator, error) {
	if windowSize <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Aggregator", "New", "window size must be positive")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	hr, err := buffer.NewRing[float64](windowSize, buffer.WithMetrics[float64](o.registry, "heart_rate_window"))
	if err != nil {
		return nil, errors.Wrap(err, "Aggregator", "New", "create heart-rate window")
	}
	mv, err := buffer.NewRing[float64](windowSize, buffer.WithMetrics[float64](o.registry, "movement_window"))
	if err != nil {
		return nil, errors.Wrap(err, "Aggregator", "New", "create movement window")
	}

	return &Aggregator{heartRate: hr, movement: mv}, nil
}

// Ingest routes s into its window: heart rate as is, acceleration as its magnitude.
func (a *Aggregator) Ingest(s sample.Sample) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch s.Kind {
	case sample.KindHeartRate:
		a.heartRate.Push(s.BPM)
	case sample.KindAcceleration:
		a.movement.Push(s.Magnitude())
	}
}

// HasEnoughData reports whether both windows are full.
func (a *Aggregator) HasEnoughData() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.heartRate.IsFull() && a.movement.IsFull()
}

// CurrentStats returns mean and variability for both windows.
func (a *Aggregator) CurrentStats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return summarise(a.heartRate.Values(), a.movement.Values())
}

// Snapshot returns stats, fullness and the latest heart rate atomically.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	hr := a.heartRate.Values()
	mv := a.movement.Values()
	latest, ok := a.heartRate.Latest()

	return Snapshot{
		Stats:           summarise(hr, mv),
		HasEnoughData:   a.heartRate.IsFull() && a.movement.IsFull(),
		LatestHeartRate: latest,
		HasHeartRate:    ok,
		HeartRates:      hr,
		Movements:       mv,
	}
}

// Reset empties both windows.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.heartRate.Clear()
	a.movement.Clear()
}

func summarise(hr, mv []float64) Stats {
	hrMean, hrStd := meanStdDev(hr)
	mvMean, mvStd := meanStdDev(mv)
	return Stats{
		HeartRateMean:        hrMean,
		HeartRateVariability: hrStd,
		MovementMean:         mvMean,
		MovementVariability:  mvStd,
	}
}

func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(values, nil)
}
