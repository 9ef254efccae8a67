// Package sensor provides sample sources for the sender role.
package sensor

import (
	"context"
	"math"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/moodlink/errors"
	"github.com/c360/moodlink/sample"
)

// Source produces samples at its own cadence until ctx is done.
type Source interface {
	Run(ctx context.Context, emit func(sample.Sample)) error
}

// SimulatorConfig shapes the synthetic signal.
type SimulatorConfig struct {
	// Interval between samples. Heart-rate and acceleration samples alternate.
	Interval time.Duration
	// RestingHeartRate is where the heart-rate walk starts and drifts back to.
	RestingHeartRate float64
	// Agitation in [0,1] scales heart-rate drift and movement.
	Agitation float64
	// Limit stops the simulator after this many samples. Zero means unbounded.
	Limit int
	Seed  int64
}

// DefaultSimulatorConfig returns a calm wearer sampled once per second.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Interval:         time.Second,
		RestingHeartRate: 72,
		Agitation:        0.2,
		Seed:             1,
	}
}

// Simulator generates a bounded random walk of heart-rate and acceleration samples.
type Simulator struct {
	cfg     SimulatorConfig
	limiter *rate.Limiter
	rng     *rand.Rand
	hr      float64
}

// NewSimulator validates cfg and creates a Simulator.
func NewSimulator(cfg SimulatorConfig) (*Simulator, error) {
	if cfg.Interval <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Simulator", "NewSimulator", "interval must be positive")
	}
	if cfg.Agitation < 0 || cfg.Agitation > 1 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Simulator", "NewSimulator", "agitation must be within [0,1]")
	}
	if cfg.RestingHeartRate <= 0 {
		cfg.RestingHeartRate = 72
	}
	return &Simulator{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.Interval), 1),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		hr:      cfg.RestingHeartRate,
	}, nil
}

// Run emits samples until ctx is done or Limit is reached. Cancellation returns nil.
func (s *Simulator) Run(ctx context.Context, emit func(sample.Sample)) error {
	for n := 0; s.cfg.Limit == 0 || n < s.cfg.Limit; n++ {
		if err := s.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "Simulator", "Run", "wait for next sample")
		}
		if n%2 == 0 {
			emit(s.nextHeartRate())
		} else {
			emit(s.nextAcceleration())
		}
	}
	return nil
}

// Next returns the next sample without waiting.
func (s *Simulator) Next(i int) sample.Sample {
	if i%2 == 0 {
		return s.nextHeartRate()
	}
	return s.nextAcceleration()
}

func (s *Simulator) nextHeartRate() sample.Sample {
	target := s.cfg.RestingHeartRate + 40*s.cfg.Agitation
	// Mean-reverting walk towards target.
	s.hr += 0.3*(target-s.hr) + s.rng.NormFloat64()*(1+6*s.cfg.Agitation)
	s.hr = math.Max(40, math.Min(180, s.hr))
	return sample.NewHeartRate(round(s.hr, 1))
}

func (s *Simulator) nextAcceleration() sample.Sample {
	spread := 0.5 + 20*s.cfg.Agitation
	return sample.NewAcceleration(
		round(s.rng.NormFloat64()*spread, 2),
		round(s.rng.NormFloat64()*spread, 2),
		round(9.81+s.rng.NormFloat64()*spread, 2),
	)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
