package sensor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/moodlink/errors"
	"github.com/c360/moodlink/sample"
)

func TestNewSimulatorValidation(t *testing.T) {
	cfg := DefaultSimulatorConfig()
	cfg.Interval = 0
	_, err := NewSimulator(cfg)
	assert.True(t, errors.IsInvalid(err))

	cfg = DefaultSimulatorConfig()
	cfg.Agitation = 1.5
	_, err = NewSimulator(cfg)
	assert.True(t, errors.IsInvalid(err))
}

func TestSimulatorAlternatesKinds(t *testing.T) {
	cfg := DefaultSimulatorConfig()
	cfg.Interval = time.Millisecond
	cfg.Limit = 6
	sim, err := NewSimulator(cfg)
	require.NoError(t, err)

	var got []sample.Sample
	require.NoError(t, sim.Run(context.Background(), func(s sample.Sample) { got = append(got, s) }))

	require.Len(t, got, 6)
	for i, s := range got {
		if i%2 == 0 {
			assert.True(t, s.IsHeartRate(), "sample %d", i)
			assert.GreaterOrEqual(t, s.BPM, 40.0)
			assert.LessOrEqual(t, s.BPM, 180.0)
		} else {
			assert.True(t, s.IsAcceleration(), "sample %d", i)
		}
	}
}

func TestSimulatorAgitationRaisesHeartRate(t *testing.T) {
	mean := func(agitation float64) float64 {
		cfg := DefaultSimulatorConfig()
		cfg.Agitation = agitation
		sim, err := NewSimulator(cfg)
		require.NoError(t, err)

		var sum float64
		const n = 200
		for i := 0; i < n; i++ {
			sum += sim.Next(0).BPM
		}
		return sum / n
	}

	assert.Less(t, mean(0), 80.0)
	assert.Greater(t, mean(1), 95.0)
}

func TestSimulatorStopsOnCancel(t *testing.T) {
	cfg := DefaultSimulatorConfig()
	cfg.Interval = time.Hour
	sim, err := NewSimulator(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx, func(sample.Sample) {}) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("simulator ignored cancellation")
	}
}
