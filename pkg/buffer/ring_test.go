package buffer

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/moodlink/errors"
	"github.com/c360/moodlink/metric"
)

func TestNewRing_InvalidCapacity(t *testing.T) {
	_, err := NewRing[int](0)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestRing_FIFOEviction(t *testing.T) {
	ring, err := NewRing[float64](5)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		assert.False(t, ring.Push(float64(i)))
	}
	assert.True(t, ring.IsFull())
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, ring.Values())

	assert.True(t, ring.Push(6), "sixth push evicts the oldest")
	assert.Equal(t, []float64{2, 3, 4, 5, 6}, ring.Values())
	assert.Equal(t, 5, ring.Len())

	latest, ok := ring.Latest()
	require.True(t, ok)
	assert.Equal(t, 6.0, latest)

	assert.Equal(t, int64(6), ring.Stats().Writes())
	assert.Equal(t, int64(1), ring.Stats().Drops())
}

func TestRing_EmptyAndClear(t *testing.T) {
	ring, err := NewRing[int](3)
	require.NoError(t, err)

	_, ok := ring.Latest()
	assert.False(t, ok)
	assert.Empty(t, ring.Values())

	ring.Push(1)
	ring.Push(2)
	ring.Clear()
	assert.Equal(t, 0, ring.Len())
	assert.Empty(t, ring.Values())

	ring.Push(9)
	assert.Equal(t, []int{9}, ring.Values())
}

func TestRing_ValuesIsCopy(t *testing.T) {
	ring, err := NewRing[int](3)
	require.NoError(t, err)
	ring.Push(1)

	values := ring.Values()
	values[0] = 100
	assert.Equal(t, []int{1}, ring.Values())
}

func TestRing_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	ring, err := NewRing[int](2, WithMetrics[int](registry, "hr_window"))
	require.NoError(t, err)

	ring.Push(1)
	ring.Push(2)
	ring.Push(3)

	assert.Equal(t, 3.0, testutil.ToFloat64(ring.metrics.writes))
	assert.Equal(t, 1.0, testutil.ToFloat64(ring.metrics.drops))
	assert.Equal(t, 2.0, testutil.ToFloat64(ring.metrics.size))

	_, err = NewRing[int](2, WithMetrics[int](registry, "hr_window"))
	assert.Error(t, err, "duplicate metrics prefix must fail")
}

func TestRing_ConcurrentPush(t *testing.T) {
	ring, err := NewRing[int](5)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				ring.Push(i)
				_ = ring.Values()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ring.Len())
	assert.Equal(t, int64(1600), ring.Stats().Writes())
	assert.Equal(t, int64(1595), ring.Stats().Drops())
}
