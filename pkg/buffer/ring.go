package buffer

import (
	"sync"

	"github.com/c360/moodlink/errors"
)

// Ring is a thread-safe fixed-capacity FIFO.
type Ring[T any] struct {
	mu       sync.RWMutex
	items    []T
	capacity int
	size     int
	head     int // next write position
	stats    *Statistics
	metrics  *ringMetrics
}

// NewRing creates a ring holding at most capacity items.
func NewRing[T any](capacity int, options ...Option[T]) (*Ring[T], error) {
	if capacity <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "buffer", "NewRing", "capacity must be positive")
	}

	opts := applyOptions(options...)

	var metrics *ringMetrics
	if opts.metricsReg != nil {
		var err error
		metrics, err = newRingMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.Wrap(err, "buffer", "NewRing", "metrics registration")
		}
	}

	return &Ring[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		stats:    NewStatistics(),
		metrics:  metrics,
	}, nil
}

// Push appends item, evicting the oldest item when the ring is full. It reports
// whether an item was evicted.
func (r *Ring[T]) Push(item T) (dropped bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == r.capacity {
		dropped = true
		r.size--
		r.stats.drop()
		if r.metrics != nil {
			r.metrics.drops.Inc()
		}
	}

	r.items[r.head] = item
	r.head = (r.head + 1) % r.capacity
	r.size++
	r.stats.write()
	if r.metrics != nil {
		r.metrics.writes.Inc()
		r.metrics.size.Set(float64(r.size))
	}
	return dropped
}

// Values returns the items oldest first. The slice is a copy.
func (r *Ring[T]) Values() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, r.size)
	start := (r.head - r.size + r.capacity) % r.capacity
	for i := 0; i < r.size; i++ {
		out[i] = r.items[(start+i)%r.capacity]
	}
	return out
}

// Latest returns the most recently pushed item.
func (r *Ring[T]) Latest() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.items[(r.head-1+r.capacity)%r.capacity], true
}

// Len returns the current number of items.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Capacity returns the maximum number of items.
func (r *Ring[T]) Capacity() int {
	return r.capacity
}

// IsFull reports whether the ring holds Capacity items.
func (r *Ring[T]) IsFull() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size == r.capacity
}

// Clear removes all items. Statistics are kept.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.size = 0
	r.head = 0
	if r.metrics != nil {
		r.metrics.size.Set(0)
	}
}

// Stats returns the ring statistics.
func (r *Ring[T]) Stats() *Statistics {
	return r.stats
}
