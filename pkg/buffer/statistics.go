package buffer

import (
	"sync/atomic"
)

// Statistics tracks ring activity with atomic counters.
type Statistics struct {
	writes atomic.Int64
	drops  atomic.Int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{}
}

func (s *Statistics) write() { s.writes.Add(1) }
func (s *Statistics) drop()  { s.drops.Add(1) }

// Writes returns the number of items stored.
func (s *Statistics) Writes() int64 {
	return s.writes.Load()
}

// Drops returns the number of items dropped by the overflow policy.
func (s *Statistics) Drops() int64 {
	return s.drops.Load()
}

// DropRate returns drops per write (0.0 when nothing was written).
func (s *Statistics) DropRate() float64 {
	writes := s.Writes()
	if writes == 0 {
		return 0.0
	}
	return float64(s.Drops()) / float64(writes)
}
