package testutil

import (
	"context"
	"time"

	"github.com/c360/moodlink/sample"
)

// SliceSource emits Samples in order, Every apart, then waits for cancellation.
// With Repeat set it starts over instead of waiting.
type SliceSource struct {
	Samples []sample.Sample
	Every   time.Duration
	Repeat  bool
}

// Run emits the samples until ctx is done. Cancellation returns nil.
func (s SliceSource) Run(ctx context.Context, emit func(sample.Sample)) error {
	every := s.Every
	if every <= 0 {
		every = time.Millisecond
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for i := 0; ; i++ {
		if i == len(s.Samples) {
			if !s.Repeat || len(s.Samples) == 0 {
				<-ctx.Done()
				return nil
			}
			i = 0
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			emit(s.Samples[i])
		}
	}
}
