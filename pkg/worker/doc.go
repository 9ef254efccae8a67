// Package worker provides a small generic worker pool.
//
// A Pool runs a fixed number of goroutines that take items from a bounded queue
// and pass them to a processor function. Submit never blocks: when the queue is
// full the item is dropped and ErrQueueFull is returned, which callers treat as
// a backpressure signal.
//
// A pool with one worker is a single-consumer queue. Items submitted from one
// goroutine are processed in submission order; there is no ordering guarantee
// across submitters.
//
//	pool, err := worker.NewPool[Update](1, 64, deliver)
//	if err != nil {
//	    return err
//	}
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//	defer pool.Stop(2 * time.Second)
//
//	if err := pool.Submit(u); errors.Is(err, worker.ErrQueueFull) {
//	    // dropped
//	}
//
// Stop closes the queue, lets the workers drain what is already queued and waits
// up to the given timeout. A processor that panics is recovered and counted as a
// failure so one bad item cannot take the pool down.
//
// Statistics are always tracked with atomics. Prometheus metrics are optional and
// enabled with WithMetricsRegistry.
package worker
