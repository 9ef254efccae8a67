package ui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/moodlink/errors"
	"github.com/c360/moodlink/health"
	"github.com/c360/moodlink/metric"
	"github.com/c360/moodlink/pkg/worker"
)

// DefaultQueueSize is the number of updates buffered ahead of the sink.
const DefaultQueueSize = 64

// Dispatcher is the single consumer in front of a Sink.
type Dispatcher struct {
	pool    *worker.Pool[Update]
	logger  *slog.Logger
	metrics *metric.Metrics
}

// NewDispatcher creates a dispatcher for sink. registry may be nil.
func NewDispatcher(sink Sink, queueSize int, logger *slog.Logger, registry *metric.MetricsRegistry) (*Dispatcher, error) {
	if sink == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Dispatcher", "NewDispatcher", "sink is required")
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		logger:  logger.With("component", "ui"),
		metrics: registry.CoreMetrics(),
	}

	deliver := func(ctx context.Context, u Update) error {
		if err := sink.Deliver(ctx, u); err != nil {
			d.metrics.RecordUIUpdate("error")
			d.logger.Warn("UI update not delivered", "error", err)
			return err
		}
		d.metrics.RecordUIUpdate("delivered")
		return nil
	}

	opts := []worker.Option[Update]{
		worker.WithPanicHandler[Update](func(r any) {
			d.logger.Error("UI sink panicked", "panic", fmt.Sprint(r))
		}),
	}
	if registry != nil {
		opts = append(opts, worker.WithMetricsRegistry[Update](registry, "moodlink_ui_dispatch"))
	}

	pool, err := worker.NewPool(1, queueSize, deliver, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "Dispatcher", "NewDispatcher", "create worker")
	}
	d.pool = pool
	return d, nil
}

// Start launches the consumer goroutine.
func (d *Dispatcher) Start(ctx context.Context) error {
	return d.pool.Start(ctx)
}

// Post queues u without blocking. A full queue drops u and returns ErrQueueFull.
func (d *Dispatcher) Post(u Update) error {
	if u.Timestamp.IsZero() {
		u.Timestamp = time.Now()
	}
	if err := d.pool.Submit(u); err != nil {
		d.metrics.RecordUIUpdate("dropped")
		return err
	}
	return nil
}

// Status is shorthand for posting a status-only update.
func (d *Dispatcher) Status(text string) {
	if err := d.Post(StatusUpdate(text)); err != nil {
		d.logger.Debug("Status update dropped", "status", text, "error", err)
	}
}

// Stop delivers what is queued and waits up to timeout. It is idempotent.
func (d *Dispatcher) Stop(timeout time.Duration) error {
	return d.pool.Stop(timeout)
}

// Stats returns the queue statistics.
func (d *Dispatcher) Stats() worker.PoolStats {
	return d.pool.Stats()
}

// Health is degraded once updates have been dropped or failed.
func (d *Dispatcher) Health() health.Status {
	st := d.pool.Stats()
	msg := fmt.Sprintf("delivered %d, dropped %d, failed %d", st.Processed-st.Failed, st.Dropped, st.Failed)
	status := health.NewHealthy("ui", msg)
	if st.Dropped > 0 || st.Failed > 0 {
		status = health.NewDegraded("ui", msg)
	}
	return status.WithMetrics(&health.Metrics{
		Processed:  st.Processed,
		ErrorCount: st.Failed + st.Dropped,
	})
}
