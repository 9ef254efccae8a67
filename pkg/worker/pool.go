package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/moodlink/metric"
)

// Defaults used when NewPool receives non-positive sizes.
const (
	DefaultWorkers   = 1
	DefaultQueueSize = 64
)

// Pool processes items of type T on a fixed set of workers.
type Pool[T any] struct {
	workers   int
	queueSize int
	processor func(context.Context, T) error

	workChan chan T
	metrics  *poolMetrics
	wg       sync.WaitGroup

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool
	stopTicker  context.CancelFunc

	submitted atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
	panics    atomic.Int64

	metricsRegistry *metric.MetricsRegistry
	metricsPrefix   string
	onPanic         func(recovered any)
}

type poolMetrics struct {
	queueDepth     prometheus.Gauge
	submitted      prometheus.Counter
	processed      prometheus.Counter
	failed         prometheus.Counter
	dropped        prometheus.Counter
	processingTime prometheus.Histogram
}

// Option configures a Pool.
type Option[T any] func(*Pool[T])

// WithMetricsRegistry registers the pool's metrics under prefix.
func WithMetricsRegistry[T any](registry *metric.MetricsRegistry, prefix string) Option[T] {
	return func(p *Pool[T]) {
		p.metricsRegistry = registry
		p.metricsPrefix = prefix
	}
}

// WithPanicHandler is called with the recovered value when the processor panics.
func WithPanicHandler[T any](fn func(recovered any)) Option[T] {
	return func(p *Pool[T]) {
		p.onPanic = fn
	}
}

// NewPool creates a pool. Non-positive sizes fall back to the defaults.
func NewPool[T any](workers, queueSize int, processor func(context.Context, T) error, opts ...Option[T]) (*Pool[T], error) {
	if processor == nil {
		return nil, ErrNilProcessor
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	p := &Pool[T]{
		workers:   workers,
		queueSize: queueSize,
		processor: processor,
		workChan:  make(chan T, queueSize),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.metricsRegistry != nil && p.metricsPrefix != "" {
		if err := p.initMetrics(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Pool[T]) initMetrics() error {
	prefix := p.metricsPrefix
	m := &poolMetrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_queue_depth",
			Help: "Current worker pool queue depth",
		}),
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_submitted_total",
			Help: "Total work items submitted",
		}),
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_processed_total",
			Help: "Total work items processed",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_failed_total",
			Help: "Total work items that failed processing",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_dropped_total",
			Help: "Total work items dropped due to full queue",
		}),
		processingTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    prefix + "_processing_duration_seconds",
			Help:    "Time spent processing work items",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),
	}

	const component = "worker_pool"
	r := p.metricsRegistry
	for _, err := range []error{
		r.RegisterGauge(component, prefix+"_queue_depth", m.queueDepth),
		r.RegisterCounter(component, prefix+"_submitted_total", m.submitted),
		r.RegisterCounter(component, prefix+"_processed_total", m.processed),
		r.RegisterCounter(component, prefix+"_failed_total", m.failed),
		r.RegisterCounter(component, prefix+"_dropped_total", m.dropped),
		r.RegisterHistogram(component, prefix+"_processing_duration_seconds", m.processingTime),
	} {
		if err != nil {
			return fmt.Errorf("worker pool %s: %w", prefix, err)
		}
	}
	p.metrics = m
	return nil
}

// Submit queues work without blocking. It returns ErrQueueFull when the queue
// is at capacity.
func (p *Pool[T]) Submit(work T) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started {
		return ErrPoolNotStarted
	}
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.workChan <- work:
		p.submitted.Add(1)
		if p.metrics != nil {
			p.metrics.submitted.Inc()
			p.metrics.queueDepth.Set(float64(len(p.workChan)))
		}
		return nil
	default:
		p.dropped.Add(1)
		if p.metrics != nil {
			p.metrics.dropped.Inc()
		}
		return ErrQueueFull
	}
}

// Start launches the workers. The processor receives ctx; cancelling it stops the
// workers without draining.
func (p *Pool[T]) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.started {
		return ErrPoolAlreadyStarted
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}

	if p.metrics != nil {
		tickCtx, cancel := context.WithCancel(ctx)
		p.stopTicker = cancel
		p.wg.Add(1)
		go p.metricsUpdater(tickCtx)
	}

	p.started = true
	return nil
}

// Stop closes the queue and waits up to timeout for queued work to finish.
// It is safe to call more than once.
func (p *Pool[T]) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	if !p.started || p.stopped {
		p.lifecycleMu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.workChan)
	if p.stopTicker != nil {
		p.stopTicker()
	}
	p.lifecycleMu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// Stats returns current pool statistics
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Workers:    p.workers,
		QueueSize:  p.queueSize,
		QueueDepth: len(p.workChan),
		Submitted:  p.submitted.Load(),
		Processed:  p.processed.Load(),
		Failed:     p.failed.Load(),
		Dropped:    p.dropped.Load(),
		Panics:     p.panics.Load(),
	}
}

// PoolStats represents worker pool statistics
type PoolStats struct {
	Workers    int   `json:"workers"`
	QueueSize  int   `json:"queue_size"`
	QueueDepth int   `json:"queue_depth"`
	Submitted  int64 `json:"submitted"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	Dropped    int64 `json:"dropped"`
	Panics     int64 `json:"panics"`
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case work, ok := <-p.workChan:
			if !ok {
				return
			}
			p.process(ctx, work)
		}
	}
}

func (p *Pool[T]) process(ctx context.Context, work T) {
	start := time.Now()
	err := p.safeProcess(ctx, work)

	p.processed.Add(1)
	if err != nil {
		p.failed.Add(1)
	}
	if p.metrics != nil {
		p.metrics.processed.Inc()
		if err != nil {
			p.metrics.failed.Inc()
		}
		p.metrics.processingTime.Observe(time.Since(start).Seconds())
	}
}

func (p *Pool[T]) safeProcess(ctx context.Context, work T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			if p.onPanic != nil {
				p.onPanic(r)
			}
			err = fmt.Errorf("worker pool: processor panic: %v", r)
		}
	}()
	return p.processor(ctx, work)
}

func (p *Pool[T]) metricsUpdater(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.metrics.queueDepth.Set(float64(len(p.workChan)))
		}
	}
}
