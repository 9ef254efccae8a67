package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/moodlink/aggregate"
	"github.com/c360/moodlink/config"
	"github.com/c360/moodlink/emotion"
	"github.com/c360/moodlink/errors"
	"github.com/c360/moodlink/health"
	"github.com/c360/moodlink/link"
	"github.com/c360/moodlink/metric"
	"github.com/c360/moodlink/natsclient"
	"github.com/c360/moodlink/pkg/retry"
	"github.com/c360/moodlink/sample"
	"github.com/c360/moodlink/sensor"
	"github.com/c360/moodlink/stream"
	"github.com/c360/moodlink/ui"
	"github.com/c360/moodlink/wire"
)

// SystemName is the component name of the aggregated health status.
const SystemName = "moodlink"

// natsConnectDelay is the first delay between NATS connect attempts.
const natsConnectDelay = 500 * time.Millisecond

// Deps overrides collaborators Init would otherwise build from the config.
// Every field is optional.
type Deps struct {
	Logger    *slog.Logger
	Registry  *metric.MetricsRegistry
	Transport link.Transport
	Gate      link.Gate
	Sink      ui.Sink
	// Source feeds the sender role.
	Source sensor.Source
	// NATS is used by the nats sink instead of dialing cfg.NATS. The Handle does
	// not close a client it did not create.
	NATS *natsclient.Client
}

// Handle is a running moodlink process.
type Handle struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	metrics  *metric.Metrics
	monitor  *health.Monitor

	manager    *link.Manager
	dispatcher *ui.Dispatcher
	pipeline   *Pipeline
	source     sensor.Source

	nats     *natsclient.Client
	ownsNATS bool
	server   *metric.Server

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	// The dispatcher outlives ctx so Shutdown can deliver what is queued.
	cancelDispatch context.CancelFunc

	closed       atomic.Bool
	shutdownOnce sync.Once
	shutdownErr  error
}

// Init validates cfg, builds the process and starts it. The process runs until
// ctx is cancelled or Shutdown is called.
//
// A link denied by the availability gate is not an Init error: the denial is
// posted as status text and the Handle is returned so Reset can try again.
func Init(ctx context.Context, cfg *config.Config, deps Deps) (*Handle, error) {
	if cfg == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "app", "Init", "configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := deps.Registry
	if registry == nil {
		registry = metric.NewMetricsRegistry()
	}

	h := &Handle{
		cfg:      cfg,
		logger:   logger.With("component", "app", "role", cfg.Role),
		registry: registry,
		metrics:  registry.CoreMetrics(),
		monitor:  health.NewMonitor(),
	}

	if err := h.build(ctx, deps); err != nil {
		h.release()
		return nil, err
	}
	if err := h.start(ctx); err != nil {
		h.abort()
		return nil, err
	}

	h.logger.Info("moodlink started", "transport", cfg.Link.Transport, "service", cfg.ServiceID().String())
	return h, nil
}

func (h *Handle) build(ctx context.Context, deps Deps) error {
	sink, err := h.buildSink(ctx, deps)
	if err != nil {
		return err
	}
	h.dispatcher, err = ui.NewDispatcher(sink, h.cfg.UI.QueueSize, h.logger, h.registry)
	if err != nil {
		return errors.Wrap(err, "app", "Init", "create ui dispatcher")
	}

	transport := deps.Transport
	if transport == nil {
		transport = newTransport(h.cfg)
	}
	gate := deps.Gate
	if gate == nil {
		gate = link.StaticGate(h.cfg.Link.Permitted, "link access is not permitted")
	}

	role, err := link.ParseRole(h.cfg.Role)
	if err != nil {
		return err
	}
	h.manager, err = link.NewManager(link.Config{
		Role:          role,
		ServiceUUID:   h.cfg.ServiceID(),
		PeerAddress:   h.cfg.Link.PeerAddress,
		MaxRetries:    h.cfg.Link.MaxRetries,
		RetryDelay:    h.cfg.Link.RetryDelay,
		DialTimeout:   h.cfg.Link.DialTimeout,
		AutoReconnect: h.cfg.Link.AutoReconnect,
	}, link.Deps{
		Transport: transport,
		Gate:      gate,
		Logger:    h.logger,
		Metrics:   h.metrics,
		OnState:   h.onLinkState,
	})
	if err != nil {
		return err
	}

	switch h.cfg.Role {
	case config.RoleReceiver:
		agg, err := aggregate.New(h.cfg.Classifier.WindowSize, aggregate.WithMetrics(h.registry))
		if err != nil {
			return errors.Wrap(err, "app", "Init", "create aggregator")
		}
		classifier, err := emotion.New(emotion.Mode(h.cfg.Classifier.Mode))
		if err != nil {
			return err
		}
		h.pipeline = NewPipeline(agg, classifier, h.metrics)
	case config.RoleSender:
		h.source = deps.Source
		if h.source == nil {
			sim, err := sensor.NewSimulator(sensor.SimulatorConfig{
				Interval:         h.cfg.Sensor.Interval,
				RestingHeartRate: h.cfg.Sensor.RestingHeartRate,
				Agitation:        h.cfg.Sensor.Agitation,
				Limit:            h.cfg.Sensor.Limit,
				Seed:             h.cfg.Sensor.Seed,
			})
			if err != nil {
				return err
			}
			h.source = sim
		}
	}

	if h.cfg.Metrics.Port > 0 {
		h.server = metric.NewServer(fmt.Sprintf(":%d", h.cfg.Metrics.Port), h.registry, h, h.logger)
	}
	return nil
}

func (h *Handle) buildSink(ctx context.Context, deps Deps) (ui.Sink, error) {
	if deps.Sink != nil {
		return deps.Sink, nil
	}

	logSink := ui.LogSink{Logger: h.logger}
	if h.cfg.UI.Sink == config.SinkLog {
		return logSink, nil
	}

	h.nats = deps.NATS
	if h.nats == nil {
		client, err := natsclient.NewClient(h.cfg.NATS.URL,
			natsclient.WithName(h.cfg.NATS.Name),
			natsclient.WithToken(h.cfg.NATS.Token),
			natsclient.WithTimeout(h.cfg.NATS.Timeout),
			natsclient.WithLogger(h.logger),
		)
		if err != nil {
			return nil, errors.Wrap(err, "app", "Init", "create nats client")
		}
		policy := retry.Backoff(h.cfg.NATS.ConnectAttempts, natsConnectDelay, h.cfg.NATS.Timeout)
		if err := client.ConnectWithRetry(ctx, policy); err != nil {
			return nil, errors.Wrap(err, "app", "Init", "connect nats")
		}
		h.nats = client
		h.ownsNATS = true
	}

	natsSink := ui.NATSSink{Publisher: h.nats, Subject: h.cfg.UI.Subject}
	if h.cfg.UI.Sink == config.SinkBoth {
		return ui.MultiSink{logSink, natsSink}, nil
	}
	return natsSink, nil
}

func newTransport(cfg *config.Config) link.Transport {
	if cfg.Link.Transport == config.TransportWebSocket {
		return link.NewWebSocketTransport(cfg.Link.ListenAddress, cfg.Link.PairedPeers)
	}
	return link.NewTCPTransport(cfg.Link.ListenAddress, cfg.Link.PairedPeers)
}

func (h *Handle) start(ctx context.Context) error {
	h.ctx, h.cancel = context.WithCancel(ctx)
	dispatchCtx, cancelDispatch := context.WithCancel(context.WithoutCancel(ctx))
	h.cancelDispatch = cancelDispatch

	if h.server != nil {
		if err := h.server.Start(); err != nil {
			return errors.Wrap(err, "app", "Init", "start metrics server")
		}
	}
	if err := h.dispatcher.Start(dispatchCtx); err != nil {
		return errors.Wrap(err, "app", "Init", "start ui dispatcher")
	}

	if err := h.manager.Start(h.ctx); err != nil && !errors.Is(err, errors.ErrPermissionDenied) {
		return err
	}

	g, gctx := errgroup.WithContext(h.ctx)
	if h.pipeline != nil {
		g.Go(func() error { return h.receive(gctx) })
	}
	if h.source != nil {
		g.Go(func() error { return h.send(gctx) })
	}
	h.group = g
	return nil
}

func (h *Handle) onLinkState(st link.State, err error) {
	peer, ok := link.Peer{}, false
	if st.Phase == link.Connected {
		peer, ok = h.manager.Peer()
	}
	h.dispatcher.Status(LinkStatus(h.manager.Role(), st, err, peer, ok))
}

// receive supervises one stream per established connection.
func (h *Handle) receive(ctx context.Context) error {
	s := stream.New(h.manager, stream.Handler{
		OnSample: func(smp sample.Sample, raw string) {
			if err := h.dispatcher.Post(h.pipeline.Process(smp, raw)); err != nil {
				h.logger.Debug("Recommendation dropped", "error", err)
			}
		},
	}, stream.Config{PollInterval: h.cfg.Link.ReadPoll}, h.logger, h.metrics)

	for {
		// Taken before the wait so a Reset between the two is not missed.
		changed := h.manager.Changes()
		if err := h.manager.WaitConnected(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// Failed: idle until Reset moves the manager on.
			select {
			case <-ctx.Done():
				return nil
			case <-changed:
			}
			continue
		}

		if err := s.Run(ctx); err != nil {
			h.logger.Warn("Stream stopped", "error", err)
		}
	}
}

// send writes every sample from the source while the link is up. Samples taken
// while it is down are dropped.
func (h *Handle) send(ctx context.Context) error {
	err := h.source.Run(ctx, func(s sample.Sample) {
		frame, err := wire.Encode(s)
		if err != nil {
			h.logger.Warn("Sample not encodable", "sample", s.String(), "error", err)
			return
		}

		if !h.manager.State().IsConnected() {
			h.metrics.RecordSent("dropped")
			h.dispatcher.Status(StatusNotSent)
			return
		}
		if _, err := h.manager.Write(frame); err != nil {
			h.metrics.RecordSent("error")
			h.dispatcher.Status(SendErrorStatus(err))
			return
		}
		h.metrics.RecordSent("sent")
		if err := h.dispatcher.Post(ui.Update{Diagnostic: "Sensor Data: " + s.String()}); err != nil {
			h.logger.Debug("Sensor update dropped", "error", err)
		}
	})
	if err != nil && ctx.Err() == nil {
		return errors.Wrap(err, "app", "send", "read sensor")
	}
	return nil
}

// Manager returns the link manager.
func (h *Handle) Manager() *link.Manager { return h.manager }

// Reset clears a Failed link and starts a new establishment cycle. The gate is
// checked again, so Reset also retries a denied start. The aggregation windows
// are cleared.
func (h *Handle) Reset() error {
	if h.closed.Load() {
		return errors.Wrap(errors.ErrShuttingDown, "app", "Reset", "reset link")
	}

	h.manager.Reset()
	if h.pipeline != nil {
		h.pipeline.Reset()
	}
	err := h.manager.Start(h.ctx)
	if errors.Is(err, errors.ErrAlreadyStarted) {
		return nil
	}
	return err
}

// Health aggregates link, UI and NATS health.
func (h *Handle) Health() health.Status {
	return h.AggregateHealth(SystemName)
}

// AggregateHealth refreshes the monitor and aggregates it under systemName.
func (h *Handle) AggregateHealth(systemName string) health.Status {
	h.monitor.Update("link", h.manager.Health())
	h.monitor.Update("ui", h.dispatcher.Health())
	if h.nats != nil {
		h.monitor.Update("nats", h.nats.Health())
	}
	return h.monitor.AggregateHealth(systemName)
}

// Done is closed when the Handle's context ends.
func (h *Handle) Done() <-chan struct{} { return h.ctx.Done() }

// Shutdown stops the link, ends the role task, delivers queued UI updates and
// closes owned connections. Each stage gets up to timeout. Shutdown is
// idempotent; later calls return the first result.
func (h *Handle) Shutdown(timeout time.Duration) error {
	h.shutdownOnce.Do(func() {
		h.closed.Store(true)
		h.shutdownErr = h.shutdown(timeout)
	})
	return h.shutdownErr
}

func (h *Handle) shutdown(timeout time.Duration) error {
	var errs []error

	if err := h.manager.Stop(timeout); err != nil {
		errs = append(errs, err)
	}
	h.cancel()

	done := make(chan error, 1)
	go func() { done <- h.group.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			errs = append(errs, err)
		}
	case <-time.After(timeout):
		errs = append(errs, errors.WrapTransient(errors.ErrShuttingDown, "app", "Shutdown", "wait for tasks"))
	}

	if err := h.dispatcher.Stop(timeout); err != nil {
		errs = append(errs, err)
	}
	h.cancelDispatch()
	if h.server != nil {
		if err := h.server.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	h.release()

	h.logger.Info("moodlink stopped")
	return stderrors.Join(errs...)
}

// abort unwinds a partial start.
func (h *Handle) abort() {
	h.cancel()
	_ = h.manager.Stop(time.Second)
	_ = h.dispatcher.Stop(time.Second)
	h.cancelDispatch()
	if h.server != nil {
		_ = h.server.Stop()
	}
	h.release()
}

// release closes an owned NATS client.
func (h *Handle) release() {
	if !h.ownsNATS || h.nats == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.nats.Close(ctx); err != nil {
		h.logger.Warn("NATS close failed", "error", err)
	}
	h.ownsNATS = false
}
