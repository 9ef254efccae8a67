package link

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/moodlink/errors"
	"github.com/c360/moodlink/health"
	"github.com/c360/moodlink/metric"
	"github.com/c360/moodlink/pkg/retry"
)

// Defaults for Config.
const (
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 2 * time.Second
	DefaultDialTimeout = 10 * time.Second
)

// Config controls a Manager.
type Config struct {
	Role        Role
	ServiceUUID uuid.UUID
	// PeerAddress is dialed by the connector role. Empty selects the first paired peer.
	PeerAddress string
	// MaxRetries is the number of establishment attempts before Failed.
	MaxRetries  int
	RetryDelay  time.Duration
	DialTimeout time.Duration
	// AutoReconnect starts a new establishment cycle after an established link drops.
	AutoReconnect bool
}

// DefaultConfig returns a listener configuration with the standard retry policy.
func DefaultConfig() Config {
	return Config{
		Role:          RoleListener,
		ServiceUUID:   DefaultServiceUUID,
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		DialTimeout:   DefaultDialTimeout,
		AutoReconnect: true,
	}
}

// Deps holds the Manager's collaborators. Transport is required.
type Deps struct {
	Transport Transport
	Gate      Gate
	Logger    *slog.Logger
	Metrics   *metric.Metrics
	OnState   StateHandler
}

// session is one established connection.
type session struct {
	id   string
	conn Conn
	lost chan struct{}
	once sync.Once
}

func (s *session) close() {
	s.once.Do(func() {
		close(s.lost)
		_ = s.conn.Close()
	})
}

// Manager owns the link for one role.
type Manager struct {
	cfg       Config
	transport Transport
	gate      Gate
	logger    *slog.Logger
	metrics   *metric.Metrics
	onState   StateHandler

	lifecycleMu sync.Mutex // serializes Start, Stop and Reset
	notifyMu    sync.Mutex // keeps state notifications ordered

	mu       sync.RWMutex
	state    State
	lastErr  error
	changed  chan struct{}
	sess     *session
	listener Listener
	cancel   context.CancelFunc
	running  bool

	wg sync.WaitGroup
}

// NewManager creates a Manager in Disconnected.
func NewManager(cfg Config, deps Deps) (*Manager, error) {
	if deps.Transport == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Manager", "NewManager", "transport is required")
	}
	if cfg.MaxRetries <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Manager", "NewManager", "max retries must be positive")
	}
	if cfg.RetryDelay < 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Manager", "NewManager", "retry delay cannot be negative")
	}
	if cfg.ServiceUUID == uuid.Nil {
		cfg.ServiceUUID = DefaultServiceUUID
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}

	gate := deps.Gate
	if gate == nil {
		gate = AllowAll
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		cfg:       cfg,
		transport: deps.Transport,
		gate:      gate,
		logger:    logger.With("component", "link", "role", cfg.Role.String()),
		metrics:   deps.Metrics,
		onState:   deps.OnState,
		changed:   make(chan struct{}),
	}, nil
}

// Role returns the configured role.
func (m *Manager) Role() Role { return m.cfg.Role }

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// LastError returns the error that caused the latest state change, if any.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Peer returns the connected peer.
func (m *Manager) Peer() (Peer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sess == nil {
		return Peer{}, false
	}
	return m.sess.conn.Peer(), true
}

// ListenAddr returns the bound listener address, or "" when not listening.
func (m *Manager) ListenAddr() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr()
}

// Start checks the gate and begins establishment on a background task.
// A denied gate leaves the manager Disconnected and is never retried.
func (m *Manager) Start(ctx context.Context) error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	m.mu.RLock()
	phase, running := m.state.Phase, m.running
	m.mu.RUnlock()

	if phase == Failed {
		return errors.WrapFatal(errors.ErrLinkFailed, "Manager", "Start", "check link state")
	}
	if running {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Manager", "Start", "check link state")
	}

	if err := m.gate.Permit(ctx); err != nil {
		denied := errors.WrapFatal(permissionError(err), "Manager", "Start", "permission gate")
		m.logger.Warn("Link permission denied", "error", err)
		m.metrics.RecordLinkFailure(errors.ErrorFatal.String())
		m.setState(State{Phase: Disconnected}, denied)
		return denied
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(runCtx)
	return nil
}

// run is the connect/retry task. It establishes, waits for loss and, with
// AutoReconnect, starts again until ctx is cancelled or the link fails.
func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	// release frees the run slot on exits that publish no terminal state.
	released := false
	release := func() {
		if !released {
			released = true
			m.publish(State{}, nil, publishRelease)
		}
	}
	defer release()

	for {
		sess, err := m.establish(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
			case errors.Is(err, errors.ErrPermissionDenied):
				m.closeListener()
				released = true
				m.publish(State{Phase: Disconnected}, err, publishState|publishRelease)
			default:
				m.closeListener()
				failed := errors.WrapFatal(fmt.Errorf("%w: %v", errors.ErrMaxRetriesExceeded, err),
					"Manager", "run", "establish link")
				m.logger.Error("Link failed after maximum retries", "attempts", m.cfg.MaxRetries, "error", err)
				released = true
				m.publish(State{Phase: Failed, Attempt: m.cfg.MaxRetries}, failed, publishState|publishRelease)
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-sess.lost:
		}

		if !m.cfg.AutoReconnect || ctx.Err() != nil {
			return
		}
		m.logger.Info("Link lost, reconnecting")
	}
}

func (m *Manager) establish(ctx context.Context) (*session, error) {
	policy := retry.Fixed(m.cfg.MaxRetries, m.cfg.RetryDelay)

	return retry.DoWithResult(ctx, policy, func(attempt int) (*session, error) {
		m.setState(State{Phase: Connecting, Attempt: attempt - 1}, nil)
		m.metrics.RecordLinkAttempt()

		conn, err := m.connectOnce(ctx)
		if err == nil {
			if sess := m.attach(ctx, conn); sess != nil {
				return sess, nil
			}
			return nil, retry.NonRetryable(context.Canceled)
		}

		if ctx.Err() != nil {
			return nil, retry.NonRetryable(ctx.Err())
		}
		if isPermission(err) {
			m.logger.Warn("Link permission denied by transport", "error", err)
			m.metrics.RecordLinkFailure(errors.ErrorFatal.String())
			return nil, retry.NonRetryable(errors.WrapFatal(permissionError(err), "Manager", "establish", "open transport"))
		}

		m.metrics.RecordLinkFailure(errors.Classify(err).String())
		m.logger.Warn("Link attempt failed", "attempt", attempt, "max_retries", m.cfg.MaxRetries, "error", err)
		m.setState(State{Phase: Retrying, Attempt: attempt}, err)
		return nil, err
	})
}

func (m *Manager) connectOnce(ctx context.Context) (Conn, error) {
	if m.cfg.Role == RoleListener {
		ln, err := m.ensureListener(ctx)
		if err != nil {
			return nil, err
		}
		conn, err := ln.Accept(ctx)
		if err != nil && ctx.Err() == nil {
			// A broken listener is reopened on the next attempt.
			m.closeListener()
		}
		return conn, err
	}

	peer, err := m.SelectPeer(ctx)
	if err != nil {
		return nil, err
	}
	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
	defer cancel()
	return m.transport.Dial(dialCtx, peer, m.cfg.ServiceUUID)
}

func (m *Manager) ensureListener(ctx context.Context) (Listener, error) {
	m.mu.RLock()
	ln := m.listener
	m.mu.RUnlock()
	if ln != nil {
		return ln, nil
	}

	ln, err := m.transport.Listen(ctx, m.cfg.ServiceUUID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		_ = ln.Close()
		return nil, ctx.Err()
	}
	m.listener = ln
	m.mu.Unlock()

	m.logger.Info("Waiting for device connection", "address", ln.Addr(), "service", m.cfg.ServiceUUID.String())
	return ln, nil
}

func (m *Manager) closeListener() {
	m.mu.Lock()
	ln := m.listener
	m.listener = nil
	m.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
}

// SelectPeer returns the configured peer address or, when none is set, the first
// paired peer.
func (m *Manager) SelectPeer(ctx context.Context) (Peer, error) {
	if m.cfg.PeerAddress != "" {
		return Peer{Name: m.cfg.PeerAddress, Address: m.cfg.PeerAddress}, nil
	}

	peers, err := m.transport.PairedPeers(ctx)
	if err != nil {
		return Peer{}, errors.WrapTransient(err, "Manager", "SelectPeer", "list paired peers")
	}
	if len(peers) == 0 {
		return Peer{}, errors.WrapTransient(errors.ErrNoPairedPeers, "Manager", "SelectPeer", "select peer")
	}
	return peers[0], nil
}

// attach installs conn as the active session unless the cycle was cancelled.
func (m *Manager) attach(ctx context.Context, conn Conn) *session {
	sess := &session{id: uuid.NewString(), conn: conn, lost: make(chan struct{})}

	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	m.sess = sess
	m.mu.Unlock()

	m.logger.Info("Link connected", "peer", conn.Peer().String(), "session", sess.id)
	m.setState(State{Phase: Connected}, nil)
	return sess
}

// detach drops sess after an I/O error. It reports false if sess was no longer active.
func (m *Manager) detach(sess *session, cause error) bool {
	m.mu.Lock()
	if m.sess != sess {
		m.mu.Unlock()
		return false
	}
	m.sess = nil
	m.mu.Unlock()

	sess.close()
	m.logger.Warn("Link lost", "session", sess.id, "error", cause)
	m.metrics.RecordLinkFailure(errors.ErrorTransient.String())
	m.setState(State{Phase: Disconnected}, cause)
	return true
}

func (m *Manager) active() *session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state.Phase != Connected {
		return nil
	}
	return m.sess
}

// Read reads from the active connection. It fails with ErrNotConnected outside
// Connected. Any other read error drops the link and is reported as ErrIOFailure.
func (m *Manager) Read(p []byte) (int, error) {
	return m.read(p, 0)
}

// ReadTimeout is Read with a deadline. An expired deadline returns an error for
// which IsTimeout is true and leaves the link Connected.
func (m *Manager) ReadTimeout(p []byte, timeout time.Duration) (int, error) {
	return m.read(p, timeout)
}

func (m *Manager) read(p []byte, timeout time.Duration) (int, error) {
	sess := m.active()
	if sess == nil {
		return 0, errors.Wrap(errors.ErrNotConnected, "Manager", "Read", "check link state")
	}

	if timeout > 0 {
		_ = sess.conn.SetReadDeadline(time.Now().Add(timeout))
	} else {
		_ = sess.conn.SetReadDeadline(time.Time{})
	}

	n, err := sess.conn.Read(p)
	m.metrics.RecordBytes("in", n)
	if err == nil {
		return n, nil
	}
	if timeout > 0 && IsTimeout(err) {
		return n, err
	}
	return n, m.ioFailure(sess, "Read", "socket read", err)
}

// Write writes p to the active connection. It fails with ErrNotConnected outside
// Connected. A write error drops the link and is reported as ErrIOFailure.
func (m *Manager) Write(p []byte) (int, error) {
	sess := m.active()
	if sess == nil {
		return 0, errors.Wrap(errors.ErrNotConnected, "Manager", "Write", "check link state")
	}

	n, err := sess.conn.Write(p)
	m.metrics.RecordBytes("out", n)
	if err != nil {
		return n, m.ioFailure(sess, "Write", "socket write", err)
	}
	return n, nil
}

func (m *Manager) ioFailure(sess *session, op, action string, cause error) error {
	if !m.detach(sess, errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrIOFailure, cause), "Manager", op, action)) {
		// Torn down concurrently by Stop or another I/O call.
		return errors.Wrap(errors.ErrNotConnected, "Manager", op, "check link state")
	}
	return errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrIOFailure, cause), "Manager", op, action)
}

// WaitConnected blocks until the link is Connected, it fails, or ctx is done.
func (m *Manager) WaitConnected(ctx context.Context) error {
	for {
		m.mu.RLock()
		st, changed := m.state, m.changed
		m.mu.RUnlock()

		switch st.Phase {
		case Connected:
			return nil
		case Failed:
			return errors.WrapFatal(errors.ErrLinkFailed, "Manager", "WaitConnected", "wait for link")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// Changes returns a channel closed at the next state change.
func (m *Manager) Changes() <-chan struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.changed
}

// Stop tears the link down: it cancels establishment, closes the connection and
// the listening socket, and waits up to timeout for the connect task. Stop is
// idempotent. A Failed manager stays Failed.
func (m *Manager) Stop(timeout time.Duration) error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	sess, ln := m.sess, m.listener
	m.sess, m.listener = nil, nil
	m.mu.Unlock()

	if sess != nil {
		sess.close()
	}
	if ln != nil {
		_ = ln.Close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(timeout):
		err = errors.WrapTransient(fmt.Errorf("shutdown timeout after %v", timeout), "Manager", "Stop", "wait for connect task")
	}

	if phase := m.State().Phase; phase != Failed && phase != Disconnected {
		m.setState(State{Phase: Disconnected}, nil)
	}
	return err
}

// Reset clears Failed so the manager can be started again.
func (m *Manager) Reset() {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	if m.State().Phase == Failed {
		m.setState(State{Phase: Disconnected}, nil)
	}
}

// Health reports the link as a health status.
func (m *Manager) Health() health.Status {
	m.mu.RLock()
	st, err := m.state, m.lastErr
	m.mu.RUnlock()

	msg := st.String()
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	switch st.Phase {
	case Connected:
		return health.NewHealthy("link", msg)
	case Failed:
		return health.NewUnhealthy("link", msg)
	default:
		return health.NewDegraded("link", msg)
	}
}

func (m *Manager) setState(st State, err error) {
	m.publish(st, err, publishState)
}

const (
	publishState = 1 << iota
	publishRelease
)

// publish applies a state change and, with publishRelease, frees the run slot and
// its context in the same critical section, so Start never observes a finished run
// whose terminal state is not yet visible.
func (m *Manager) publish(st State, err error, what int) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	var cancel context.CancelFunc
	m.mu.Lock()
	if what&publishRelease != 0 {
		m.running = false
		cancel, m.cancel = m.cancel, nil
	}
	if what&publishState != 0 {
		m.state = st
		m.lastErr = err
		close(m.changed)
		m.changed = make(chan struct{})
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if what&publishState == 0 {
		return
	}

	m.metrics.RecordLinkState(int(st.Phase))
	m.logger.Debug("Link state changed", "state", st.String())
	if m.onState != nil {
		m.onState(st, err)
	}
}
