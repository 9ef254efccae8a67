package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/moodlink/errors"
	"github.com/c360/moodlink/health"
	"github.com/c360/moodlink/pkg/retry"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusCircuitOpen
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusCircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

// Error messages
var (
	ErrNotConnected = stderrors.New("not connected to NATS")
	ErrCircuitOpen  = stderrors.New("circuit breaker is open")
)

// Client manages one NATS connection.
type Client struct {
	url    string
	logger *slog.Logger

	mu     sync.RWMutex
	conn   *nats.Conn
	subs   []*nats.Subscription
	status atomic.Int32

	// Circuit breaker
	failures         atomic.Int32
	circuitThreshold int32
	backoff          atomic.Int64 // time.Duration
	maxBackoff       time.Duration
	openUntil        atomic.Int64 // unix nanos

	maxReconnects int
	reconnectWait time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration
	clientName    string
	token         string

	onStatus func(ConnectionStatus)

	closeOnce sync.Once
}

// NewClient creates a client for url. It does not connect.
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:              url,
		logger:           slog.Default().With("component", "natsclient"),
		maxReconnects:    -1,
		reconnectWait:    2 * time.Second,
		timeout:          5 * time.Second,
		drainTimeout:     5 * time.Second,
		circuitThreshold: 5,
		maxBackoff:       time.Minute,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}
	c.backoff.Store(int64(time.Second))
	return c, nil
}

// URL returns the NATS server URL
func (c *Client) URL() string { return c.url }

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	return ConnectionStatus(c.status.Load())
}

// IsHealthy returns true if the connection is up
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

// Failures returns the consecutive connect failures
func (c *Client) Failures() int32 { return c.failures.Load() }

// Health reports the connection as a health status.
func (c *Client) Health() health.Status {
	st := c.Status()
	switch st {
	case StatusConnected:
		return health.NewHealthy("nats", c.url)
	case StatusReconnecting, StatusConnecting:
		return health.NewDegraded("nats", st.String())
	default:
		return health.NewUnhealthy("nats", st.String())
	}
}

func (c *Client) setStatus(s ConnectionStatus) {
	if ConnectionStatus(c.status.Swap(int32(s))) != s && c.onStatus != nil {
		c.onStatus(s)
	}
}

func (c *Client) connectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.logger.Warn("NATS disconnected", "error", err)
			c.setStatus(StatusReconnecting)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
			c.setStatus(StatusConnected)
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			c.setStatus(StatusDisconnected)
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			c.logger.Error("NATS async error", "error", err)
		}),
	}
	if c.clientName != "" {
		opts = append(opts, nats.Name(c.clientName))
	}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}
	return opts
}

// Connect dials the server. It returns ErrCircuitOpen while the breaker is open.
func (c *Client) Connect(ctx context.Context) error {
	if c.circuitOpen() {
		return ErrCircuitOpen
	}

	c.setStatus(StatusConnecting)
	c.logger.Info("Connecting to NATS", "url", c.url)

	type result struct {
		conn *nats.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := nats.Connect(c.url, c.connectionOptions()...)
		done <- result{conn, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		// Close the connection if it arrives after we gave up.
		go func() {
			if r := <-done; r.conn != nil {
				r.conn.Close()
			}
		}()
		res.err = ctx.Err()
	}

	if res.err != nil {
		if c.recordFailure() {
			return ErrCircuitOpen
		}
		c.setStatus(StatusDisconnected)
		return errors.WrapTransient(res.err, "Client", "Connect", "establish connection")
	}

	c.mu.Lock()
	c.conn = res.conn
	c.mu.Unlock()

	c.resetCircuit()
	c.setStatus(StatusConnected)
	c.logger.Info("Connected to NATS", "url", c.url)
	return nil
}

// ConnectWithRetry calls Connect until it succeeds or policy is exhausted.
// An open circuit counts as a failed attempt.
func (c *Client) ConnectWithRetry(ctx context.Context, policy retry.Config) error {
	return retry.Do(ctx, policy, func(attempt int) error {
		err := c.Connect(ctx)
		if err != nil && attempt < policy.MaxAttempts {
			c.logger.Warn("NATS connect failed, retrying", "attempt", attempt, "error", err)
		}
		return err
	})
}

// WaitForConnection waits for the connection to be established
func (c *Client) WaitForConnection(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if c.IsHealthy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("connection timeout: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// recordFailure counts a failure and reports whether the circuit opened.
func (c *Client) recordFailure() bool {
	if c.failures.Add(1) < c.circuitThreshold {
		return false
	}

	backoff := time.Duration(c.backoff.Load())
	c.openUntil.Store(time.Now().Add(backoff).UnixNano())
	next := backoff * 2
	if next > c.maxBackoff {
		next = c.maxBackoff
	}
	c.backoff.Store(int64(next))
	c.failures.Store(0)

	c.logger.Warn("NATS circuit breaker opened", "threshold", c.circuitThreshold, "backoff", backoff)
	c.setStatus(StatusCircuitOpen)
	return true
}

func (c *Client) circuitOpen() bool {
	until := c.openUntil.Load()
	if until == 0 {
		return false
	}
	if time.Now().UnixNano() < until {
		return true
	}
	c.openUntil.Store(0)
	c.setStatus(StatusDisconnected)
	return false
}

func (c *Client) resetCircuit() {
	c.failures.Store(0)
	c.openUntil.Store(0)
	c.backoff.Store(int64(time.Second))
}

// Connection returns the current NATS connection, or nil.
func (c *Client) Connection() *nats.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// Publish publishes a message to a NATS subject
func (c *Client) Publish(_ context.Context, subject string, data []byte) error {
	conn := c.Connection()
	if conn == nil || !conn.IsConnected() {
		return ErrNotConnected
	}
	if err := conn.Publish(subject, data); err != nil {
		return errors.WrapTransient(err, "Client", "Publish", fmt.Sprintf("publish to %s", subject))
	}
	return nil
}

// Subscribe delivers every message on subject to handler until Close.
func (c *Client) Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.conn.IsConnected() {
		return ErrNotConnected
	}
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(ctx, msg.Data)
	})
	if err != nil {
		return errors.WrapTransient(err, "Client", "Subscribe", fmt.Sprintf("subscribe to %s", subject))
	}
	c.subs = append(c.subs, sub)
	return nil
}

// Flush waits until the server has processed everything published so far.
func (c *Client) Flush(ctx context.Context) error {
	conn := c.Connection()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.FlushWithContext(ctx)
}

// Close drains and closes the connection. It is safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	var closeErr error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		conn, subs := c.conn, c.subs
		c.conn, c.subs = nil, nil
		c.mu.Unlock()

		for _, sub := range subs {
			_ = sub.Unsubscribe()
		}
		if conn == nil {
			c.setStatus(StatusDisconnected)
			return
		}

		timeout := c.drainTimeout
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining > 0 && remaining < timeout {
				timeout = remaining
			}
		}

		drained := make(chan error, 1)
		go func() { drained <- conn.Drain() }()

		select {
		case err := <-drained:
			if err != nil {
				closeErr = errors.Wrap(err, "Client", "Close", "drain connection")
			}
		case <-time.After(timeout):
			closeErr = errors.WrapTransient(fmt.Errorf("drain timeout after %v", timeout), "Client", "Close", "drain")
		case <-ctx.Done():
			closeErr = errors.Wrap(ctx.Err(), "Client", "Close", "drain")
		}

		conn.Close()
		c.token = ""
		c.setStatus(StatusDisconnected)
	})
	return closeErr
}
