package link

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/c360/moodlink/errors"
)

const wsPathPrefix = "/link/"

// WebSocketTransport carries the link over a websocket. The service UUID is the
// last path segment, so a peer asking for another service gets a 404.
type WebSocketTransport struct {
	listenAddress string
	paired        []Peer
	upgrader      websocket.Upgrader
	dialer        *websocket.Dialer
}

// NewWebSocketTransport creates a transport serving on listenAddress.
func NewWebSocketTransport(listenAddress string, paired []Peer) *WebSocketTransport {
	return &WebSocketTransport{
		listenAddress: listenAddress,
		paired:        append([]Peer(nil), paired...),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// ServicePath returns the HTTP path serving service.
func ServicePath(service uuid.UUID) string {
	return wsPathPrefix + service.String()
}

// Listen starts an HTTP server that upgrades requests on the service path.
func (t *WebSocketTransport) Listen(ctx context.Context, service uuid.UUID) (Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", t.listenAddress)
	if err != nil {
		if isPermission(err) {
			return nil, permissionError(err)
		}
		return nil, errors.WrapTransient(err, "WebSocketTransport", "Listen", fmt.Sprintf("bind %s", t.listenAddress))
	}

	l := &wsListener{
		ln:       ln,
		accepted: make(chan *websocket.Conn),
		closed:   make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(ServicePath(service), func(w http.ResponseWriter, r *http.Request) {
		conn, err := t.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		select {
		case l.accepted <- conn:
		case <-l.closed:
			conn.Close()
		}
	})

	l.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = l.server.Serve(ln)
	}()
	return l, nil
}

// Dial opens a websocket to the peer's service path.
func (t *WebSocketTransport) Dial(ctx context.Context, peer Peer, service uuid.UUID) (Conn, error) {
	url := fmt.Sprintf("ws://%s%s", peer.Address, ServicePath(service))
	conn, resp, err := t.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized) {
			return nil, permissionError(fmt.Errorf("%s: %s", url, resp.Status))
		}
		return nil, errors.WrapTransient(err, "WebSocketTransport", "Dial", fmt.Sprintf("connect %s", url))
	}
	return newWSConn(conn, peer), nil
}

// PairedPeers returns the configured peers.
func (t *WebSocketTransport) PairedPeers(context.Context) ([]Peer, error) {
	return append([]Peer(nil), t.paired...), nil
}

type wsListener struct {
	ln        net.Listener
	server    *http.Server
	accepted  chan *websocket.Conn
	closed    chan struct{}
	closeOnce sync.Once
}

func (l *wsListener) Addr() string { return l.ln.Addr().String() }

func (l *wsListener) Accept(ctx context.Context) (Conn, error) {
	select {
	case conn := <-l.accepted:
		addr := conn.RemoteAddr().String()
		return newWSConn(conn, Peer{Name: addr, Address: addr}), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closed:
		return nil, errors.WrapTransient(net.ErrClosed, "WebSocketListener", "Accept", "accept connection")
	}
}

func (l *wsListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closed)
		err = l.server.Close()
	})
	return err
}

// wsConn adapts a message-oriented websocket to a byte stream. A single reader
// goroutine owns ReadMessage, so read deadlines are enforced on the channel and
// never poison the underlying connection.
type wsConn struct {
	conn *websocket.Conn
	peer Peer

	msgs    chan []byte
	readErr error // valid once msgs is closed
	done    chan struct{}
	once    sync.Once

	pending []byte

	deadlineMu sync.Mutex
	deadline   time.Time

	writeMu sync.Mutex
}

func newWSConn(conn *websocket.Conn, peer Peer) *wsConn {
	c := &wsConn{
		conn: conn,
		peer: peer,
		msgs: make(chan []byte, 16),
		done: make(chan struct{}),
	}
	go c.readPump()
	return c
}

func (c *wsConn) readPump() {
	defer close(c.msgs)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.readErr = err
			return
		}
		select {
		case c.msgs <- data:
		case <-c.done:
			c.readErr = net.ErrClosed
			return
		}
	}
}

func (c *wsConn) Read(p []byte) (int, error) {
	if len(c.pending) > 0 {
		n := copy(p, c.pending)
		c.pending = c.pending[n:]
		return n, nil
	}

	var timeout <-chan time.Time
	c.deadlineMu.Lock()
	deadline := c.deadline
	c.deadlineMu.Unlock()
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d <= 0 {
			return 0, os.ErrDeadlineExceeded
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case data, ok := <-c.msgs:
		if !ok {
			if websocket.IsCloseError(c.readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, io.EOF
			}
			return 0, c.readErr
		}
		n := copy(p, data)
		c.pending = data[n:]
		return n, nil
	case <-timeout:
		return 0, os.ErrDeadlineExceeded
	case <-c.done:
		return 0, net.ErrClosed
	}
}

func (c *wsConn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) SetReadDeadline(t time.Time) error {
	c.deadlineMu.Lock()
	c.deadline = t
	c.deadlineMu.Unlock()
	return nil
}

func (c *wsConn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) Peer() Peer { return c.peer }
