package link

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/c360/moodlink/errors"
)

const (
	servicePreamble  = "SVC:"
	acceptPoll       = 250 * time.Millisecond
	handshakeTimeout = 5 * time.Second
)

// TCPTransport carries the link over TCP. The connector announces the service UUID
// in a one-line preamble which the listener verifies before handing the connection
// to the Manager.
type TCPTransport struct {
	listenAddress string
	paired        []Peer
}

// NewTCPTransport creates a transport listening on listenAddress with the given
// paired peers, in enumeration order.
func NewTCPTransport(listenAddress string, paired []Peer) *TCPTransport {
	return &TCPTransport{
		listenAddress: listenAddress,
		paired:        append([]Peer(nil), paired...),
	}
}

// Listen binds the listen address.
func (t *TCPTransport) Listen(ctx context.Context, service uuid.UUID) (Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", t.listenAddress)
	if err != nil {
		if isPermission(err) {
			return nil, permissionError(err)
		}
		return nil, errors.WrapTransient(err, "TCPTransport", "Listen", fmt.Sprintf("bind %s", t.listenAddress))
	}
	return &tcpListener{ln: ln.(*net.TCPListener), service: service}, nil
}

// Dial connects to peer and sends the service preamble.
func (t *TCPTransport) Dial(ctx context.Context, peer Peer, service uuid.UUID) (Conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", peer.Address)
	if err != nil {
		if isPermission(err) {
			return nil, permissionError(err)
		}
		return nil, errors.WrapTransient(err, "TCPTransport", "Dial", fmt.Sprintf("connect %s", peer.Address))
	}

	_ = c.SetWriteDeadline(time.Now().Add(handshakeTimeout))
	if _, err := fmt.Fprintf(c, "%s%s\n", servicePreamble, service); err != nil {
		c.Close()
		return nil, errors.WrapTransient(err, "TCPTransport", "Dial", "send service preamble")
	}
	_ = c.SetWriteDeadline(time.Time{})

	return &tcpConn{Conn: c, r: bufio.NewReader(c), peer: peer}, nil
}

// PairedPeers returns the configured peers.
func (t *TCPTransport) PairedPeers(context.Context) ([]Peer, error) {
	return append([]Peer(nil), t.paired...), nil
}

type tcpListener struct {
	ln      *net.TCPListener
	service uuid.UUID
}

func (l *tcpListener) Addr() string { return l.ln.Addr().String() }

func (l *tcpListener) Close() error { return l.ln.Close() }

// Accept polls with a short deadline so ctx cancellation is observed promptly.
// Peers that announce a different service are closed and skipped.
func (l *tcpListener) Accept(ctx context.Context) (Conn, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		_ = l.ln.SetDeadline(time.Now().Add(acceptPoll))
		c, err := l.ln.Accept()
		if err != nil {
			if IsTimeout(err) {
				continue
			}
			return nil, errors.WrapTransient(err, "TCPListener", "Accept", "accept connection")
		}

		conn, err := l.handshake(c)
		if err != nil {
			c.Close()
			continue
		}
		return conn, nil
	}
}

func (l *tcpListener) handshake(c net.Conn) (Conn, error) {
	_ = c.SetReadDeadline(time.Now().Add(handshakeTimeout))
	r := bufio.NewReader(c)
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	_ = c.SetReadDeadline(time.Time{})

	announced, ok := strings.CutPrefix(strings.TrimSpace(line), servicePreamble)
	if !ok {
		return nil, errors.ErrServiceMismatch
	}
	id, err := uuid.Parse(announced)
	if err != nil || id != l.service {
		return nil, errors.ErrServiceMismatch
	}

	addr := c.RemoteAddr().String()
	return &tcpConn{Conn: c, r: r, peer: Peer{Name: addr, Address: addr}}, nil
}

// tcpConn reads through the reader that consumed the preamble so no bytes are lost.
type tcpConn struct {
	net.Conn
	r    *bufio.Reader
	peer Peer
}

func (c *tcpConn) Read(p []byte) (int, error) { return c.r.Read(p) }

func (c *tcpConn) Peer() Peer { return c.peer }
