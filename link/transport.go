package link

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/c360/moodlink/errors"
)

// DefaultServiceUUID identifies the sample stream service (the serial port profile UUID).
var DefaultServiceUUID = uuid.MustParse("00001101-0000-1000-8000-00805F9B34FB")

// Role selects whether a Manager accepts or initiates the connection.
type Role int

const (
	RoleListener Role = iota
	RoleConnector
)

// String returns the role name.
func (r Role) String() string {
	if r == RoleConnector {
		return "connector"
	}
	return "listener"
}

// ParseRole parses a role name. "receiver" and "sender" are accepted as aliases.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "listener", "receiver", "":
		return RoleListener, nil
	case "connector", "sender":
		return RoleConnector, nil
	default:
		return 0, errors.WrapInvalid(errors.ErrInvalidConfig, "link", "ParseRole", fmt.Sprintf("unknown role %q", s))
	}
}

// Peer is a previously paired device.
type Peer struct {
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
}

func (p Peer) String() string {
	if p.Name == "" || p.Name == p.Address {
		return p.Address
	}
	return fmt.Sprintf("%s (%s)", p.Name, p.Address)
}

// Conn is one established byte stream.
type Conn interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
	Peer() Peer
}

// Listener accepts inbound connections for one service.
type Listener interface {
	// Accept blocks until a peer connects or ctx is done.
	Accept(ctx context.Context) (Conn, error)
	Close() error
	Addr() string
}

// Transport opens connections for a Manager.
type Transport interface {
	Listen(ctx context.Context, service uuid.UUID) (Listener, error)
	Dial(ctx context.Context, peer Peer, service uuid.UUID) (Conn, error)
	// PairedPeers lists known peers in enumeration order.
	PairedPeers(ctx context.Context) ([]Peer, error)
}

// Gate is checked before any transport action. A non-nil error denies access.
type Gate interface {
	Permit(ctx context.Context) error
}

// GateFunc adapts a function to Gate.
type GateFunc func(ctx context.Context) error

// Permit calls f.
func (f GateFunc) Permit(ctx context.Context) error { return f(ctx) }

// AllowAll is a Gate that always permits.
var AllowAll Gate = GateFunc(func(context.Context) error { return nil })

// StaticGate permits when allowed is true and otherwise denies with reason.
func StaticGate(allowed bool, reason string) Gate {
	return GateFunc(func(context.Context) error {
		if allowed {
			return nil
		}
		return fmt.Errorf("%w: %s", errors.ErrPermissionDenied, reason)
	})
}

// IsTimeout reports whether err is a read deadline expiry rather than a broken link.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

// permissionError makes err match errors.ErrPermissionDenied while keeping its text.
func permissionError(err error) error {
	if stderrors.Is(err, errors.ErrPermissionDenied) {
		return err
	}
	return fmt.Errorf("%w: %v", errors.ErrPermissionDenied, err)
}

// isPermission reports whether an OS-level error means access was refused.
func isPermission(err error) bool {
	return stderrors.Is(err, os.ErrPermission) || stderrors.Is(err, errors.ErrPermissionDenied)
}
