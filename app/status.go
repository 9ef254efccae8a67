package app

import (
	"fmt"

	"github.com/c360/moodlink/emotion"
	"github.com/c360/moodlink/errors"
	"github.com/c360/moodlink/link"
	"github.com/c360/moodlink/recommend"
)

// Status texts shown to the user.
const (
	StatusWaiting       = "Waiting for device connection..."
	StatusConnecting    = "Connecting to device..."
	StatusConnected     = "Connected to device"
	StatusDisconnected  = "Disconnected"
	StatusMaxRetries    = "Max retries reached. Connection failed."
	StatusNoPairedPeers = "No paired devices found! Please pair a device first."
	StatusNotSent       = "Connection not established. Data not sent."
	InsufficientData    = "Insufficient data to process emotional state."
)

// LinkStatus renders the status text for a link state change.
func LinkStatus(role link.Role, st link.State, err error, peer link.Peer, hasPeer bool) string {
	switch st.Phase {
	case link.Connecting:
		if role == link.RoleListener {
			return StatusWaiting
		}
		return StatusConnecting
	case link.Connected:
		if hasPeer {
			return "Connected to " + peer.String()
		}
		return StatusConnected
	case link.Retrying:
		if errors.Is(err, errors.ErrNoPairedPeers) {
			return StatusNoPairedPeers
		}
		return "Connection failed: " + errorText(err)
	case link.Failed:
		return StatusMaxRetries
	default:
		switch {
		case err == nil:
			return StatusDisconnected
		case errors.Is(err, errors.ErrPermissionDenied):
			return err.Error()
		default:
			return "Connection lost: " + errorText(err)
		}
	}
}

// SendErrorStatus renders the status for a failed write.
func SendErrorStatus(err error) string {
	return "Error sending data: " + errorText(err)
}

// Diagnostic renders the per-sample diagnostic text.
func Diagnostic(raw string, state emotion.State, rec recommend.Recommendation) string {
	return fmt.Sprintf("Raw Data: %s\nEmotional State: %s\nRecommendation: %s", raw, state, rec.Text)
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
