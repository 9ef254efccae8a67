// Package link owns the point-to-point connection between the wristband and the
// receiving device.
//
// A Manager runs one of two roles. A listener opens a server socket identified by a
// service UUID and accepts one peer; a connector dials a peer, picking the first
// paired device when no address is configured. Establishment is retried a bounded
// number of times with a fixed delay:
//
//	Disconnected -> Connecting -> Connected
//	                Connecting -> Retrying(n) -> Connecting   (n < MaxRetries)
//	                              Retrying(n) -> Failed       (n == MaxRetries)
//
// Failed is terminal until Reset. A closed permission Gate stops Start before any
// transport call and is never retried. Read and Write fail with ErrNotConnected
// outside Connected; an I/O error on an established connection returns the manager
// to Disconnected and, with AutoReconnect, starts a fresh establishment cycle.
//
// Transports are pluggable. TCPTransport and WebSocketTransport are provided.
package link
