// Package errors provides the error taxonomy shared by moodlink components.
//
// # Classification
//
// Every error belongs to one of three classes:
//
//   - Transient: the link dropped or an I/O call failed; establishing again may succeed.
//   - Invalid: the input was wrong (a malformed frame, a bad configuration value).
//   - Fatal: the operation cannot succeed without outside action, such as a denied
//     permission gate or a link that exhausted its retries.
//
// # Wrapping
//
// Wrapping follows one format so log lines are uniform:
//
//	"component.method: action failed: %w"
//
// Use WrapTransient, WrapInvalid or WrapFatal to attach a class, or Wrap to add
// context only:
//
//	if err := conn.Write(frame); err != nil {
//	    return errors.WrapTransient(errors.ErrIOFailure, "Manager", "Write", "socket write")
//	}
//
// # Sentinels
//
// Link errors: ErrNotConnected, ErrIOFailure, ErrPermissionDenied, ErrNoPairedPeers,
// ErrMaxRetriesExceeded, ErrLinkFailed. Decode errors: ErrMalformed. Lifecycle:
// ErrAlreadyStarted, ErrShuttingDown. Configuration: ErrInvalidConfig.
//
// All sentinels work with errors.Is through any number of wrapping layers.
package errors
