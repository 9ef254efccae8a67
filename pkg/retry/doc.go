// Package retry runs an operation a bounded number of times with a context-aware delay
// between attempts.
//
// The link layer uses a fixed delay (Fixed), other callers may grow the delay with a
// Multiplier capped at MaxDelay:
//
//	conn, err := retry.DoWithResult(ctx, retry.Fixed(3, 2*time.Second), func(attempt int) (Conn, error) {
//	    return transport.Dial(ctx, peer)
//	})
//
// An error wrapped with NonRetryable ends the loop at once and is returned unchanged.
// Cancelling ctx interrupts the delay immediately.
package retry
