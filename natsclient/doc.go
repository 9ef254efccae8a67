// Package natsclient manages the NATS connection used to publish UI updates.
//
// The Client wraps a nats.Conn with a connection status, a small circuit
// breaker that stops hammering an unreachable server, and a bounded drain on
// Close. Only core NATS publish/subscribe is used.
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithName("moodlink"),
//	    natsclient.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(context.Background())
//
//	err = client.Publish(ctx, "moodlink.ui", payload)
//
// After CircuitThreshold consecutive connect failures the client reports
// StatusCircuitOpen and Connect returns ErrCircuitOpen until the backoff
// elapses. The backoff doubles on each opening up to the configured maximum.
//
// NewTestClient starts a throwaway NATS server in a container for tests.
package natsclient
