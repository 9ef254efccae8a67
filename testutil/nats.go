package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// MockNATSClient is an in-memory stand-in for natsclient.Client's Publish and
// Subscribe. Safe for concurrent use.
type MockNATSClient struct {
	mu            sync.RWMutex
	messages      map[string][][]byte
	subscriptions map[string][]func(context.Context, []byte)
	publishErr    error
	closed        bool
}

// NewMockNATSClient creates a new mock NATS client.
func NewMockNATSClient() *MockNATSClient {
	return &MockNATSClient{
		messages:      make(map[string][][]byte),
		subscriptions: make(map[string][]func(context.Context, []byte)),
	}
}

// Publish records data on subject and calls subscribers synchronously.
func (c *MockNATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("client is closed")
	}
	if c.publishErr != nil {
		err := c.publishErr
		c.mu.Unlock()
		return err
	}

	c.messages[subject] = append(c.messages[subject], data)
	handlers := append(([]func(context.Context, []byte))(nil), c.subscriptions[subject]...)
	c.mu.Unlock()

	// Handlers run outside the lock so they may publish.
	for _, handler := range handlers {
		handler(ctx, data)
	}
	return nil
}

// Subscribe registers handler for subject.
func (c *MockNATSClient) Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("client is closed")
	}
	c.subscriptions[subject] = append(c.subscriptions[subject], handler)
	return nil
}

// FailPublish makes every later Publish return err. A nil err restores success.
func (c *MockNATSClient) FailPublish(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishErr = err
}

// GetMessages returns a copy of the messages published on subject.
func (c *MockNATSClient) GetMessages(subject string) [][]byte {
	c.mu.RLock()
	defer c.mu.RUnlock()

	msgs := c.messages[subject]
	if msgs == nil {
		return nil
	}
	result := make([][]byte, len(msgs))
	copy(result, msgs)
	return result
}

// GetMessageCount returns the number of messages on a subject.
func (c *MockNATSClient) GetMessageCount(subject string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages[subject])
}

// Close closes the mock client.
func (c *MockNATSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// WaitForMessageCount waits until subject holds at least count messages and
// returns them.
func WaitForMessageCount(t *testing.T, client *MockNATSClient, subject string, count int, timeout time.Duration) [][]byte {
	t.Helper()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if msgs := client.GetMessages(subject); len(msgs) >= count {
			return msgs
		}
		select {
		case <-deadline.C:
			t.Fatalf("timeout waiting for %d messages on subject %s (got %d)",
				count, subject, client.GetMessageCount(subject))
			return nil
		case <-ticker.C:
		}
	}
}
