package ui

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/c360/moodlink/errors"
)

// LogSink writes each update as a structured log line.
type LogSink struct {
	Logger *slog.Logger
}

// Deliver logs u at info level.
func (s LogSink) Deliver(ctx context.Context, u Update) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{"state", u.State.String()}
	if u.Status != "" {
		attrs = append(attrs, "status", u.Status)
	}
	if u.Recommendation != "" {
		attrs = append(attrs, "recommendation", u.Recommendation)
	}
	if u.ActionTag != "" {
		attrs = append(attrs, "action_tag", u.ActionTag, "action_url", u.ActionURL)
	}
	if u.Diagnostic != "" {
		attrs = append(attrs, "diagnostic", u.Diagnostic)
	}
	logger.InfoContext(ctx, "UI update", attrs...)
	return nil
}

// Publisher is the part of natsclient.Client used by NATSSink.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// NATSSink publishes each update as JSON on Subject.
type NATSSink struct {
	Publisher Publisher
	Subject   string
}

// Deliver encodes and publishes u.
func (s NATSSink) Deliver(ctx context.Context, u Update) error {
	data, err := json.Marshal(u)
	if err != nil {
		return errors.WrapInvalid(err, "NATSSink", "Deliver", "encode update")
	}
	if err := s.Publisher.Publish(ctx, s.Subject, data); err != nil {
		return errors.WrapTransient(err, "NATSSink", "Deliver", "publish update")
	}
	return nil
}

// ChanSink forwards updates to C. Delivery blocks until C accepts the update or
// ctx is done.
type ChanSink struct {
	C chan<- Update
}

// Deliver sends u on C.
func (s ChanSink) Deliver(ctx context.Context, u Update) error {
	select {
	case s.C <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MultiSink delivers to every sink and returns the first error.
type MultiSink []Sink

// Deliver calls each sink in order.
func (m MultiSink) Deliver(ctx context.Context, u Update) error {
	var first error
	for _, s := range m {
		if err := s.Deliver(ctx, u); err != nil && first == nil {
			first = err
		}
	}
	return first
}
