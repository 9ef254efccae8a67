package ui

import (
	"context"
	"time"

	"github.com/c360/moodlink/emotion"
	"github.com/c360/moodlink/recommend"
)

// Update is one message for the presentation layer. Empty fields mean "unchanged".
type Update struct {
	Status         string        `json:"status,omitempty"`
	Diagnostic     string        `json:"diagnostic,omitempty"`
	State          emotion.State `json:"state"`
	Recommendation string        `json:"recommendation,omitempty"`
	// ActionTag is advisory; opening ActionURL is up to the presentation layer.
	ActionTag string    `json:"action_tag,omitempty"`
	ActionURL string    `json:"action_url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusUpdate creates an update carrying only status text.
func StatusUpdate(status string) Update {
	return Update{Status: status, Timestamp: time.Now()}
}

// RecommendationUpdate creates an update for a classified state.
func RecommendationUpdate(diagnostic string, rec recommend.Recommendation) Update {
	u := Update{
		Diagnostic:     diagnostic,
		State:          rec.State,
		Recommendation: rec.Text,
		Timestamp:      time.Now(),
	}
	if rec.Action != nil {
		u.ActionTag = rec.Action.Tag
		u.ActionURL = rec.Action.URL
	}
	return u
}

// Sink receives updates on the dispatcher goroutine.
type Sink interface {
	Deliver(ctx context.Context, u Update) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, u Update) error

// Deliver calls f.
func (f SinkFunc) Deliver(ctx context.Context, u Update) error { return f(ctx, u) }
