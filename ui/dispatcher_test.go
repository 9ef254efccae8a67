package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/moodlink/emotion"
	"github.com/c360/moodlink/metric"
	"github.com/c360/moodlink/pkg/worker"
	"github.com/c360/moodlink/recommend"
	"github.com/c360/moodlink/testutil"
)

func TestRecommendationUpdate(t *testing.T) {
	u := RecommendationUpdate("Raw Data: HR:95.0", recommend.Map(emotion.Anxious))

	assert.Equal(t, emotion.Anxious, u.State)
	assert.Equal(t, recommend.TagCalmingMusic, u.ActionTag)
	assert.Contains(t, u.ActionURL, "calming+music+playlist")
	assert.False(t, u.Timestamp.IsZero())

	calm := RecommendationUpdate("", recommend.Map(emotion.Calm))
	assert.Empty(t, calm.ActionTag)
	assert.Empty(t, calm.ActionURL)
}

func TestDispatcherPreservesOrder(t *testing.T) {
	ch := make(chan Update, 100)
	d, err := NewDispatcher(ChanSink{C: ch}, 100, nil, nil)
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))

	for _, s := range []string{"Waiting for device connection...", "Connected to band", "Connection failed: reset"} {
		require.NoError(t, d.Post(StatusUpdate(s)))
	}
	require.NoError(t, d.Stop(time.Second))
	close(ch)

	var got []string
	for u := range ch {
		got = append(got, u.Status)
	}
	assert.Equal(t, []string{"Waiting for device connection...", "Connected to band", "Connection failed: reset"}, got)
	assert.True(t, d.Health().IsHealthy())
}

func TestDispatcherPostIsNonBlocking(t *testing.T) {
	release := make(chan struct{})
	sink := SinkFunc(func(context.Context, Update) error {
		<-release
		return nil
	})

	d, err := NewDispatcher(sink, 1, nil, nil)
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))

	var dropped int
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			if err := d.Post(StatusUpdate("x")); errors.Is(err, worker.ErrQueueFull) {
				dropped++
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Post blocked on a stalled sink")
	}
	close(release)
	require.NoError(t, d.Stop(time.Second))

	assert.GreaterOrEqual(t, dropped, 3)
	assert.True(t, d.Health().IsDegraded())
}

func TestDispatcherSurvivesSinkFailures(t *testing.T) {
	var mu sync.Mutex
	var delivered []string
	sink := SinkFunc(func(_ context.Context, u Update) error {
		switch u.Status {
		case "boom":
			panic("renderer crashed")
		case "fail":
			return errors.New("renderer unavailable")
		}
		mu.Lock()
		delivered = append(delivered, u.Status)
		mu.Unlock()
		return nil
	})

	registry := metric.NewMetricsRegistry()
	d, err := NewDispatcher(sink, 10, nil, registry)
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))

	for _, s := range []string{"a", "boom", "fail", "b"} {
		require.NoError(t, d.Post(StatusUpdate(s)))
	}
	require.NoError(t, d.Stop(time.Second))

	assert.Equal(t, []string{"a", "b"}, delivered)
	assert.Equal(t, int64(2), d.Stats().Failed)
}

func TestNewDispatcherRequiresSink(t *testing.T) {
	_, err := NewDispatcher(nil, 1, nil, nil)
	assert.Error(t, err)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	u := RecommendationUpdate("Raw Data: HR:88.0", recommend.Map(emotion.Stressed))
	require.NoError(t, LogSink{Logger: logger}.Deliver(context.Background(), u))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "UI update", entry["msg"])
	assert.Equal(t, "STRESSED", entry["state"])
	assert.Equal(t, recommend.TagFunnyVideo, entry["action_tag"])
}

func TestNATSSink(t *testing.T) {
	client := testutil.NewMockNATSClient()
	sink := NATSSink{Publisher: client, Subject: "moodlink.ui"}

	u := RecommendationUpdate("diag", recommend.Map(emotion.Calm))
	require.NoError(t, sink.Deliver(context.Background(), u))

	msgs := client.GetMessages("moodlink.ui")
	require.Len(t, msgs, 1)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msgs[0], &decoded))
	assert.Equal(t, "CALM", decoded["state"])
	assert.Equal(t, "diag", decoded["diagnostic"])
	assert.NotContains(t, decoded, "action_tag")

	client.FailPublish(errors.New("no responders"))
	assert.Error(t, sink.Deliver(context.Background(), u))
	assert.Equal(t, 1, client.GetMessageCount("moodlink.ui"))
}

func TestDispatcher_PublishesThroughNATSSink(t *testing.T) {
	client := testutil.NewMockNATSClient()
	d, err := NewDispatcher(NATSSink{Publisher: client, Subject: "moodlink.ui"}, 8, nil, nil)
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop(time.Second)

	require.NoError(t, d.Post(StatusUpdate("one")))
	require.NoError(t, d.Post(StatusUpdate("two")))

	msgs := testutil.WaitForMessageCount(t, client, "moodlink.ui", 2, 2*time.Second)
	var first, second Update
	require.NoError(t, json.Unmarshal(msgs[0], &first))
	require.NoError(t, json.Unmarshal(msgs[1], &second))
	assert.Equal(t, "one", first.Status)
	assert.Equal(t, "two", second.Status)
}

func TestMultiSink(t *testing.T) {
	a := make(chan Update, 1)
	b := make(chan Update, 1)
	sink := MultiSink{ChanSink{C: a}, ChanSink{C: b}}

	require.NoError(t, sink.Deliver(context.Background(), StatusUpdate("hi")))
	assert.Equal(t, "hi", (<-a).Status)
	assert.Equal(t, "hi", (<-b).Status)
}
