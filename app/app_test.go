package app

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/moodlink/config"
	"github.com/c360/moodlink/emotion"
	"github.com/c360/moodlink/errors"
	"github.com/c360/moodlink/health"
	"github.com/c360/moodlink/link"
	"github.com/c360/moodlink/recommend"
	"github.com/c360/moodlink/sample"
	"github.com/c360/moodlink/testutil"
	"github.com/c360/moodlink/ui"
	"github.com/c360/moodlink/wire"
)

const waitTimeout = 5 * time.Second

func receiverConfig() *config.Config {
	cfg := config.Default()
	cfg.Link.ListenAddress = "127.0.0.1:0"
	cfg.Link.RetryDelay = 10 * time.Millisecond
	cfg.Link.ReadPoll = 20 * time.Millisecond
	return cfg
}

func waitFor(t *testing.T, updates <-chan ui.Update, match func(ui.Update) bool) ui.Update {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case u := <-updates:
			if match(u) {
				return u
			}
		case <-deadline:
			t.Fatal("expected update did not arrive")
			return ui.Update{}
		}
	}
}

func statusIs(text string) func(ui.Update) bool {
	return func(u ui.Update) bool { return u.Status == text }
}

func startReceiver(t *testing.T, cfg *config.Config) (*Handle, chan ui.Update) {
	t.Helper()
	updates := make(chan ui.Update, 256)
	h, err := Init(context.Background(), cfg, Deps{Sink: ui.ChanSink{C: updates}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Shutdown(time.Second) })
	return h, updates
}

// dialReceiver connects to h's listener as a sender would.
func dialReceiver(t *testing.T, h *Handle, cfg *config.Config) link.Conn {
	t.Helper()
	require.Eventually(t, func() bool { return h.Manager().ListenAddr() != "" }, waitTimeout, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	conn, err := link.NewTCPTransport("", nil).Dial(ctx, link.Peer{Address: h.Manager().ListenAddr()}, cfg.ServiceID())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestInit_RejectsInvalidConfig(t *testing.T) {
	_, err := Init(context.Background(), nil, Deps{})
	assert.True(t, errors.IsInvalid(err))

	cfg := config.Default()
	cfg.Role = "observer"
	_, err = Init(context.Background(), cfg, Deps{})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestInit_NATSConnectRetriesThenFails(t *testing.T) {
	cfg := receiverConfig()
	cfg.UI.Sink = config.SinkNATS
	cfg.NATS.URL = "nats://127.0.0.1:1"
	cfg.NATS.Timeout = 100 * time.Millisecond
	cfg.NATS.ConnectAttempts = 2

	_, err := Init(context.Background(), cfg, Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect nats")
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestReceiver_ClassifiesIncomingSamples(t *testing.T) {
	cfg := receiverConfig()
	cfg.Classifier.Mode = string(emotion.ModeInstantaneous)
	h, updates := startReceiver(t, cfg)

	waitFor(t, updates, statusIs(StatusWaiting))
	conn := dialReceiver(t, h, cfg)
	waitFor(t, updates, func(u ui.Update) bool { return strings.HasPrefix(u.Status, "Connected to ") })

	_, err := conn.Write([]byte("HR:95.0\n"))
	require.NoError(t, err)

	u := waitFor(t, updates, func(u ui.Update) bool { return u.Recommendation != "" })
	assert.Equal(t, emotion.Anxious, u.State)
	assert.Equal(t, recommend.TagCalmingMusic, u.ActionTag)
	assert.NotEmpty(t, u.ActionURL)
	assert.True(t, strings.HasPrefix(u.Diagnostic, "Raw Data: HR:95.0\nEmotional State: ANXIOUS\n"), u.Diagnostic)

	assert.True(t, h.Health().IsHealthy())
}

func TestReceiver_WindowedReportsInsufficientData(t *testing.T) {
	cfg := receiverConfig()
	h, updates := startReceiver(t, cfg)

	conn := dialReceiver(t, h, cfg)
	_, err := conn.Write([]byte("HR:70.0\nACC:0.10,0.20,9.81\n"))
	require.NoError(t, err)

	u := waitFor(t, updates, func(u ui.Update) bool { return u.Diagnostic != "" })
	assert.Equal(t, InsufficientData, u.Diagnostic)
	assert.Equal(t, emotion.Unknown, u.State)
}

func TestReceiver_WindowedClassifiesFullWindows(t *testing.T) {
	cfg := receiverConfig()
	h, updates := startReceiver(t, cfg)

	conn := dialReceiver(t, h, cfg)
	_, err := conn.Write(testutil.Frames(testutil.Wearer(cfg.Classifier.WindowSize, 95, 20)...))
	require.NoError(t, err)

	u := waitFor(t, updates, func(u ui.Update) bool { return u.Recommendation != "" })
	assert.Equal(t, emotion.Stressed, u.State)
	assert.Equal(t, recommend.TagFunnyVideo, u.ActionTag)
}

func TestReceiver_PublishesToNATS(t *testing.T) {
	cfg := receiverConfig()
	cfg.Classifier.Mode = string(emotion.ModeInstantaneous)
	client := testutil.NewMockNATSClient()

	h, err := Init(context.Background(), cfg, Deps{Sink: ui.NATSSink{Publisher: client, Subject: cfg.UI.Subject}})
	require.NoError(t, err)
	defer h.Shutdown(time.Second)

	conn := dialReceiver(t, h, cfg)
	_, err = conn.Write(testutil.Frames(sample.NewHeartRate(60)))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for _, msg := range client.GetMessages(cfg.UI.Subject) {
			if strings.Contains(string(msg), `"state":"CALM"`) {
				return true
			}
		}
		return false
	}, waitTimeout, 10*time.Millisecond)
}

func TestReceiver_MalformedFramesAreSkipped(t *testing.T) {
	cfg := receiverConfig()
	cfg.Classifier.Mode = string(emotion.ModeInstantaneous)
	h, updates := startReceiver(t, cfg)

	conn := dialReceiver(t, h, cfg)
	_, err := conn.Write([]byte("garbage\nHR:abc\nHR:60.0\n"))
	require.NoError(t, err)

	u := waitFor(t, updates, func(u ui.Update) bool { return u.Recommendation != "" })
	assert.Equal(t, emotion.Calm, u.State)
}

func TestReceiver_ReportsLostConnection(t *testing.T) {
	cfg := receiverConfig()
	h, updates := startReceiver(t, cfg)

	conn := dialReceiver(t, h, cfg)
	waitFor(t, updates, func(u ui.Update) bool { return strings.HasPrefix(u.Status, "Connected to ") })

	require.NoError(t, conn.Close())
	waitFor(t, updates, func(u ui.Update) bool { return strings.HasPrefix(u.Status, "Connection lost: ") })
	// Auto-reconnect listens again.
	waitFor(t, updates, statusIs(StatusWaiting))
}

func TestSender_WritesEncodedSamples(t *testing.T) {
	service := link.DefaultServiceUUID
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	ln, err := link.NewTCPTransport("127.0.0.1:0", nil).Listen(ctx, service)
	require.NoError(t, err)
	defer ln.Close()

	cfg := config.Default()
	cfg.Role = config.RoleSender
	cfg.Link.PeerAddress = ln.Addr()
	cfg.Link.RetryDelay = 10 * time.Millisecond

	updates := make(chan ui.Update, 256)
	h, err := Init(context.Background(), cfg, Deps{
		Sink:   ui.ChanSink{C: updates},
		Source: testutil.SliceSource{Samples: []sample.Sample{sample.NewHeartRate(88)}, Every: 10 * time.Millisecond, Repeat: true},
	})
	require.NoError(t, err)
	defer h.Shutdown(time.Second)

	conn, err := ln.Accept(ctx)
	require.NoError(t, err)
	defer conn.Close()

	dec := wire.NewDecoder()
	buf := make([]byte, 256)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitTimeout)))
	var frames []wire.Frame
	for len(frames) == 0 {
		n, err := conn.Read(buf)
		require.NoError(t, err)
		frames = dec.Feed(buf[:n])
	}
	require.NoError(t, frames[0].Err)
	assert.Equal(t, "HR:88.0", frames[0].Raw)
	assert.InDelta(t, 88.0, frames[0].Sample.BPM, 1e-9)

	waitFor(t, updates, func(u ui.Update) bool { return u.Diagnostic == "Sensor Data: "+sample.NewHeartRate(88).String() })
}

func TestSender_DropsSamplesWhileDisconnected(t *testing.T) {
	cfg := config.Default()
	cfg.Role = config.RoleSender
	cfg.Link.PeerAddress = closedAddr(t)
	cfg.Link.MaxRetries = 2
	cfg.Link.RetryDelay = 10 * time.Millisecond
	cfg.Link.DialTimeout = 200 * time.Millisecond

	updates := make(chan ui.Update, 256)
	h, err := Init(context.Background(), cfg, Deps{
		Sink:   ui.ChanSink{C: updates},
		Source: testutil.SliceSource{Samples: []sample.Sample{sample.NewHeartRate(70)}, Every: 20 * time.Millisecond, Repeat: true},
	})
	require.NoError(t, err)
	defer h.Shutdown(time.Second)

	waitFor(t, updates, statusIs(StatusMaxRetries))
	assert.Equal(t, link.Failed, h.Manager().State().Phase)
	// The source keeps running after the link has failed.
	waitFor(t, updates, statusIs(StatusNotSent))

	status := h.Health()
	assert.Equal(t, health.StatusUnhealthy, status.Status)
}

func TestHandle_ResetAfterDeniedGate(t *testing.T) {
	var allowed atomic.Bool
	gate := link.GateFunc(func(context.Context) error {
		if allowed.Load() {
			return nil
		}
		return fmt.Errorf("%w: bluetooth is off", errors.ErrPermissionDenied)
	})

	updates := make(chan ui.Update, 256)
	h, err := Init(context.Background(), receiverConfig(), Deps{Sink: ui.ChanSink{C: updates}, Gate: gate})
	require.NoError(t, err)
	defer h.Shutdown(time.Second)

	u := waitFor(t, updates, func(u ui.Update) bool { return u.Status != "" })
	assert.Contains(t, u.Status, "bluetooth is off")
	assert.Equal(t, link.Disconnected, h.Manager().State().Phase)
	assert.ErrorIs(t, h.Manager().LastError(), errors.ErrPermissionDenied)

	allowed.Store(true)
	require.NoError(t, h.Reset())
	waitFor(t, updates, statusIs(StatusWaiting))
}

func TestHandle_ShutdownIsIdempotent(t *testing.T) {
	updates := make(chan ui.Update, 256)
	h, err := Init(context.Background(), receiverConfig(), Deps{Sink: ui.ChanSink{C: updates}})
	require.NoError(t, err)

	require.NoError(t, h.Shutdown(time.Second))
	require.NoError(t, h.Shutdown(time.Second))

	assert.ErrorIs(t, h.Reset(), errors.ErrShuttingDown)
	assert.Equal(t, link.Disconnected, h.Manager().State().Phase)

	select {
	case <-h.Done():
	default:
		t.Fatal("handle context still live after shutdown")
	}
}

// closedAddr returns a loopback address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := link.NewTCPTransport("127.0.0.1:0", nil).Listen(context.Background(), link.DefaultServiceUUID)
	require.NoError(t, err)
	addr := ln.Addr()
	require.NoError(t, ln.Close())
	return addr
}
