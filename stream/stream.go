package stream

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/moodlink/errors"
	"github.com/c360/moodlink/link"
	"github.com/c360/moodlink/metric"
	"github.com/c360/moodlink/sample"
	"github.com/c360/moodlink/wire"
)

const (
	// ReadBufferSize is the number of bytes requested per read call.
	ReadBufferSize = 1024

	// DefaultPollInterval bounds how long a read blocks before cancellation is checked.
	DefaultPollInterval = 500 * time.Millisecond
)

// Reader is the part of link.Manager a Stream consumes.
type Reader interface {
	ReadTimeout(p []byte, timeout time.Duration) (int, error)
}

// Handler receives stream events. Callbacks run on the Run goroutine.
type Handler struct {
	// OnSample receives each decoded sample with its frame text.
	OnSample func(s sample.Sample, raw string)
	// OnDrop receives the raw text of a malformed frame and its decode error.
	OnDrop func(raw string, err error)
}

// Config tunes a Stream.
type Config struct {
	PollInterval time.Duration
	// DropLogEvery limits dropped-frame debug logs to one per interval.
	DropLogEvery time.Duration
}

// Stream reads samples from a link.
type Stream struct {
	reader  Reader
	handler Handler
	poll    time.Duration
	logger  *slog.Logger
	metrics *metric.Metrics
	dropLog *rate.Limiter
}

// New creates a Stream over reader.
func New(reader Reader, handler Handler, cfg Config, logger *slog.Logger, metrics *metric.Metrics) *Stream {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.DropLogEvery <= 0 {
		cfg.DropLogEvery = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		reader:  reader,
		handler: handler,
		poll:    cfg.PollInterval,
		logger:  logger.With("component", "stream"),
		metrics: metrics,
		dropLog: rate.NewLimiter(rate.Every(cfg.DropLogEvery), 1),
	}
}

// Run reads until ctx is cancelled or the link is no longer connected. Both are
// normal terminations and return nil. Each call starts with an empty decoder, so
// a partial frame from an earlier connection never leaks into this one.
func (s *Stream) Run(ctx context.Context) error {
	dec := wire.NewDecoder()
	buf := make([]byte, ReadBufferSize)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := s.reader.ReadTimeout(buf, s.poll)
		if n > 0 {
			s.dispatch(dec.Feed(buf[:n]))
		}

		switch {
		case err == nil:
		case link.IsTimeout(err):
		case errors.Is(err, errors.ErrNotConnected), errors.Is(err, errors.ErrIOFailure):
			s.logger.Debug("Stream ended with link", "error", err, "pending_bytes", dec.Pending())
			return nil
		default:
			return errors.Wrap(err, "Stream", "Run", "read link")
		}
	}
}

func (s *Stream) dispatch(frames []wire.Frame) {
	for _, f := range frames {
		if f.Err != nil {
			s.metrics.RecordDrop()
			if s.dropLog.Allow() {
				s.logger.Debug("Dropped malformed frame", "frame", f.Raw, "error", f.Err)
			}
			if s.handler.OnDrop != nil {
				s.handler.OnDrop(f.Raw, f.Err)
			}
			continue
		}

		s.metrics.RecordSample(f.Sample.Kind.String())
		if s.handler.OnSample != nil {
			s.handler.OnSample(f.Sample, f.Raw)
		}
	}
}
