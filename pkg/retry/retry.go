package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var (
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NonRetryableError wraps errors that should not be retried
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps an error to indicate it should not be retried
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable checks if an error is marked as non-retryable
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre)
}

// Config provides retry configuration
type Config struct {
	MaxAttempts int           // Total attempts including the first (<= 0 means one attempt)
	Delay       time.Duration // Delay before the second attempt
	MaxDelay    time.Duration // Upper bound for a growing delay (0 = no bound)
	Multiplier  float64       // Delay growth per attempt (0 or 1 = fixed delay)
	AddJitter   bool          // Add up to 25% randomness to each delay
}

// Fixed returns a config with a constant delay between attempts.
func Fixed(attempts int, delay time.Duration) Config {
	return Config{
		MaxAttempts: attempts,
		Delay:       delay,
		Multiplier:  1,
	}
}

// Backoff returns a config with an exponentially growing, jittered delay.
func Backoff(attempts int, initial, maxDelay time.Duration) Config {
	return Config{
		MaxAttempts: attempts,
		Delay:       initial,
		MaxDelay:    maxDelay,
		Multiplier:  2,
		AddJitter:   true,
	}
}

func (c Config) validate() error {
	if c.Delay < 0 {
		return errors.New("retry: Delay cannot be negative")
	}
	if c.MaxDelay < 0 {
		return errors.New("retry: MaxDelay cannot be negative")
	}
	if c.Multiplier < 0 {
		return errors.New("retry: Multiplier cannot be negative")
	}
	return nil
}

// Do calls fn until it succeeds, returns a NonRetryable error, ctx is cancelled,
// or MaxAttempts is reached. fn receives the 1-based attempt number.
func Do(ctx context.Context, cfg Config, fn func(attempt int) error) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 1
	}
	// Prevent overflow with extremely large multipliers
	if cfg.Multiplier > 1000 {
		cfg.Multiplier = 1000
	}

	var lastErr error
	delay := cfg.Delay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled before attempt %d: %w", attempt, ctx.Err())
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsNonRetryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		if err := sleep(ctx, jittered(delay, cfg.AddJitter)); err != nil {
			return fmt.Errorf("retry cancelled during delay before attempt %d: %w", attempt+1, err)
		}

		next := float64(delay) * cfg.Multiplier
		if cfg.MaxDelay > 0 && next > float64(cfg.MaxDelay) {
			delay = cfg.MaxDelay
		} else if next < float64(time.Duration(1<<63-1)) {
			delay = time.Duration(next)
		}
	}

	return fmt.Errorf("retry failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// DoWithResult executes fn with retry and returns both result and error
func DoWithResult[T any](ctx context.Context, cfg Config, fn func(attempt int) (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func(attempt int) error {
		var innerErr error
		result, innerErr = fn(attempt)
		return innerErr
	})
	return result, err
}

func jittered(d time.Duration, enabled bool) time.Duration {
	if !enabled || d < 4 {
		return d
	}
	randMu.Lock()
	jitter := time.Duration(randSource.Int63n(int64(d / 4)))
	randMu.Unlock()
	return d + jitter
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
