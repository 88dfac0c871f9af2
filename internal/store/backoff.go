package store

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// Backoff describes an exponential retry schedule with jitter.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
	Jitter float64
}

// DefaultBackoff starts at one second and doubles up to two minutes,
// adding up to 50% jitter.
var DefaultBackoff = Backoff{
	Base:   1 * time.Second,
	Max:    2 * time.Minute,
	Factor: 2.0,
	Jitter: 0.5,
}

func (b Backoff) nextDelay(delay time.Duration) time.Duration {
	delay = time.Duration(float64(delay) * b.Factor)
	if delay >= b.Max {
		delay = b.Max
	}
	return delay
}

func (b Backoff) withJitter(delay time.Duration) time.Duration {
	jitter := time.Duration(rand.Float64() * float64(delay) * b.Jitter)
	delay += jitter
	if delay > b.Max {
		delay = b.Max
	}
	return delay
}

// Pinger is anything that can check it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WaitForDatabase pings p until it answers, retrying up to maxRetries times
// on the backoff schedule. It gives up early when ctx is done.
func WaitForDatabase(ctx context.Context, p Pinger, maxRetries int, b Backoff, logger *slog.Logger) error {
	delay := b.Base
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = p.Ping(ctx); err == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}

		wait := b.withJitter(delay)
		if logger != nil {
			logger.Warn("database not reachable, retrying", "attempt", attempt+1, "retry_in", wait, "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		delay = b.nextDelay(delay)
	}
	return fmt.Errorf("max retries exceeded: %w", err)
}
