package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// BackoffStrategy retries transient archive failures with a doubling
// delay, capped at the configured maximum.
type BackoffStrategy struct {
	config Config
}

// Execute runs the operation until it succeeds, fails with a
// non-retryable error, exhausts the retry budget, or the context ends.
func (s *BackoffStrategy) Execute(ctx context.Context, operation Operation) error {
	for attempt := 0; ; attempt++ {
		err := operation()
		if err == nil {
			if attempt > 0 {
				slog.Info("archive fetch recovered",
					"attempts", attempt+1,
				)
			}
			return nil
		}

		if !Retryable(err) {
			return err
		}
		if attempt >= s.config.MaxRetries {
			return fmt.Errorf("giving up after %d attempts: %w", attempt+1, err)
		}

		wait := s.delay(attempt)
		slog.Warn("archive fetch failed, backing off",
			"attempt", attempt+1,
			"retries_left", s.config.MaxRetries-attempt,
			"wait", wait,
			"error", err,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry interrupted: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// delay doubles the initial delay per completed attempt, capped at the
// configured maximum.
func (s *BackoffStrategy) delay(attempt int) time.Duration {
	wait := s.config.InitialDelay
	for i := 0; i < attempt; i++ {
		wait *= 2
		if wait >= s.config.MaxDelay {
			return s.config.MaxDelay
		}
	}
	return wait
}

// Name returns the strategy name
func (s *BackoffStrategy) Name() string {
	return "Backoff"
}
