// Package retry bounds repeated archive fetch attempts. Whether a failure
// is worth another attempt is decided by the archive client's error
// classification, not by inspecting error text: the client has already
// seen the HTTP status or transport failure and tagged it.
package retry

import (
	"context"
	"time"

	"github.com/leighmcculloch/stellar-events-api/internal/archive"
)

// Operation is a single fetch attempt.
type Operation func() error

// Strategy runs an operation, possibly more than once.
type Strategy interface {
	Execute(ctx context.Context, operation Operation) error

	// Name identifies the strategy in logs.
	Name() string
}

// Config holds retry configuration.
type Config struct {
	Enabled      bool          // false runs every operation exactly once
	MaxRetries   int           // retries after the first attempt
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // ceiling for the doubling delay
}

// DefaultConfig matches the archive fetch retry policy: 500 ms base delay
// doubling up to 30 s.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		MaxRetries:   6,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
	}
}

// NewStrategy creates a retry strategy based on configuration
func NewStrategy(config Config) Strategy {
	if !config.Enabled {
		return singleAttempt{}
	}
	return &BackoffStrategy{config: config}
}

// Retryable reports whether a pipeline failure may heal on another
// attempt. Only errors the archive client classified as transient
// qualify: not-found means the ledger is simply unpublished, and fatal
// responses or decode failures will fail the same way every time.
func Retryable(err error) bool {
	return err != nil && archive.IsTransient(err)
}

// singleAttempt runs the operation exactly once.
type singleAttempt struct{}

func (singleAttempt) Execute(_ context.Context, operation Operation) error {
	return operation()
}

func (singleAttempt) Name() string {
	return "SingleAttempt"
}
