package retry

import (
	"context"
	"fmt"
	"time"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	MaxTotalTimeout time.Duration
}

// DefaultConfig returns the configuration used for startup connectivity checks
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     10,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		BackoffFactor:   2.0,
		MaxTotalTimeout: 60 * time.Second,
	}
}

// Options customise a single retry loop
type Options struct {
	// Name prefixes returned errors, e.g. "PostgreSQL"
	Name string
	// Retryable decides whether an error is worth another attempt; nil retries everything
	Retryable func(err error) bool
	// OnRetry is called before sleeping between attempts
	OnRetry func(attempt int, err error, nextDelay time.Duration)
}

// Do executes fn with exponential backoff, retrying every error
func Do(ctx context.Context, cfg Config, fn func() error) error {
	return Run(ctx, cfg, Options{}, fn)
}

// DoWithLog executes fn with retry and reports each failed attempt to logFn
func DoWithLog(ctx context.Context, cfg Config, serviceName string, fn func() error, logFn func(attempt int, err error, nextDelay time.Duration)) error {
	return Run(ctx, cfg, Options{Name: serviceName, OnRetry: logFn}, fn)
}

// Run executes fn with exponential backoff. Errors rejected by opts.Retryable
// are returned immediately without further attempts.
func Run(ctx context.Context, cfg Config, opts Options, fn func() error) error {
	if cfg.MaxTotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxTotalTimeout)
		defer cancel()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return opts.wrap(abortErr(attempt-1, err, lastErr))
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if opts.Retryable != nil && !opts.Retryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			return opts.wrap(fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr))
		}

		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return opts.wrap(abortErr(attempt, ctx.Err(), lastErr))
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return opts.wrap(fmt.Errorf("max retry attempts exceeded: %w", lastErr))
}

func abortErr(attempts int, ctxErr, lastErr error) error {
	if lastErr != nil {
		return fmt.Errorf("retry aborted after %d attempts: %w (last error: %v)", attempts, ctxErr, lastErr)
	}
	return fmt.Errorf("retry aborted: %w", ctxErr)
}

func (o Options) wrap(err error) error {
	if o.Name == "" {
		return err
	}
	return fmt.Errorf("%s: %w", o.Name, err)
}
