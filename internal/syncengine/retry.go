package syncengine

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	icebergerrors "github.com/gear6io/syncbridge/pkg/errors"
)

var ErrRetryExhausted = icebergerrors.MustNewCode("syncengine.retry_exhausted")

// RetryConfig controls exponential backoff around one retryable operation.
type RetryConfig struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig matches the coordinator's default: a handful of quick
// attempts, capped backoff, suited to transient source/target connection
// blips rather than sustained outages.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		BaseDelay:     1 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}
}

// RetryableOperation is one attempt of a retried operation.
type RetryableOperation func(ctx context.Context) error

// RetryWithBackoff runs operation up to config.MaxAttempts times,
// cancellation-aware at every wait point, logging each retry via logger.
func RetryWithBackoff(ctx context.Context, config RetryConfig, logger zerolog.Logger, operation RetryableOperation) error {
	var lastErr error
	delay := config.BaseDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info().Int("attempt", attempt).Msg("operation succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if !icebergerrors.IsRetryable(err) {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("operation failed with a non-retryable error, giving up")
			return err
		}

		if attempt == config.MaxAttempts {
			break
		}

		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", config.MaxAttempts).
			Dur("delay", delay).
			Msg("operation failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * config.BackoffFactor)
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	return icebergerrors.New(ErrRetryExhausted, "operation failed after retry attempts", lastErr).
		AddContext("max_attempts", strconv.Itoa(config.MaxAttempts))
}
