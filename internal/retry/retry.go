package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timbale/registration-service/internal/domain"
	"github.com/timbale/registration-service/pkg/logger"

	"github.com/cenkalti/backoff/v4"
)

// Executor wraps a single outbound call with bounded retries and a fixed
// delay between attempts. A 429 result waits for the provider-supplied hint
// instead of the fixed delay. The executor holds no per-call state, so one
// instance is shared by all concurrent registration runs.
type Executor struct {
	maxAttempts int
	delay       time.Duration
	log         *logger.Logger
}

// NewExecutor creates a retry executor. maxAttempts covers the first call
// plus its retries; values below 1 are clamped to 1.
func NewExecutor(maxAttempts int, delay time.Duration, log *logger.Logger) *Executor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Executor{
		maxAttempts: maxAttempts,
		delay:       delay,
		log:         log,
	}
}

// Do executes op until it succeeds, fails permanently, or attempts run out.
// Classification by error type:
//   - *domain.BillingError: non-retryable (4xx other than 429), returned as-is
//   - *domain.RateLimitError: retried, waiting for the Retry-After hint
//   - anything else (network, 5xx): retried after the fixed delay
//
// When all attempts are exhausted the last error is wrapped in exhausted,
// which the caller picks per call type (ErrAuthFailed, ErrServiceUnavailable).
func (e *Executor) Do(ctx context.Context, operation string, op func() error, exhausted error) error {
	hint := new(time.Duration)

	bo := backoff.WithContext(&hintBackOff{
		BackOff: backoff.WithMaxRetries(backoff.NewConstantBackOff(e.delay), uint64(e.maxAttempts-1)),
		hint:    hint,
	}, ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}

		var billingErr *domain.BillingError
		if errors.As(err, &billingErr) {
			e.log.Warnw("Non-retryable provider error, stopping retries",
				"operation", operation, "status", billingErr.StatusCode, "attempt", attempt)
			return backoff.Permanent(err)
		}

		var rateErr *domain.RateLimitError
		if errors.As(err, &rateErr) {
			*hint = rateErr.RetryAfter
			e.log.Warnw("Rate limited, will retry",
				"operation", operation, "retry_after", rateErr.RetryAfter, "attempt", attempt)
			return err
		}

		*hint = 0
		e.log.Warnw("Transient error, will retry", "operation", operation, "attempt", attempt, "error", err)
		return err
	}, bo)

	if err == nil {
		return nil
	}

	// Permanent errors surface unchanged, carrying the provider's message.
	var billingErr *domain.BillingError
	if errors.As(err, &billingErr) {
		return err
	}

	e.log.Errorw("Retries exhausted", "operation", operation, "attempts", attempt, "error", err)
	return fmt.Errorf("%w: %v", exhausted, err)
}

// hintBackOff waits for the provider's Retry-After hint when one was set by
// the previous attempt, and falls back to the wrapped fixed delay otherwise.
// The hint does not change the attempt counter.
type hintBackOff struct {
	backoff.BackOff
	hint *time.Duration
}

func (b *hintBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return backoff.Stop
	}
	if h := *b.hint; h > 0 {
		*b.hint = 0
		return h
	}
	return next
}
