// Package retry is the single bounded-retry wrapper for store and generator
// calls. Every attempt runs under its own timeout; exhausting the policy
// yields apperr.ErrUpstreamUnavailable.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dalemusser/safetyhub/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Policy bounds a retried operation.
type Policy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
	// AttemptTimeout bounds each attempt; zero means the caller's deadline only.
	AttemptTimeout time.Duration
}

// DefaultPolicy is used for store reads.
func DefaultPolicy() Policy {
	return Policy{
		MaxTries:        3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxElapsed:      30 * time.Second,
	}
}

// WithAttemptTimeout returns a copy of p with AttemptTimeout set.
func (p Policy) WithAttemptTimeout(d time.Duration) Policy {
	p.AttemptTimeout = d
	return p
}

func (p Policy) intervals() (initial, ceiling time.Duration) {
	initial, ceiling = backoff.DefaultInitialInterval, backoff.DefaultMaxInterval
	if p.InitialInterval > 0 {
		initial = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		ceiling = p.MaxInterval
	}
	return initial, ceiling
}

// Budget is the longest Do can run under p: every attempt at its timeout
// plus the widest randomized wait between attempts. A caller deadline
// shorter than this starves the later attempts. Zero when AttemptTimeout is
// unset.
func (p Policy) Budget() time.Duration {
	if p.AttemptTimeout <= 0 {
		return 0
	}
	tries := p.MaxTries
	if tries == 0 {
		tries = 1
	}
	initial, ceiling := p.intervals()
	total := time.Duration(tries) * p.AttemptTimeout
	next := float64(initial)
	for i := uint(1); i < tries; i++ {
		wait := math.Min(next, float64(ceiling))
		total += time.Duration(wait * (1 + backoff.DefaultRandomizationFactor))
		next *= backoff.DefaultMultiplier
	}
	if p.MaxElapsed > 0 && total > p.MaxElapsed+p.AttemptTimeout {
		total = p.MaxElapsed + p.AttemptTimeout
	}
	return total
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// isPermanent reports errors that will not change on retry.
func isPermanent(err error) bool {
	return errors.Is(err, apperr.ErrDenied) ||
		errors.Is(err, apperr.ErrInvalidInput) ||
		errors.Is(err, mongo.ErrNoDocuments) ||
		mongo.IsDuplicateKeyError(err)
}

// Do runs fn under p. op names the operation in logs and errors.
//
// A cancelled parent context returns the context's error unchanged. A
// parent deadline that expires after at least one attempt counts as an
// exhausted policy. Errors
// classified as permanent return as-is after one attempt. Anything else
// that survives every attempt is wrapped in apperr.ErrUpstreamUnavailable.
func Do[T any](ctx context.Context, p Policy, log *zap.Logger, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval, b.MaxInterval = p.intervals()
	tries := p.MaxTries
	if tries == 0 {
		tries = 1
	}

	attempt := 0
	operation := func() (T, error) {
		attempt++
		actx, cancel := ctx, context.CancelFunc(func() {})
		if p.AttemptTimeout > 0 {
			actx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
		}
		defer cancel()

		v, err := fn(actx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || isPermanent(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(func(err error, next time.Duration) {
			if log != nil {
				log.Warn("retrying operation",
					zap.String("operation", op),
					zap.Int("attempt", attempt),
					zap.Duration("next", next),
					zap.Error(err))
			}
		}),
	}
	if p.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(p.MaxElapsed))
	}

	v, err := backoff.Retry(ctx, operation, opts...)
	if err == nil {
		return v, nil
	}

	var zero T
	if ctxErr := ctx.Err(); ctxErr != nil {
		if attempt == 0 || !errors.Is(ctxErr, context.DeadlineExceeded) {
			return zero, ctxErr
		}
		if log != nil {
			log.Error("operation ran out of time while retrying",
				zap.String("operation", op),
				zap.Int("attempts", attempt),
				zap.Error(err))
		}
		return zero, fmt.Errorf("%w: %s: %v", apperr.ErrUpstreamUnavailable, op, ctxErr)
	}
	if isPermanent(err) || errors.Is(err, apperr.ErrUpstreamUnavailable) {
		return zero, err
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	if log != nil {
		log.Error("operation failed after retries",
			zap.String("operation", op),
			zap.Int("attempts", attempt),
			zap.Error(err))
	}
	return zero, fmt.Errorf("%w: %s: %v", apperr.ErrUpstreamUnavailable, op, err)
}
