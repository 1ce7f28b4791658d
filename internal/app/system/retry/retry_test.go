package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/system/apperr"
	"go.uber.org/zap"
)

func fastPolicy(tries uint) Policy {
	return Policy{
		MaxTries:        tries,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsed:      time.Second,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), fastPolicy(3), zap.NewNop(), "flaky", func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("connection reset")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 || calls != 3 {
		t.Errorf("got v=%d calls=%d, want 42/3", v, calls)
	}
}

func TestDo_ExhaustedIsUpstreamUnavailable(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(2), zap.NewNop(), "down", func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("no reachable servers")
	})
	if !errors.Is(err, apperr.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestDo_PermanentErrorsAreNotRetried(t *testing.T) {
	for _, sentinel := range []error{apperr.ErrDenied, apperr.ErrInvalidInput} {
		calls := 0
		_, err := Do(context.Background(), fastPolicy(5), nil, "perm", func(ctx context.Context) (int, error) {
			calls++
			return 0, fmt.Errorf("wrapped: %w", sentinel)
		})
		if !errors.Is(err, sentinel) {
			t.Errorf("expected %v, got %v", sentinel, err)
		}
		if calls != 1 {
			t.Errorf("%v: expected 1 attempt, got %d", sentinel, calls)
		}
	}
}

func TestDo_ExplicitPermanentStopsRetrying(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), nil, "bad request", func(ctx context.Context) (int, error) {
		calls++
		return 0, Permanent(errors.New("400 bad request"))
	})
	if calls != 1 {
		t.Errorf("expected 1 attempt, got %d", calls)
	}
	if !errors.Is(err, apperr.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestDo_CancelledParentReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, err := Do(ctx, fastPolicy(5), nil, "cancelled", func(ctx context.Context) (int, error) {
		cancel()
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDo_AttemptTimeout(t *testing.T) {
	p := fastPolicy(2).WithAttemptTimeout(5 * time.Millisecond)
	calls := 0
	_, err := Do(context.Background(), p, nil, "slow", func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, apperr.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected each attempt to time out and retry, got %d calls", calls)
	}
}

func TestDo_ParentDeadlineWhileRetryingIsUpstreamUnavailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	calls := 0
	_, err := Do(ctx, fastPolicy(100), nil, "hung", func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, apperr.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("deadline must not leak through as a timeout: %v", err)
	}
	if calls == 0 {
		t.Error("expected at least one attempt")
	}
}

func TestPolicy_Budget(t *testing.T) {
	if got := fastPolicy(3).Budget(); got != 0 {
		t.Errorf("no attempt timeout: got %v, want 0", got)
	}

	p := Policy{MaxTries: 3, InitialInterval: 100 * time.Millisecond, MaxInterval: 2 * time.Second, AttemptTimeout: time.Second}
	// 3 attempts, then waits of up to 150ms and 225ms.
	if got, want := p.Budget(), 3*time.Second+375*time.Millisecond; got != want {
		t.Errorf("got %v, want %v", got, want)
	}

	p.MaxElapsed = time.Second
	if got, want := p.Budget(), 2*time.Second; got != want {
		t.Errorf("capped by max elapsed: got %v, want %v", got, want)
	}

	p = Policy{MaxTries: 4, InitialInterval: time.Second, MaxInterval: time.Second, AttemptTimeout: time.Second}
	if got, want := p.Budget(), 4*time.Second+3*1500*time.Millisecond; got != want {
		t.Errorf("capped interval: got %v, want %v", got, want)
	}
}

func TestDo_BudgetCoversEveryAttempt(t *testing.T) {
	p := fastPolicy(3).WithAttemptTimeout(20 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), p.Budget())
	defer cancel()
	calls := 0
	_, err := Do(ctx, p, nil, "hung", func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, apperr.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if calls < 2 {
		t.Errorf("expected a retry inside the budget, got %d attempts", calls)
	}
}
