package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

// noWait records requested backoffs instead of sleeping.
type noWait struct {
	waits []time.Duration
}

func (n *noWait) wait(ctx context.Context, d time.Duration) error {
	n.waits = append(n.waits, d)
	return ctx.Err()
}

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("success on first attempt", func(t *testing.T) {
		calls := 0
		err := Do(ctx, Config{MaxRetries: 3}, func(context.Context) error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("succeeds after transient failures", func(t *testing.T) {
		w := &noWait{}
		calls := 0
		err := Do(ctx, Config{MaxRetries: 3, Wait: w.wait}, func(context.Context) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
		if len(w.waits) != 2 {
			t.Errorf("expected 2 waits, got %d", len(w.waits))
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		w := &noWait{}
		calls := 0
		err := Do(ctx, Config{MaxRetries: 2, Wait: w.wait}, func(context.Context) error {
			calls++
			return errTransient
		})
		if !errors.Is(err, ErrMaxRetries) {
			t.Errorf("expected ErrMaxRetries, got %v", err)
		}
		if !errors.Is(err, errTransient) {
			t.Errorf("expected cause to be preserved, got %v", err)
		}
		var re *Error
		if !errors.As(err, &re) || re.Attempts != 3 {
			t.Errorf("expected 3 attempts, got %+v", re)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("zero retries runs once", func(t *testing.T) {
		calls := 0
		err := Do(ctx, Config{}, func(context.Context) error {
			calls++
			return errTransient
		})
		if !errors.Is(err, ErrMaxRetries) || calls != 1 {
			t.Errorf("expected single attempt with ErrMaxRetries, got calls=%d err=%v", calls, err)
		}
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		calls := 0
		err := Do(ctx, Config{MaxRetries: 5, Wait: (&noWait{}).wait}, func(context.Context) error {
			calls++
			return Permanent(errTransient)
		})
		if !errors.Is(err, ErrNotRetryable) {
			t.Errorf("expected ErrNotRetryable, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("custom IsRetryable", func(t *testing.T) {
		calls := 0
		err := Do(ctx, Config{
			MaxRetries:  5,
			IsRetryable: func(error) bool { return false },
		}, func(context.Context) error {
			calls++
			return errTransient
		})
		if !errors.Is(err, ErrNotRetryable) || calls != 1 {
			t.Errorf("expected one non-retryable attempt, got calls=%d err=%v", calls, err)
		}
	})

	t.Run("canceled context before first attempt", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		calls := 0
		err := Do(cctx, Config{MaxRetries: 3}, func(context.Context) error {
			calls++
			return nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if calls != 0 {
			t.Errorf("expected no calls, got %d", calls)
		}
	})

	t.Run("canceled during backoff", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		err := Do(cctx, Config{
			MaxRetries: 3,
			Wait: func(ctx context.Context, _ time.Duration) error {
				cancel()
				return ctx.Err()
			},
		}, func(context.Context) error {
			return errTransient
		})
		if !errors.Is(err, ErrContextCanceled) {
			t.Errorf("expected ErrContextCanceled, got %v", err)
		}
	})
}

func TestBackoff(t *testing.T) {
	cfg := Config{InitialBackoff: 10 * time.Millisecond, MaxBackoff: 50 * time.Millisecond, Multiplier: 2}

	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond, 50 * time.Millisecond}
	for attempt, w := range want {
		if got := Backoff(cfg, attempt); got != w {
			t.Errorf("attempt %d: expected %v, got %v", attempt, w, got)
		}
	}

	cfg.Jitter = 0.5
	for i := 0; i < 50; i++ {
		got := Backoff(cfg, 0)
		if got < 5*time.Millisecond || got > 15*time.Millisecond {
			t.Fatalf("jittered backoff %v out of range", got)
		}
	}
}

func TestDefaultIsRetryable(t *testing.T) {
	if DefaultIsRetryable(nil) {
		t.Error("nil should not be retryable")
	}
	if !DefaultIsRetryable(errTransient) {
		t.Error("plain errors should be retryable")
	}
	if DefaultIsRetryable(Permanent(errTransient)) {
		t.Error("permanent errors should not be retryable")
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}
