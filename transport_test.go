package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbaliyan/dispatch/retry"
	"golang.org/x/time/rate"
)

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello", "Message: hello"},
		{"%user_email%", "Message: %user_email%"},
		{" padded ", "Message:  padded "},
		{"", "Message: "},
	}
	for _, tt := range tests {
		if got := FormatMessage(tt.in); got != tt.want {
			t.Errorf("FormatMessage(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestAlwaysDeliver(t *testing.T) {
	if !AlwaysDeliver.AttemptDelivery(context.Background(), "a@b.c", "Message: x") {
		t.Error("expected AlwaysDeliver to report success")
	}
}

// noSleep skips real backoff waits in tests.
func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func TestSenderTransport(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		var got string
		s := SenderFunc(func(_ context.Context, email, message string) error {
			got = email + "|" + message
			return nil
		})
		tr := SenderTransport(s, retry.Config{}, discardLogger)
		if !tr.AttemptDelivery(ctx, "a@b.c", "Message: hi") {
			t.Fatal("expected delivery")
		}
		if got != "a@b.c|Message: hi" {
			t.Errorf("unexpected send arguments %q", got)
		}
	})

	t.Run("retries transient failures", func(t *testing.T) {
		var calls atomic.Int32
		s := SenderFunc(func(context.Context, string, string) error {
			if calls.Add(1) < 3 {
				return ErrDeliveryFailed
			}
			return nil
		})
		tr := SenderTransport(s, retry.Config{MaxRetries: 3, Wait: noSleep}, discardLogger)
		if !tr.AttemptDelivery(ctx, "a@b.c", "m") {
			t.Fatal("expected delivery after retries")
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 calls, got %d", calls.Load())
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls atomic.Int32
		s := SenderFunc(func(context.Context, string, string) error {
			calls.Add(1)
			return ErrDeliveryFailed
		})
		tr := SenderTransport(s, retry.Config{MaxRetries: 2, Wait: noSleep}, nil)
		if tr.AttemptDelivery(ctx, "a@b.c", "m") {
			t.Fatal("expected failed delivery")
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 calls, got %d", calls.Load())
		}
	})

	t.Run("permanent failure is not retried", func(t *testing.T) {
		var calls atomic.Int32
		s := SenderFunc(func(context.Context, string, string) error {
			calls.Add(1)
			return retry.Permanent(errors.New("mailbox does not exist"))
		})
		tr := SenderTransport(s, retry.Config{MaxRetries: 5, Wait: noSleep}, discardLogger)
		if tr.AttemptDelivery(ctx, "a@b.c", "m") {
			t.Fatal("expected failed delivery")
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 call, got %d", calls.Load())
		}
	})
}

func TestSenderTransportInDispatch(t *testing.T) {
	ctx := context.Background()
	s := SenderFunc(func(_ context.Context, email, _ string) error {
		if email == "someone2@domain2.pl" {
			return ErrDeliveryFailed
		}
		return nil
	})
	d := setupTestDispatcher(t, WithTransport(SenderTransport(s, retry.Config{MaxRetries: 1, Wait: noSleep}, discardLogger)))

	outcome := d.Dispatch(ctx, []int{1, 2, 3}, "hi")
	if got := outcome.FailedIDs(); len(got) != 1 || got[0] != 2 {
		t.Errorf("expected failed [2], got %v", got)
	}
}

func TestRateLimitedSender(t *testing.T) {
	ctx := context.Background()

	t.Run("passes through when tokens are available", func(t *testing.T) {
		var calls int
		s := RateLimitedSender(SenderFunc(func(context.Context, string, string) error {
			calls++
			return nil
		}), rate.NewLimiter(rate.Inf, 1))

		for i := 0; i < 5; i++ {
			if err := s.Send(ctx, "a@b.c", "m"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if calls != 5 {
			t.Errorf("expected 5 calls, got %d", calls)
		}
	})

	t.Run("canceled context fails without sending", func(t *testing.T) {
		var calls int
		s := RateLimitedSender(SenderFunc(func(context.Context, string, string) error {
			calls++
			return nil
		}), rate.NewLimiter(rate.Every(time.Hour), 1))

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := s.Send(cctx, "a@b.c", "m")
		if !errors.Is(err, ErrDeliveryFailed) {
			t.Errorf("expected ErrDeliveryFailed, got %v", err)
		}
		if calls != 0 {
			t.Errorf("expected no sends, got %d", calls)
		}
	})
}
