package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rbaliyan/dispatch/retry"
	"golang.org/x/time/rate"
)

// MessagePrefix is prepended verbatim to every outbound message body.
const MessagePrefix = "Message: "

// FormatMessage returns the outbound text for a message body.
func FormatMessage(message string) string {
	return MessagePrefix + message
}

// Transport attempts delivery of a formatted message to one address.
// It reports success as a boolean; failures are not errors of the dispatch.
// Implementations used with WithMaxConcurrentDeliveries must be safe for concurrent use.
type Transport interface {
	AttemptDelivery(ctx context.Context, email, message string) bool
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, email, message string) bool

// AttemptDelivery calls f.
func (f TransportFunc) AttemptDelivery(ctx context.Context, email, message string) bool {
	return f(ctx, email, message)
}

// AlwaysDeliver is a Transport that accepts every message without sending it.
// It is the default transport and is useful in tests and benchmarks.
var AlwaysDeliver Transport = alwaysDeliver{}

type alwaysDeliver struct{}

func (alwaysDeliver) AttemptDelivery(context.Context, string, string) bool { return true }

// Sender is an outbound delivery port that reports why a send failed,
// such as an SMTP or notification API client.
type Sender interface {
	Send(ctx context.Context, email, message string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, email, message string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, email, message string) error {
	return f(ctx, email, message)
}

// SenderTransport adapts a Sender to Transport, retrying failed sends per cfg.
// The final error is logged at Warn and reported as an undelivered message.
func SenderTransport(s Sender, cfg retry.Config, logger *slog.Logger) Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return TransportFunc(func(ctx context.Context, email, message string) bool {
		err := retry.Do(ctx, cfg, func(ctx context.Context) error {
			return s.Send(ctx, email, message)
		})
		if err != nil {
			logger.Warn("delivery failed", "email", email, "error", err)
			return false
		}
		return true
	})
}

// RateLimitedSender wraps s so each send first waits for a token from limiter.
func RateLimitedSender(s Sender, limiter *rate.Limiter) Sender {
	return SenderFunc(func(ctx context.Context, email, message string) error {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limit wait: %w", ErrDeliveryFailed, err)
		}
		return s.Send(ctx, email, message)
	})
}
