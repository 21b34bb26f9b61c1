package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rbaliyan/dispatch/directory"
	"github.com/rbaliyan/event/v3"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Type aliases for directory types.
// These allow users to work with the dispatch package without importing directory directly.
type (
	User      = directory.User
	Directory = directory.Directory
)

// Dispatcher sends a message to users resolved from a directory.
// A Dispatcher holds no per-call state and is safe for concurrent use,
// provided its Transport is.
type Dispatcher struct {
	directory directory.Directory
	transport Transport
	logger    *slog.Logger
	opts      *options
	plugins   *pluginRegistry
	otel      *otelInstrumentation
	eventBus  *event.Bus
	events    *DispatcherEvents
	closed    atomic.Bool
}

// New creates a Dispatcher. WithDirectory is required.
// New initializes the event bus and plugins; call Close to release them.
func New(ctx context.Context, opts ...Option) (*Dispatcher, error) {
	o := newOptions(opts...)

	if o.directory == nil {
		return nil, ErrDirectoryRequired
	}

	otelInstr, err := newOtelInstrumentation(o)
	if err != nil {
		return nil, fmt.Errorf("init otel: %w", err)
	}

	plugins := newPluginRegistry(o.logger)
	for _, p := range o.plugins {
		plugins.register(p)
	}

	bus, events, err := newEventBus(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("init event bus: %w", err)
	}

	if err := plugins.initAll(ctx); err != nil {
		bus.Close(ctx)
		return nil, fmt.Errorf("init plugins: %w", err)
	}

	return &Dispatcher{
		directory: o.directory,
		transport: o.transport,
		logger:    o.logger,
		opts:      o,
		plugins:   plugins,
		otel:      otelInstr,
		eventBus:  bus,
		events:    events,
	}, nil
}

// Events returns the dispatcher's event instances for subscribing.
func (d *Dispatcher) Events() *DispatcherEvents {
	return d.events
}

// Directory returns the directory recipients are resolved against.
func (d *Dispatcher) Directory() directory.Directory {
	return d.directory
}

// Close closes plugins in reverse order and the event bus.
// Dispatch keeps working after Close but no longer publishes events or runs hooks.
// Calling Close more than once is safe.
func (d *Dispatcher) Close(ctx context.Context) error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error

	if err := d.plugins.closeAll(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close plugins: %w", err))
	}

	if d.eventBus != nil {
		if err := d.eventBus.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Dispatch sends message to every user in userIDs found in the directory.
//
// An empty message fails with KindEmptyMessage before any lookup or delivery.
// Otherwise the outcome is a success with one DeliveryResult per resolved user,
// in directory order; unknown IDs are dropped. Each user receives
// FormatMessage(message) at their email. A transport that reports failure or
// panics yields StatusError for that user only. Users reached after ctx is
// done are marked StatusError without a delivery attempt.
func (d *Dispatcher) Dispatch(ctx context.Context, userIDs []int, message string) Outcome {
	dispatchID := uuid.NewString()
	start := time.Now()

	ctx, endSpan := d.otel.startSpan(ctx, "dispatch.dispatch",
		attribute.String("dispatch_id", dispatchID),
		attribute.Int("recipient_count", len(userIDs)),
	)

	outcome := d.dispatch(ctx, userIDs, message)

	endSpan(outcome.Err(), attribute.Int("resolved_count", outcome.TotalCount()))
	d.otel.recordDispatch(ctx, time.Since(start), outcome)
	d.finish(ctx, dispatchID, userIDs, message, outcome)

	return outcome
}

func (d *Dispatcher) dispatch(ctx context.Context, userIDs []int, message string) Outcome {
	if message == "" {
		return Failure(KindEmptyMessage)
	}

	users := d.directory.FindByIDs(userIDs)
	formatted := FormatMessage(message)

	return Success(d.deliver(ctx, users, formatted))
}

// deliver attempts delivery to each user and returns results in user order.
func (d *Dispatcher) deliver(ctx context.Context, users []User, formatted string) []DeliveryResult {
	results := make([]DeliveryResult, len(users))

	if d.opts.maxConcurrentDeliveries <= 1 || len(users) <= 1 {
		for i, u := range users {
			results[i] = DeliveryResult{ID: u.ID, Status: d.attempt(ctx, u, formatted)}
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(d.opts.maxConcurrentDeliveries)
	for i, u := range users {
		g.Go(func() error {
			results[i] = DeliveryResult{ID: u.ID, Status: d.attempt(ctx, u, formatted)}
			return nil
		})
	}
	_ = g.Wait() // attempts never return errors

	return results
}

// attempt runs one transport call, converting panics into StatusError.
func (d *Dispatcher) attempt(ctx context.Context, u User, formatted string) (status DeliveryStatus) {
	if ctx.Err() != nil {
		return StatusError
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("transport panicked during delivery",
				"user_id", u.ID, "email", u.Email, "panic", r)
			status = StatusError
		}
	}()

	if d.transport.AttemptDelivery(ctx, u.Email, formatted) {
		return StatusDelivered
	}
	return StatusError
}

// finish publishes the event and runs hooks. Nothing here affects the outcome.
func (d *Dispatcher) finish(ctx context.Context, dispatchID string, userIDs []int, message string, outcome Outcome) {
	if outcome.IsFailure() {
		d.logger.Debug("dispatch rejected", "dispatch_id", dispatchID, "kind", outcome.Kind())
	} else {
		d.logger.Debug("dispatch completed",
			"dispatch_id", dispatchID,
			"requested", len(userIDs),
			"delivered", outcome.DeliveredCount(),
			"failed", outcome.ErrorCount(),
		)
	}

	if d.closed.Load() {
		return
	}

	// Subscribers and hooks get copies; the caller's outcome and ids stay untouched.
	if ctx.Err() != nil {
		d.logger.Debug("skipping event publish, context done",
			"dispatch_id", dispatchID, "error", ctx.Err())
	} else if err := d.events.Dispatched.Publish(ctx, newDispatchedEvent(dispatchID, slices.Clone(userIDs), outcome, time.Now().UTC())); err != nil {
		d.opts.safeEventPublishFailure("Dispatched", err)
	}

	d.plugins.afterDispatch(ctx, userIDs, message, outcome)
}
