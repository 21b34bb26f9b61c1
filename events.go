package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rbaliyan/event/v3"
	"github.com/rbaliyan/event/v3/transport/noop"
	eventredis "github.com/rbaliyan/event/v3/transport/redis"
)

// Event names for dispatch events.
const (
	EventNameDispatched = "dispatch.message.dispatched"
)

// DispatchedEvent is published after every Dispatch call, including rejected ones.
type DispatchedEvent struct {
	// DispatchID uniquely identifies the call. It is not part of the Outcome.
	DispatchID   string    `json:"dispatch_id"`
	RequestedIDs []int     `json:"requested_ids"`
	DeliveredIDs []int     `json:"delivered_ids"`
	FailedIDs    []int     `json:"failed_ids"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	DispatchedAt time.Time `json:"dispatched_at"`
}

// DispatcherEvents provides access to per-dispatcher event instances.
// Each dispatcher creates its own events bound to its own event bus.
//
// Subscribe to events:
//
//	d.Events().Dispatched.Subscribe(ctx, handler)
type DispatcherEvents struct {
	// Dispatched is published when a Dispatch call finishes.
	Dispatched event.Event[DispatchedEvent]
}

// busCounter generates unique suffixes for event bus names.
var busCounter int64

// newEventBus creates the dispatcher's bus and registers its events.
func newEventBus(ctx context.Context, o *options) (*event.Bus, *DispatcherEvents, error) {
	// Each bus needs a unique name, so append a counter suffix
	busName := fmt.Sprintf("%s-%d", o.serviceName, atomic.AddInt64(&busCounter, 1))

	var bus *event.Bus
	var err error

	switch {
	case o.eventTransport != nil:
		o.logger.Info("initializing event bus with custom transport")
		bus, err = event.NewBus(busName, event.WithTransport(o.eventTransport))
	case o.redisClient != nil:
		o.logger.Info("initializing event bus with Redis transport")
		t, transportErr := eventredis.New(o.redisClient)
		if transportErr != nil {
			return nil, nil, fmt.Errorf("create redis transport: %w", transportErr)
		}
		bus, err = event.NewBus(busName, event.WithTransport(t))
	default:
		o.logger.Debug("initializing event bus with noop transport")
		bus, err = event.NewBus(busName, event.WithTransport(noop.New()))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("create event bus: %w", err)
	}

	events := &DispatcherEvents{
		Dispatched: event.New[DispatchedEvent](busName + "." + EventNameDispatched),
	}
	if err := event.Register(ctx, bus, events.Dispatched); err != nil {
		bus.Close(ctx)
		return nil, nil, fmt.Errorf("register Dispatched: %w", err)
	}

	return bus, events, nil
}

// newDispatchedEvent builds the event payload for a finished call.
func newDispatchedEvent(dispatchID string, userIDs []int, outcome Outcome, at time.Time) DispatchedEvent {
	ev := DispatchedEvent{
		DispatchID:   dispatchID,
		RequestedIDs: userIDs,
		DeliveredIDs: outcome.DeliveredIDs(),
		FailedIDs:    outcome.FailedIDs(),
		DispatchedAt: at,
	}
	if outcome.IsFailure() {
		ev.ErrorKind = string(outcome.Kind())
	}
	return ev
}
