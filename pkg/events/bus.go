// Package events carries cart change notifications between execution
// contexts that share the same durable slot. Delivery is best-effort and
// cooperative: the bus is a doorbell, not a lock.
package events

import "context"

// Kind discriminates cart notifications.
type Kind string

const (
	// KindUpdated signals that the slot was rewritten and should be reloaded.
	KindUpdated Kind = "updated"
	// KindCleared signals an explicit cart clear; listeners empty local
	// state without a reload.
	KindCleared Kind = "cleared"
)

// Event describes one slot change.
type Event struct {
	Kind Kind `json:"kind"`
	// Key is the slot the change applies to.
	Key string `json:"key"`
	// Origin identifies the emitting context so it can ignore its own echo.
	Origin string `json:"origin"`
}

// Handler consumes events. Handlers must not block for long; they run on
// the bus's dispatch goroutine.
type Handler func(ctx context.Context, ev Event)

// Bus publishes and subscribes to cart change events.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe registers a handler and returns a cancel function.
	Subscribe(ctx context.Context, handler Handler) (func(), error)
	Close() error
}
