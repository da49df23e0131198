package events

import (
	"context"
	"sync"
)

// MemoryBus dispatches events synchronously inside one process. It backs
// the sqlite storage mode and the tests.
type MemoryBus struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]Handler
	closed   bool
}

// NewMemoryBus returns an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: map[int]Handler{}}
}

func (b *MemoryBus) Publish(ctx context.Context, ev Event) error {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, handler Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
	}, nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = map[int]Handler{}
	b.closed = true
	return nil
}
