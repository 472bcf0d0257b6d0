package event

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Handler func(ctx context.Context, event Event) error

// Bus is an in-process publish/subscribe bus for job lifecycle events.
// Handlers run synchronously on the publisher's goroutine; a handler
// error is logged and does not stop delivery to the remaining handlers.
type Bus interface {
	Publish(ctx context.Context, event Event)
	Subscribe(handler Handler, types ...EventType) (unsubscribe func())
}

func NewBus() Bus {
	return &inProcessBus{subscribers: make(map[EventType]map[uint64]Handler)}
}

type inProcessBus struct {
	mu          sync.RWMutex
	subscribers map[EventType]map[uint64]Handler
	nextID      uint64
}

func (b *inProcessBus) Publish(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subscribers[event.Type]))
	for _, h := range b.subscribers[event.Type] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			log.Error().Err(err).
				Str("event", string(event.Type)).
				Msg("event handler error")
		}
	}
}

// Subscribe registers handler for every listed event type. The returned
// closure removes the handler from all of them.
func (b *inProcessBus) Subscribe(handler Handler, types ...EventType) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	for _, t := range types {
		if b.subscribers[t] == nil {
			b.subscribers[t] = make(map[uint64]Handler)
		}
		b.subscribers[t][id] = handler
	}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, t := range types {
			delete(b.subscribers[t], id)
		}
	}
}

// PublishJob is a convenience wrapper for job lifecycle events.
func PublishJob(ctx context.Context, bus Bus, t EventType, payload JobEvent) {
	bus.Publish(ctx, Event{Type: t, Payload: payload})
}
