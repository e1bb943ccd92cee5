package event

import (
	"log/slog"
	"runtime/debug"
	"sync"
)

// Handler is a function that handles an event.
type Handler func(Event)

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

type subscription struct {
	id      int
	handler Handler
}

// Bus is a small synchronous pub-sub event bus. It lets the CLI and TUI
// observe run progress without the executor depending on either of them.
//
// Delivery is in-process and ordered: for each published event, handlers
// subscribed to its type run first, then wildcard handlers, each group in
// registration order. Publish does not return until every handler has run.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string][]subscription
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers a handler for one event type. The returned function
// removes the subscription; calling it more than once is harmless.
func (b *Bus) Subscribe(eventType string, handler Handler) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[eventType] = append(b.subs[eventType], subscription{id: id, handler: handler})

	return func() { b.remove(eventType, id) }
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) (cancel func()) {
	return b.Subscribe(Wildcard, handler)
}

func (b *Bus) remove(eventType string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[eventType]
	for i, sub := range subs {
		if sub.id == id {
			b.subs[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish dispatches an event to all registered handlers. A panicking
// handler is recovered and logged so it cannot block delivery to the rest.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[event.EventType()])+len(b.subs[Wildcard]))
	for _, sub := range b.subs[event.EventType()] {
		handlers = append(handlers, sub.handler)
	}
	for _, sub := range b.subs[Wildcard] {
		handlers = append(handlers, sub.handler)
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.safeCall(handler, event)
	}
}

func (b *Bus) safeCall(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked",
				"event", event.EventType(), "panic", r, "stack", string(debug.Stack()))
		}
	}()
	handler(event)
}
