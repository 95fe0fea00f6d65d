// Package broadcast carries the process-wide "stop all audio" signal.
package broadcast

import (
	"slices"
	"sync"
)

// StopAll is delivered to every handler when some component asks all audio
// to stop, e.g. a chapter change in the TUI or a browser tab request.
type StopAll struct {
	Source string // who raised it ("tui", "socket:<id>", "http", ...)
	Reason string
}

// Bus fans StopAll out to registered handlers. Handlers run synchronously
// in the publisher's goroutine, so once StopAll returns every handler has
// observed it. Handlers must not call StopAll themselves.
type Bus struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(StopAll)
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{handlers: make(map[int]func(StopAll))}
}

// OnStopAll registers fn and returns a function that unregisters it.
func (b *Bus) OnStopAll(fn func(StopAll)) (cancel func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// StopAll notifies every registered handler in registration order.
func (b *Bus) StopAll(source, reason string) {
	b.mu.Lock()
	ids := make([]int, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	fns := make([]func(StopAll), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, b.handlers[id])
	}
	b.mu.Unlock()

	msg := StopAll{Source: source, Reason: reason}
	for _, fn := range fns {
		fn(msg)
	}
}

// Len returns the number of registered handlers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}
