package events

import "sync"

// Bus fans out emitted events to every registered subscriber in registration
// order. Subscribers are invoked synchronously on the emitting goroutine.
type Bus struct {
	mu          sync.RWMutex
	subscribers []Emitter
}

// NewBus constructs a bus forwarding to the supplied emitters.
func NewBus(subscribers ...Emitter) *Bus {
	bus := &Bus{}
	for _, sub := range subscribers {
		bus.Subscribe(sub)
	}
	return bus
}

// Subscribe registers an additional downstream emitter.
func (b *Bus) Subscribe(sub Emitter) {
	if b == nil || sub == nil {
		return
	}
	b.mu.Lock()
	b.subscribers = append(b.subscribers, sub)
	b.mu.Unlock()
}

// Emit implements the Emitter interface.
func (b *Bus) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.mu.RLock()
	subs := make([]Emitter, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()
	for _, sub := range subs {
		sub.Emit(evt)
	}
}

// Buffer collects events in memory until Flush forwards them downstream. It is
// used to hold back events emitted inside a transaction until it commits.
type Buffer struct {
	pending []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.pending = append(b.pending, evt)
}

// Events returns the buffered events without draining them.
func (b *Buffer) Events() []Event {
	if b == nil {
		return nil
	}
	out := make([]Event, len(b.pending))
	copy(out, b.pending)
	return out
}

// Flush forwards the buffered events to the target and clears the buffer.
func (b *Buffer) Flush(target Emitter) {
	if b == nil {
		return
	}
	pending := b.pending
	b.pending = nil
	if target == nil {
		return
	}
	for _, evt := range pending {
		target.Emit(evt)
	}
}

// Reset drops the buffered events.
func (b *Buffer) Reset() {
	if b == nil {
		return
	}
	b.pending = nil
}
