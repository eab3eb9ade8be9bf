package events

// Event is a committed ledger state change.
type Event interface {
	EventType() string
}

// Emitter receives events. Engines emit into a Buffer; the node forwards the
// buffer to its Bus once the operation commits.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter discards every event. Read-only views run engines against it.
type NoopEmitter struct{}

func (NoopEmitter) Emit(Event) {}
