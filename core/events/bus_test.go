package events

import "testing"

type namedEvent string

func (n namedEvent) EventType() string { return string(n) }

type recorder struct {
	seen []string
}

func (r *recorder) Emit(evt Event) { r.seen = append(r.seen, evt.EventType()) }

func TestBusFansOutInOrder(t *testing.T) {
	first := &recorder{}
	second := &recorder{}
	bus := NewBus(first, nil)
	bus.Subscribe(second)

	bus.Emit(namedEvent("a"))
	bus.Emit(nil)
	bus.Emit(namedEvent("b"))

	for _, rec := range []*recorder{first, second} {
		if len(rec.seen) != 2 || rec.seen[0] != "a" || rec.seen[1] != "b" {
			t.Fatalf("unexpected delivery: %v", rec.seen)
		}
	}
}

func TestBufferHoldsUntilFlush(t *testing.T) {
	var buf Buffer
	target := &recorder{}
	buf.Emit(namedEvent("x"))
	buf.Emit(namedEvent("y"))
	if len(target.seen) != 0 {
		t.Fatalf("events delivered before flush")
	}
	if got := len(buf.Events()); got != 2 {
		t.Fatalf("expected 2 buffered events, got %d", got)
	}
	buf.Flush(target)
	if len(target.seen) != 2 {
		t.Fatalf("expected 2 delivered events, got %v", target.seen)
	}
	if len(buf.Events()) != 0 {
		t.Fatalf("buffer not drained after flush")
	}

	buf.Emit(namedEvent("z"))
	buf.Reset()
	buf.Flush(target)
	if len(target.seen) != 2 {
		t.Fatalf("reset buffer should not deliver: %v", target.seen)
	}
}
