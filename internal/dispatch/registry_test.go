package dispatch

import (
	"encoding/json"
	"testing"
)

func TestRegistry_FanOut(t *testing.T) {
	r := NewRegistry(nil)

	var first, second []string
	r.Subscribe("chat_message", func(data json.RawMessage) {
		first = append(first, string(data))
	})
	r.Subscribe("chat_message", func(data json.RawMessage) {
		second = append(second, string(data))
	})

	r.Dispatch("chat_message", json.RawMessage(`{"message":"hi"}`))

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("deliveries = (%d, %d), want (1, 1)", len(first), len(second))
	}
	if first[0] != `{"message":"hi"}` {
		t.Errorf("payload = %q, want original data", first[0])
	}
}

func TestRegistry_PanicIsolation(t *testing.T) {
	r := NewRegistry(nil)

	r.Subscribe("order_status_updated", func(json.RawMessage) {
		panic("handler bug")
	})

	delivered := false
	r.Subscribe("order_status_updated", func(json.RawMessage) {
		delivered = true
	})

	r.Dispatch("order_status_updated", json.RawMessage(`{}`))

	if !delivered {
		t.Error("second handler not invoked after first panicked")
	}
}

func TestRegistry_UnsubscribePrecision(t *testing.T) {
	r := NewRegistry(nil)

	var xCalls, yCalls int
	unsubX := r.Subscribe("typing_indicator", func(json.RawMessage) { xCalls++ })
	r.Subscribe("typing_indicator", func(json.RawMessage) { yCalls++ })

	unsubX()
	r.Dispatch("typing_indicator", nil)

	if xCalls != 0 {
		t.Errorf("unsubscribed handler called %d times", xCalls)
	}
	if yCalls != 1 {
		t.Errorf("remaining handler called %d times, want 1", yCalls)
	}
}

func TestRegistry_UnsubscribeIdempotent(t *testing.T) {
	r := NewRegistry(nil)

	unsub := r.Subscribe("notification", func(json.RawMessage) {})
	unsub()
	unsub() // second call is a no-op

	if r.HandlerCount("notification") != 0 {
		t.Errorf("HandlerCount = %d, want 0", r.HandlerCount("notification"))
	}
}

func TestRegistry_EmptyEntryDeleted(t *testing.T) {
	r := NewRegistry(nil)

	unsubA := r.Subscribe("notification", func(json.RawMessage) {})
	unsubB := r.Subscribe("notification", func(json.RawMessage) {})

	unsubA()
	if r.TypeCount() != 1 {
		t.Errorf("TypeCount = %d, want 1 while a handler remains", r.TypeCount())
	}

	unsubB()
	if r.TypeCount() != 0 {
		t.Errorf("TypeCount = %d, want 0 once the set is empty", r.TypeCount())
	}
}

func TestRegistry_SameHandlerMultipleTypes(t *testing.T) {
	r := NewRegistry(nil)

	calls := 0
	fn := func(json.RawMessage) { calls++ }

	unsubChat := r.Subscribe("chat_message", fn)
	r.Subscribe("notification", fn)

	unsubChat()
	r.Dispatch("chat_message", nil)
	r.Dispatch("notification", nil)

	if calls != 1 {
		t.Errorf("calls = %d, want 1 (chat registration removed, notification kept)", calls)
	}
}

func TestRegistry_UnsubscribeDuringDispatch(t *testing.T) {
	r := NewRegistry(nil)

	var unsub func()
	calls := 0
	unsub = r.Subscribe("notification", func(json.RawMessage) {
		calls++
		unsub()
	})

	r.Dispatch("notification", nil)
	r.Dispatch("notification", nil)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
