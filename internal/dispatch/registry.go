package dispatch

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Handler consumes the data payload of one dispatched event.
type Handler func(data json.RawMessage)

// entry is a single registration. Registrations are identified by handle,
// not by function value, so the same callback can be registered twice.
type entry struct {
	id int64
	fn Handler
}

// Registry maps event-type strings to registered handlers.
type Registry struct {
	logger *slog.Logger

	mu     sync.RWMutex
	nextID int64
	types  map[string][]entry
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger,
		types:  make(map[string][]entry),
	}
}

// Subscribe registers a handler for an event type and returns its
// unsubscribe function. Unsubscribing removes exactly this registration.
func (r *Registry) Subscribe(eventType string, fn Handler) func() {
	if fn == nil {
		return func() {}
	}

	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.types[eventType] = append(r.types[eventType], entry{id: id, fn: fn})
	r.mu.Unlock()

	return func() {
		r.unsubscribe(eventType, id)
	}
}

// Dispatch invokes every handler currently registered for the event type.
// Invocation order follows registration order but is unspecified for
// consumers. Each handler is individually fault-isolated.
func (r *Registry) Dispatch(eventType string, data json.RawMessage) {
	r.mu.RLock()
	entries := r.types[eventType]
	// Snapshot so handlers can unsubscribe during dispatch.
	snapshot := make([]entry, len(entries))
	copy(snapshot, entries)
	r.mu.RUnlock()

	for _, e := range snapshot {
		r.invoke(eventType, e, data)
	}
}

// HandlerCount returns the number of handlers registered for a type.
func (r *Registry) HandlerCount(eventType string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types[eventType])
}

// TypeCount returns the number of event types with at least one handler.
func (r *Registry) TypeCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

func (r *Registry) invoke(eventType string, e entry, data json.RawMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("event handler panicked",
				"event_type", eventType,
				"panic", rec,
			)
		}
	}()
	e.fn(data)
}

func (r *Registry) unsubscribe(eventType string, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.types[eventType]
	for i, e := range entries {
		if e.id == id {
			entries = append(entries[:i], entries[i+1:]...)
			if len(entries) == 0 {
				delete(r.types, eventType)
			} else {
				r.types[eventType] = entries
			}
			return
		}
	}
}
