package service

import (
	"context"
	"sync"
)

// Events emitted by the services.
const (
	EventPartCreated    = "part:created"
	EventSketchOpened   = "sketch:opened"
	EventSketchClosed   = "sketch:closed"
	EventShapePlaced    = "shape:placed"
	EventFeatureCreated = "feature:created"
	EventDialogHandled  = "dialog:handled"
)

// EventEmitter publishes service events to whoever is listening: connected
// MCP clients when serving, the terminal when running a script.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// NopEmitter drops every event.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, any) {}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Names returns the emitted event names in order.
func (m *MockEmitter) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Event
	}
	return out
}

// Relay forwards to an emitter attached after the services were built. Until
// one is attached, events are dropped.
type Relay struct {
	mu     sync.RWMutex
	target EventEmitter
}

func (r *Relay) Attach(e EventEmitter) {
	r.mu.Lock()
	r.target = e
	r.mu.Unlock()
}

func (r *Relay) Emit(ctx context.Context, event string, data any) {
	r.mu.RLock()
	target := r.target
	r.mu.RUnlock()
	if target != nil {
		target.Emit(ctx, event, data)
	}
}
