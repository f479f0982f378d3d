package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples the board controller from its front ends
// ─────────────────────────────────────────────────────────────

// Board events.
const (
	EventBoardChanged = "board:changed"
	EventBoardCleared = "board:cleared"
)

// EventEmitter is an interface for emitting events to whatever renders the
// board. The controller only ever talks to this interface, which makes it
// testable with a mock emitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// NoopEmitter drops every event.
type NoopEmitter struct{}

func (NoopEmitter) Emit(context.Context, string, any) {}

// LogEmitter writes events to a logger at debug level.
type LogEmitter struct {
	Log zerolog.Logger
}

func (e LogEmitter) Emit(_ context.Context, event string, data any) {
	e.Log.Debug().Str("event", event).Interface("data", data).Msg("emit")
}

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

// Names returns the recorded event names in order.
func (m *MockEmitter) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.Events))
	for i, e := range m.Events {
		names[i] = e.Event
	}
	return names
}
