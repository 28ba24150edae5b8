// Package memory provides an in-process event bus for host lifecycle events.
package memory

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/tendant/simple-blurhash/pkg/blurhasher"
)

// Bus implements blurhasher.Registry and dispatches emitted events to the
// handlers registered for them, in registration order.
type Bus struct {
	mu      sync.RWMutex
	inits   map[string][]blurhasher.InitHandler
	actions map[string][]blurhasher.ActionHandler
	logger  *slog.Logger
}

// NewBus creates an empty event bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		inits:   map[string][]blurhasher.InitHandler{},
		actions: map[string][]blurhasher.ActionHandler{},
		logger:  logger,
	}
}

// Init registers handler for an initialization stage.
func (b *Bus) Init(event string, handler blurhasher.InitHandler) {
	event = strings.TrimSpace(event)
	if event == "" || handler == nil {
		return
	}
	b.mu.Lock()
	b.inits[event] = append(b.inits[event], handler)
	b.mu.Unlock()
}

// Action registers handler for a completed host action.
func (b *Bus) Action(event string, handler blurhasher.ActionHandler) {
	event = strings.TrimSpace(event)
	if event == "" || handler == nil {
		return
	}
	b.mu.Lock()
	b.actions[event] = append(b.actions[event], handler)
	b.mu.Unlock()
}

// Events returns the names of every event with at least one handler.
func (b *Bus) Events() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.inits)+len(b.actions))
	for name := range b.inits {
		names = append(names, name)
	}
	for name := range b.actions {
		names = append(names, name)
	}
	return names
}

// HasHandler reports whether event has a registered handler.
func (b *Bus) HasHandler(event string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.inits[event]) > 0 || len(b.actions[event]) > 0
}

// EmitInit runs the handlers of an initialization stage and returns the
// number of handlers invoked.
func (b *Bus) EmitInit(ctx context.Context, event string) int {
	b.mu.RLock()
	handlers := append([]blurhasher.InitHandler(nil), b.inits[event]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.safely(event, func() { handler(ctx) })
	}
	return len(handlers)
}

// EmitAction runs the handlers of meta.Event and returns the number of
// handlers invoked. A panicking handler does not stop the remaining ones.
func (b *Bus) EmitAction(ctx context.Context, meta blurhasher.ActionMeta) int {
	b.mu.RLock()
	handlers := append([]blurhasher.ActionHandler(nil), b.actions[meta.Event]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.safely(meta.Event, func() { handler(ctx, meta) })
	}
	return len(handlers)
}

func (b *Bus) safely(event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "event", event, "panic", r)
		}
	}()
	fn()
}
