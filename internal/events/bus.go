package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Handler consumes an invoice event. Handler errors are logged, never fatal.
type Handler func(ctx context.Context, event InvoiceEvent) error

// Bus is a synchronous in-process dispatcher for invoice events.
type Bus struct {
	mu       sync.RWMutex
	log      *zap.Logger
	handlers []Handler
}

// NewBus constructs an event bus.
func NewBus(log *zap.Logger) *Bus {
	return &Bus{log: log.Named("events.bus")}
}

// Subscribe registers a handler for all invoice events.
func (b *Bus) Subscribe(handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, handler)
	b.mu.Unlock()
}

// Publish delivers the event to every subscriber in registration order.
func (b *Bus) Publish(ctx context.Context, event InvoiceEvent) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			b.log.Warn("event handler failed",
				zap.String("event_type", event.Type),
				zap.String("invoice_id", event.InvoiceID.String()),
				zap.Error(err),
			)
		}
	}
}
