package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LocalBus delivers events synchronously to in-process subscribers. A failing
// handler is logged and does not stop delivery to the others.
type LocalBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *zap.Logger
}

func NewLocalBus(log *zap.Logger) *LocalBus {
	return &LocalBus{handlers: make(map[string][]Handler), log: log}
}

func (b *LocalBus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

func (b *LocalBus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[e.Topic]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			b.log.Error("event handler failed",
				zap.String("topic", e.Topic),
				zap.String("eventId", e.ID),
				zap.Error(err))
		}
	}
	return nil
}
