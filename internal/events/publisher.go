package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher wraps a Bus with envelope building and bounded retry. Publishing is a
// side effect of a committed mutation, so Publish never returns an error.
type Publisher struct {
	bus      Bus
	source   string
	attempts int
	delay    time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func NewPublisher(bus Bus, source string, attempts int, delay time.Duration, log *zap.Logger) *Publisher {
	if attempts < 1 {
		attempts = 1
	}
	return &Publisher{bus: bus, source: source, attempts: attempts, delay: delay, log: log, now: time.Now}
}

// Publish sends payload on topic. It reports whether the bus accepted the event.
func (p *Publisher) Publish(ctx context.Context, topic string, payload interface{}) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("event payload not serializable", zap.String("topic", topic), zap.Error(err))
		return false
	}
	e := Event{
		ID:            uuid.NewString(),
		Topic:         topic,
		OccurredAt:    p.now().UTC(),
		CorrelationID: CorrelationID(ctx),
		Source:        p.source,
		Payload:       data,
	}

	for attempt := 1; attempt <= p.attempts; attempt++ {
		err = p.bus.Publish(ctx, e)
		if err == nil {
			return true
		}
		p.log.Warn("event publish failed",
			zap.String("topic", topic),
			zap.String("eventId", e.ID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt == p.attempts {
			break
		}
		select {
		case <-ctx.Done():
			p.log.Error("event dropped, context done", zap.String("topic", topic), zap.Error(ctx.Err()))
			return false
		case <-time.After(p.delay):
		}
	}
	p.log.Error("event dropped after retries",
		zap.String("topic", topic),
		zap.String("eventId", e.ID),
		zap.Int("attempts", p.attempts))
	return false
}
