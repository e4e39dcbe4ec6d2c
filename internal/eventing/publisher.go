package eventing

import (
	"context"
	"errors"
	"log"
)

// Publisher wraps events in an envelope and hands them to the bus. Delivery
// is at most once; nothing is persisted.
type Publisher struct {
	bus    EventBus
	logger *log.Logger
}

// NewPublisher constructs a publisher.
func NewPublisher(bus EventBus, logger *log.Logger) (*Publisher, error) {
	if bus == nil {
		return nil, errors.New("eventing publisher: nil bus")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{bus: bus, logger: logger}, nil
}

// Publish builds the envelope and delivers the event.
func (p *Publisher) Publish(ctx context.Context, event any, meta Meta) error {
	env, err := BuildEnvelope(event, meta)
	if err != nil {
		return err
	}
	if err := p.bus.Publish(WithEnvelope(ctx, env), event); err != nil {
		p.logger.Printf("eventing: deliver %s event=%s: %v", env.EventType, env.EventID, err)
		return err
	}
	return nil
}
