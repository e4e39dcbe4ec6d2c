package adapters

import (
	"context"
	"errors"
	"log"

	"condo-backoffice/internal/auth"
	"condo-backoffice/internal/debtorimport/application"
	"condo-backoffice/internal/eventing"
)

// CompletionPublisher puts ImportCompleted events on the event bus.
type CompletionPublisher struct {
	publisher *eventing.Publisher
}

// NewCompletionPublisher constructs the adapter.
func NewCompletionPublisher(publisher *eventing.Publisher) (*CompletionPublisher, error) {
	if publisher == nil {
		return nil, errors.New("completion publisher: nil publisher")
	}
	return &CompletionPublisher{publisher: publisher}, nil
}

// PublishImportCompleted implements application.CompletionPublisher.
func (p *CompletionPublisher) PublishImportCompleted(ctx context.Context, event application.ImportCompleted) error {
	return p.publisher.Publish(ctx, event, eventing.Meta{
		CorrelationID: event.RunID,
		TenantID:      auth.TenantIDFromContext(ctx),
	})
}

// BillsChangedHandler logs downstream invalidation for projects whose bills
// changed. Readers cache nothing in-process yet, so the log line is the signal.
func BillsChangedHandler(logger *log.Logger) eventing.EventHandler {
	if logger == nil {
		logger = log.Default()
	}
	return func(ctx context.Context, event any) error {
		completed, ok := event.(application.ImportCompleted)
		if !ok {
			return nil
		}
		env, _ := eventing.EnvelopeFromContext(ctx)
		logger.Printf("bills changed: project=%s run=%s imported=%d event=%s",
			completed.ProjectID, completed.RunID, completed.Imported, env.EventID)
		return nil
	}
}

// Subscribe wires the bills-changed handler onto the bus.
func Subscribe(bus eventing.EventBus, logger *log.Logger) {
	bus.Subscribe(eventing.EventTypeOf[application.ImportCompleted](), BillsChangedHandler(logger))
}
