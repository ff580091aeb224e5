package domain

import (
	"context"
	"sync"

	"taller/internal/core/id"
)

// Event names written to the outbox.
const (
	EventWorkOrderStatusChanged = "work_order.status_changed"
	EventSaleGenerated          = "sale.generated"
	EventSettlementCreated      = "settlement.created"
)

// Event is a fact recorded in the same transaction as the change it describes.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// EventPublisher must be called inside a transaction.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventRecorder keeps published events in memory. Tests use it.
type EventRecorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *EventRecorder) Publish(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, event)
	return nil
}

// Types returns the event types in publish order.
func (r *EventRecorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.EventType
	}
	return out
}
