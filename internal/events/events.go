// Package events defines the dispatch core's event emission contract and a
// webhook-backed emitter for merchant-facing delivery.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event names emitted by the dispatch core.
const (
	ShippingSent          = "order.shipping.sent"
	ShippingFailed        = "order.shipping.failed"
	ShippingStatusUpdated = "order.shipping.status_updated"
)

// Event is one dispatch lifecycle notification.
type Event struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	OccurredAt  time.Time      `json:"occurredAt"`
	OrderID     string         `json:"orderId"`
	OrderNumber string         `json:"orderNumber"`
	Provider    string         `json:"provider"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// New builds an event with a fresh id and timestamp.
func New(name, orderID, orderNumber, provider string, payload map[string]any) Event {
	return Event{
		ID:          uuid.New().String(),
		Name:        name,
		OccurredAt:  time.Now().UTC(),
		OrderID:     orderID,
		OrderNumber: orderNumber,
		Provider:    provider,
		Payload:     payload,
	}
}

// Emitter delivers events to the platform's event collaborator. Emission
// failures must never affect the dispatch outcome.
type Emitter interface {
	Emit(ctx context.Context, ev Event) error
}

// Nop discards all events.
type Nop struct{}

func (Nop) Emit(ctx context.Context, ev Event) error { return nil }

// Recorder captures events for tests.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(ctx context.Context, ev Event) error {
	r.Events = append(r.Events, ev)
	return nil
}

// Named returns the recorded events matching a name.
func (r *Recorder) Named(name string) []Event {
	var out []Event
	for _, ev := range r.Events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}
