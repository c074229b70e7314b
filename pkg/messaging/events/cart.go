// Package events defines the cart domain events published on JetStream.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/abgdnv/gocommerce/cart_service/pkg/messaging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// CartHydratedEvent reports how a hydration pass ended.
type CartHydratedEvent struct {
	ID         string                 `json:"id,omitempty"`
	Carrier    propagation.MapCarrier `json:"carrier,omitempty"`
	UserID     string                 `json:"user_id,omitempty"`
	Outcome    string                 `json:"outcome"`
	ItemCount  int                    `json:"item_count"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// NewCartHydrated stamps the event with a fresh id and the trace context of ctx.
func NewCartHydrated(ctx context.Context, userID, outcome string, itemCount int) CartHydratedEvent {
	return CartHydratedEvent{
		ID:         uuid.NewString(),
		Carrier:    carrierFrom(ctx),
		UserID:     userID,
		Outcome:    outcome,
		ItemCount:  itemCount,
		OccurredAt: time.Now().UTC(),
	}
}

func (e CartHydratedEvent) Subject() string {
	return messaging.CartsHydratedSubject
}

func (e CartHydratedEvent) EventID() string {
	return e.ID
}

func (e CartHydratedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

// CartClearedEvent is emitted when the cart is emptied by a session transition.
type CartClearedEvent struct {
	ID           string                 `json:"id,omitempty"`
	Carrier      propagation.MapCarrier `json:"carrier,omitempty"`
	Reason       string                 `json:"reason"`
	ItemsDropped int                    `json:"items_dropped"`
	OccurredAt   time.Time              `json:"occurred_at"`
}

func NewCartCleared(ctx context.Context, reason string, itemsDropped int) CartClearedEvent {
	return CartClearedEvent{
		ID:           uuid.NewString(),
		Carrier:      carrierFrom(ctx),
		Reason:       reason,
		ItemsDropped: itemsDropped,
		OccurredAt:   time.Now().UTC(),
	}
}

func (e CartClearedEvent) Subject() string {
	return messaging.CartsClearedSubject
}

func (e CartClearedEvent) EventID() string {
	return e.ID
}

func (e CartClearedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

func carrierFrom(ctx context.Context) propagation.MapCarrier {
	carrier := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if len(carrier) == 0 {
		return nil
	}
	return carrier
}
