// Package reactor empties the cart when the user signs out.
package reactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abgdnv/gocommerce/cart_service/internal/session"
	"github.com/abgdnv/gocommerce/cart_service/pkg/messaging"
	"github.com/abgdnv/gocommerce/cart_service/pkg/messaging/events"
)

var ErrAlreadyAttached = errors.New("reactor already attached")

const clearedReasonSignOut = "signed_out"

// Store is the part of the cart store the reactor needs.
type Store interface {
	ClearCart(ctx context.Context) error
	GetTotalItems() int
}

// Reactor subscribes to session events and clears the cart on SIGNED_OUT.
// Other kinds are ignored. Nothing is delivered after Detach returns.
type Reactor struct {
	source    session.EventSource
	store     Store
	publisher messaging.Publisher
	logger    *slog.Logger

	mu  sync.Mutex
	sub session.Subscription
}

func New(source session.EventSource, s Store, publisher messaging.Publisher, logger *slog.Logger) *Reactor {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	return &Reactor{
		source:    source,
		store:     s,
		publisher: publisher,
		logger:    logger.With("component", "auth_reactor"),
	}
}

func (r *Reactor) Attach(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		return ErrAlreadyAttached
	}
	sub, err := r.source.Subscribe(r.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to session events: %w", err)
	}
	r.sub = sub
	return nil
}

// Detach releases the subscription. Calling it on a detached reactor is a no-op.
func (r *Reactor) Detach() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub == nil {
		return nil
	}
	err := r.sub.Unsubscribe()
	r.sub = nil
	if err != nil {
		return fmt.Errorf("failed to unsubscribe from session events: %w", err)
	}
	return nil
}

func (r *Reactor) handle(ctx context.Context, event session.Event) {
	if event.Kind != session.SignedOut {
		r.logger.DebugContext(ctx, "Session event ignored", "kind", event.Kind)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub == nil {
		return
	}

	dropped := r.store.GetTotalItems()
	if err := r.store.ClearCart(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to clear cart on sign-out", "error", err)
		return
	}
	r.logger.InfoContext(ctx, "Cart cleared on sign-out", "items_dropped", dropped)

	cleared := events.NewCartCleared(ctx, clearedReasonSignOut, dropped)
	if err := r.publisher.Publish(ctx, cleared); err != nil {
		r.logger.ErrorContext(ctx, "Failed to publish CartClearedEvent", "error", err)
	}
}
