package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// EventKind is the kind of session change.
type EventKind string

const (
	SignedIn       EventKind = "SIGNED_IN"
	SignedOut      EventKind = "SIGNED_OUT"
	TokenRefreshed EventKind = "TOKEN_REFRESHED"
)

// Valid reports whether k is one of the known kinds.
func (k EventKind) Valid() bool {
	switch k {
	case SignedIn, SignedOut, TokenRefreshed:
		return true
	default:
		return false
	}
}

// Event is a discrete session change.
type Event struct {
	Kind       EventKind `json:"kind"`
	UserID     string    `json:"user_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Handler receives events in the order they happened.
type Handler func(ctx context.Context, event Event)

// Subscription is released with Unsubscribe. After it returns no further
// events are delivered.
type Subscription interface {
	Unsubscribe() error
}

// EventSource delivers session events to subscribers.
// Late subscribers don't get events published before they subscribed.
type EventSource interface {
	Subscribe(handler Handler) (Subscription, error)
}

// EventPublisher announces session events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventBus is both ends of a session event channel.
type EventBus interface {
	EventSource
	EventPublisher
}

// Broker is an in-process EventBus. Publish delivers synchronously, so
// subscribers see events in publish order.
type Broker struct {
	pubMu    sync.Mutex
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

func NewBroker() *Broker {
	return &Broker{handlers: make(map[int]Handler)}
}

func (b *Broker) Subscribe(handler Handler) (Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("nil session event handler")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[b.nextID] = handler
	return &brokerSubscription{broker: b, id: b.nextID}, nil
}

func (b *Broker) Publish(ctx context.Context, event Event) error {
	if !event.Kind.Valid() {
		return fmt.Errorf("unknown session event kind %q", event.Kind)
	}
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	for _, id := range b.subscriberIDs() {
		b.mu.RLock()
		handler, ok := b.handlers[id]
		b.mu.RUnlock()
		if ok {
			handler(ctx, event)
		}
	}
	return nil
}

// subscriberIDs returns ids in subscription order.
func (b *Broker) subscriberIDs() []int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]int, 0, len(b.handlers))
	for id := 1; id <= b.nextID; id++ {
		if _, ok := b.handlers[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

type brokerSubscription struct {
	broker *Broker
	id     int
}

func (s *brokerSubscription) Unsubscribe() error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	delete(s.broker.handlers, s.id)
	return nil
}
