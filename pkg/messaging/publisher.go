// Package messaging defines the cart event contract and its subjects.
package messaging

import (
	"context"
)

const (
	CartsHydratedSubject = "carts.hydrated"
	CartsClearedSubject  = "carts.cleared"
	// CartsSubjects is the wildcard bound to the cart event stream.
	CartsSubjects = "carts.>"
)

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

// Identified events carry an id the broker uses to drop redelivered publishes.
type Identified interface {
	EventID() string
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher drops every event. Used when events are disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
