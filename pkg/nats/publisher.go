// Package nats connects to NATS and publishes cart events to JetStream.
package nats

import (
	"context"
	"fmt"

	"github.com/abgdnv/gocommerce/cart_service/pkg/messaging"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamPublisher publishes events to a JetStream stream and waits for the ack.
// Identified events are published with their id as Nats-Msg-Id, so a retried
// publish inside the stream's duplicate window is stored once.
type JetStreamPublisher struct {
	js jetstream.JetStream
}

func NewJetStreamPublisher(js jetstream.JetStream) *JetStreamPublisher {
	return &JetStreamPublisher{js: js}
}

func (p *JetStreamPublisher) Publish(ctx context.Context, event messaging.Event) error {
	data, err := event.Payload()
	if err != nil {
		return fmt.Errorf("failed to get event payload: %w", err)
	}
	var opts []jetstream.PublishOpt
	if identified, ok := event.(messaging.Identified); ok && identified.EventID() != "" {
		opts = append(opts, jetstream.WithMsgID(identified.EventID()))
	}
	if _, err = p.js.Publish(ctx, event.Subject(), data, opts...); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Subject(), err)
	}
	return nil
}
