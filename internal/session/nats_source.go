package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/abgdnv/gocommerce/cart_service/pkg/config"
	"github.com/nats-io/nats.go"
)

// NATSEventSource carries session events over a core NATS subject.
// Core NATS has no replay, which matches the no-replay contract for late subscribers.
type NATSEventSource struct {
	nc     *nats.Conn
	cfg    config.SubscriberConfig
	logger *slog.Logger
}

func NewNATSEventSource(nc *nats.Conn, cfg config.SubscriberConfig, logger *slog.Logger) *NATSEventSource {
	return &NATSEventSource{
		nc:     nc,
		cfg:    cfg,
		logger: logger.With("component", "nats_session_events", "subject", cfg.Subject),
	}
}

// Subscribe registers handler for events on the configured subject.
// NATS delivers a subscription's messages one at a time, in order.
func (s *NATSEventSource) Subscribe(handler Handler) (Subscription, error) {
	sub, err := s.nc.Subscribe(s.cfg.Subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			s.logger.Warn("Failed to decode session event", "error", err)
			return
		}
		if !event.Kind.Valid() {
			s.logger.Warn("Ignoring unknown session event", "kind", event.Kind)
			return
		}
		handler(context.Background(), event)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", s.cfg.Subject, err)
	}
	if s.cfg.PendingMsgs > 0 {
		if err := sub.SetPendingLimits(s.cfg.PendingMsgs, -1); err != nil {
			_ = sub.Unsubscribe()
			return nil, fmt.Errorf("failed to set pending limits: %w", err)
		}
	}
	return sub, nil
}

func (s *NATSEventSource) Publish(_ context.Context, event Event) error {
	if !event.Kind.Valid() {
		return fmt.Errorf("unknown session event kind %q", event.Kind)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode session event: %w", err)
	}
	if err := s.nc.Publish(s.cfg.Subject, data); err != nil {
		return fmt.Errorf("failed to publish session event: %w", err)
	}
	return nil
}
