package config

import (
	"fmt"
	"time"
)

type NATSConfig struct {
	URL     string        `koanf:"url"`
	Name    string        `koanf:"name"`
	Timeout time.Duration `koanf:"timeout"`
}

func (c *NATSConfig) String() string {
	return NewSection("NATS").
		Field("url", c.URL).
		Field("name", c.Name).
		Field("timeout", c.Timeout).
		String()
}

func (c *NATSConfig) Validate() error {
	if err := requireValue("nats.url", c.URL); err != nil {
		return err
	}
	return requirePositive("nats.timeout", c.Timeout)
}

// SubscriberConfig is the core NATS subject carrying session events.
// PendingMsgs of 0 keeps the client library limit.
type SubscriberConfig struct {
	Subject     string `koanf:"subject"`
	PendingMsgs int    `koanf:"pendingmsgs"`
}

func (c *SubscriberConfig) String() string {
	return NewSection("Session Subscriber").
		Field("subject", c.Subject).
		Field("pendingmsgs", c.PendingMsgs).
		String()
}

func (c *SubscriberConfig) Validate() error {
	if err := requireValue("session.subscriber.subject", c.Subject); err != nil {
		return err
	}
	if c.PendingMsgs < 0 {
		return fmt.Errorf("session.subscriber.pendingmsgs must not be negative")
	}
	return nil
}
