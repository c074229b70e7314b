// Package config holds the configuration sections shared by the cart binaries.
// Every section renders itself for the startup log and validates its values.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Section renders one configuration block as an indented key/value list.
type Section struct {
	b strings.Builder
}

func NewSection(title string) *Section {
	s := &Section{}
	s.b.WriteString("\n--- ")
	s.b.WriteString(title)
	s.b.WriteString(" ---\n")
	return s
}

// Field appends one key/value line.
func (s *Section) Field(key string, value any) *Section {
	fmt.Fprintf(&s.b, "  %s: %v\n", key, value)
	return s
}

// Secret appends a key whose value is never printed.
func (s *Section) Secret(key string, value string) *Section {
	if value == "" {
		return s.Field(key, "<not configured>")
	}
	return s.Field(key, "****")
}

func (s *Section) String() string {
	return s.b.String()
}

func validatePort(name string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid %s port: %d", name, port)
	}
	return nil
}

func requirePositive(key string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be greater than 0, got %v", key, d)
	}
	return nil
}

func requireValue(key, value string) error {
	if value == "" {
		return fmt.Errorf("%s is not configured", key)
	}
	return nil
}
