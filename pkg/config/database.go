package config

import (
	"fmt"
	"strings"
	"time"
)

// DatabaseConfig is the Postgres record store connection.
type DatabaseConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
	// MaxConns caps the pool. 0 keeps the pgx default.
	MaxConns int32 `koanf:"maxconns"`
}

func (c *DatabaseConfig) String() string {
	return NewSection("Database").
		Field("url", MaskURL(c.URL)).
		Field("timeout", c.Timeout).
		Field("maxconns", c.MaxConns).
		String()
}

func (c *DatabaseConfig) Validate() error {
	if err := requireValue("database.url", c.URL); err != nil {
		return err
	}
	if !strings.HasPrefix(c.URL, "postgres://") && !strings.HasPrefix(c.URL, "postgresql://") {
		return fmt.Errorf("database URL must start with 'postgres://': %s", MaskURL(c.URL))
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("database.maxconns must not be negative, got %d", c.MaxConns)
	}
	return requirePositive("database.timeout", c.Timeout)
}

// MaskURL hides the credentials part of a connection URL.
func MaskURL(url string) string {
	if url == "" {
		return "<not configured>"
	}
	if _, host, ok := strings.Cut(url, "@"); ok {
		scheme, _, _ := strings.Cut(url, "://")
		return scheme + "://****@" + host
	}
	return "****"
}
