package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/abgdnv/gocommerce/cart_service/internal/hydration"
	"github.com/abgdnv/gocommerce/cart_service/pkg/config"
	"github.com/abgdnv/gocommerce/cart_service/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	AuthJWT      = "jwt"
	AuthKeycloak = "keycloak"

	RemoteHTTP      = "http"
	RemoteFirestore = "firestore"

	SessionLocal = "local"
	SessionNATS  = "nats"
)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	GrpcServer config.GrpcServerConfig `koanf:"grpc"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Storage    StorageConfig           `koanf:"storage"`
	Database   config.DatabaseConfig   `koanf:"database"`
	Hydration  HydrationConfig         `koanf:"hydration"`
	Auth       AuthConfig              `koanf:"auth"`
	Remote     RemoteConfig            `koanf:"remote"`
	Session    SessionConfig           `koanf:"session"`
	Nats       config.NATSConfig       `koanf:"nats"`
	Events     EventsConfig            `koanf:"events"`
}

type StorageConfig struct {
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
}

type HydrationConfig struct {
	Timeout        time.Duration `koanf:"timeout"`
	GuestPolicy    string        `koanf:"guestpolicy"`
	LoginPolicy    string        `koanf:"loginpolicy"`
	ConflictPolicy string        `koanf:"conflictpolicy"`
}

// Options converts the section into hydration options.
func (c HydrationConfig) Options() hydration.Options {
	return hydration.Options{
		Timeout:  c.Timeout,
		Guest:    hydration.GuestPolicy(c.GuestPolicy),
		Login:    hydration.LoginPolicy(c.LoginPolicy),
		Conflict: hydration.ConflictPolicy(c.ConflictPolicy),
	}
}

type AuthConfig struct {
	Provider string                `koanf:"provider"`
	IdP      config.IdP            `koanf:"idp"`
	Keycloak config.KeycloakConfig `koanf:"keycloak"`
}

type RemoteConfig struct {
	Provider       string                      `koanf:"provider"`
	HTTP           config.RemoteHTTPConfig     `koanf:"http"`
	CircuitBreaker config.CircuitBreakerConfig `koanf:"circuitbreaker"`
	Firestore      config.FirestoreConfig      `koanf:"firestore"`
}

type SessionConfig struct {
	Provider   string                  `koanf:"provider"`
	Subscriber config.SubscriberConfig `koanf:"subscriber"`
}

type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Stream  string `koanf:"stream"`
}

// Defaults are applied below config.yaml, .env and the environment.
func Defaults() map[string]any {
	return map[string]any{
		"server.port":                               8080,
		"server.maxHeaderBytes":                     1 << 20,
		"server.timeout.read":                       "5s",
		"server.timeout.write":                      "15s",
		"server.timeout.idle":                       "60s",
		"server.timeout.readHeader":                 "2s",
		"grpc.port":                                 9090,
		"log.level":                                 "info",
		"shutdown.timeout":                          "10s",
		"storage.driver":                            StorageSQLite,
		"storage.path":                              "cart.db",
		"hydration.timeout":                         hydration.DefaultTimeout.String(),
		"hydration.guestpolicy":                     string(hydration.GuestClear),
		"hydration.loginpolicy":                     string(hydration.LoginReplace),
		"hydration.conflictpolicy":                  string(hydration.LastWriterWins),
		"auth.provider":                             AuthJWT,
		"auth.idp.mininterval":                      "15m",
		"remote.provider":                           RemoteHTTP,
		"remote.http.timeout":                       "5s",
		"remote.circuitbreaker.consecutivefailures": 5,
		"remote.circuitbreaker.errorratepercent":    50,
		"remote.circuitbreaker.opentimeout":         "30s",
		"remote.firestore.collection":               config.DefaultCartCollection,
		"session.provider":                          SessionLocal,
		"session.subscriber.subject":                "session.events",
		"database.timeout":                          "5s",
		"nats.timeout":                              "5s",
		"events.stream":                             "CARTS",
	}
}

// Load reads the cart configuration. Empty paths use config.yaml and .env.
func Load(configFile, envFile string) (*Config, error) {
	return configloader.Load[*Config]("cart",
		configloader.WithConfigFile(configFile),
		configloader.WithEnvFile(envFile),
		configloader.WithDefaults(Defaults()),
	)
}

// NeedsNATS reports whether any component talks to NATS.
func (c *Config) NeedsNATS() bool {
	return c.Session.Provider == SessionNATS || c.Events.Enabled
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.GrpcServer.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.Telemetry.String())

	b.WriteString(config.NewSection("Storage").
		Field("driver", c.Storage.Driver).
		Field("path", c.Storage.Path).
		String())
	if c.Storage.Driver == StoragePostgres {
		b.WriteString(c.Database.String())
	}

	b.WriteString(config.NewSection("Hydration").
		Field("timeout", c.Hydration.Timeout).
		Field("guestpolicy", c.Hydration.GuestPolicy).
		Field("loginpolicy", c.Hydration.LoginPolicy).
		Field("conflictpolicy", c.Hydration.ConflictPolicy).
		String())

	b.WriteString(config.NewSection("Auth").Field("provider", c.Auth.Provider).String())
	switch c.Auth.Provider {
	case AuthJWT:
		b.WriteString(c.Auth.IdP.String())
	case AuthKeycloak:
		b.WriteString(c.Auth.Keycloak.String())
	}

	b.WriteString(config.NewSection("Remote Cart").Field("provider", c.Remote.Provider).String())
	switch c.Remote.Provider {
	case RemoteHTTP:
		b.WriteString(c.Remote.HTTP.String())
		b.WriteString(c.Remote.CircuitBreaker.String())
	case RemoteFirestore:
		b.WriteString(c.Remote.Firestore.String())
	}

	b.WriteString(config.NewSection("Session").Field("provider", c.Session.Provider).String())
	if c.Session.Provider == SessionNATS {
		b.WriteString(c.Session.Subscriber.String())
	}
	if c.NeedsNATS() {
		b.WriteString(c.Nats.String())
	}

	b.WriteString(config.NewSection("Events").
		Field("enabled", c.Events.Enabled).
		Field("stream", c.Events.Stream).
		String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.GrpcServer.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.Hydration.Options().Validate(); err != nil {
		return fmt.Errorf("hydration: %w", err)
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if c.NeedsNATS() {
		if err := c.Nats.Validate(); err != nil {
			return err
		}
	}
	if c.Events.Enabled && c.Events.Stream == "" {
		return fmt.Errorf("events.stream is not configured")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case StorageSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is not configured")
		}
	case StoragePostgres:
		return c.Database.Validate()
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage driver: %s", c.Storage.Driver)
	}
	return nil
}

func (c *Config) validateAuth() error {
	switch c.Auth.Provider {
	case AuthJWT:
		return c.Auth.IdP.Validate()
	case AuthKeycloak:
		return c.Auth.Keycloak.Validate()
	default:
		return fmt.Errorf("unknown auth provider: %s", c.Auth.Provider)
	}
}

func (c *Config) validateRemote() error {
	switch c.Remote.Provider {
	case RemoteHTTP:
		if err := c.Remote.HTTP.Validate(); err != nil {
			return err
		}
		return c.Remote.CircuitBreaker.Validate()
	case RemoteFirestore:
		return c.Remote.Firestore.Validate()
	default:
		return fmt.Errorf("unknown remote provider: %s", c.Remote.Provider)
	}
}

func (c *Config) validateSession() error {
	switch c.Session.Provider {
	case SessionLocal:
		return nil
	case SessionNATS:
		return c.Session.Subscriber.Validate()
	default:
		return fmt.Errorf("unknown session provider: %s", c.Session.Provider)
	}
}
