package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Nerzal/gocloak/v13"
	"github.com/abgdnv/gocommerce/cart_service/internal/config"
	"github.com/abgdnv/gocommerce/cart_service/internal/remote"
	"github.com/abgdnv/gocommerce/cart_service/internal/session"
	"github.com/abgdnv/gocommerce/cart_service/internal/store"
	"github.com/abgdnv/gocommerce/cart_service/pkg/auth"
	"github.com/abgdnv/gocommerce/cart_service/pkg/bootstrap"
	"github.com/abgdnv/gocommerce/cart_service/pkg/messaging"
	natsclient "github.com/abgdnv/gocommerce/cart_service/pkg/nats"
	"github.com/nats-io/nats.go"
)

// OpenRecordStore opens the durable record store selected by storage.driver.
// The returned func releases it.
func OpenRecordStore(ctx context.Context, cfg *config.Config) (store.RecordStore, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		return store.NewMemoryRecordStore(), func() {}, nil
	case config.StorageSQLite:
		s, err := store.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.StoragePostgres:
		if err := store.Migrate(cfg.Database.URL); err != nil {
			return nil, nil, err
		}
		pool, err := bootstrap.NewDbPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create database connection pool: %w", err)
		}
		return store.NewPgRecordStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}

// NewAuthChecker builds the checker selected by auth.provider.
func NewAuthChecker(ctx context.Context, cfg *config.Config, tokens session.TokenSource, logger *slog.Logger) (session.AuthChecker, error) {
	switch cfg.Auth.Provider {
	case config.AuthJWT:
		verifier, err := auth.NewJWTVerifier(ctx, cfg.Auth.IdP)
		if err != nil {
			return nil, fmt.Errorf("failed to create JWT verifier: %w", err)
		}
		return session.NewJWTChecker(verifier, tokens, logger), nil
	case config.AuthKeycloak:
		client := gocloak.NewClient(cfg.Auth.Keycloak.URL)
		return session.NewKeycloakChecker(client, cfg.Auth.Keycloak, tokens, logger), nil
	default:
		return nil, fmt.Errorf("unknown auth provider: %s", cfg.Auth.Provider)
	}
}

// NewCartLoader builds the server cart loader selected by remote.provider.
func NewCartLoader(ctx context.Context, cfg *config.Config, tokens session.TokenSource, logger *slog.Logger) (remote.CartLoader, func(), error) {
	switch cfg.Remote.Provider {
	case config.RemoteHTTP:
		return remote.NewHTTPCartLoader(cfg.Remote.HTTP, cfg.Remote.CircuitBreaker, tokens, logger), func() {}, nil
	case config.RemoteFirestore:
		fs := cfg.Remote.Firestore
		client, err := remote.NewFirestoreClient(ctx, fs.ProjectID, fs.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		loader := remote.NewFirestoreCartLoader(remote.NewFirestoreReader(client, fs.Collection), logger)
		return loader, func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown remote provider: %s", cfg.Remote.Provider)
	}
}

// NewSessionBus returns the session event channel selected by session.provider.
func NewSessionBus(cfg *config.Config, nc *nats.Conn, logger *slog.Logger) (session.EventBus, error) {
	switch cfg.Session.Provider {
	case config.SessionLocal:
		return session.NewBroker(), nil
	case config.SessionNATS:
		if nc == nil {
			return nil, fmt.Errorf("nats session provider requires a NATS connection")
		}
		return session.NewNATSEventSource(nc, cfg.Session.Subscriber, logger), nil
	default:
		return nil, fmt.Errorf("unknown session provider: %s", cfg.Session.Provider)
	}
}

// NewEventPublisher returns the cart event publisher. Disabled events are dropped.
func NewEventPublisher(ctx context.Context, cfg *config.Config, nc *nats.Conn) (messaging.Publisher, error) {
	if !cfg.Events.Enabled {
		return messaging.NoopPublisher{}, nil
	}
	if nc == nil {
		return nil, fmt.Errorf("cart events require a NATS connection")
	}
	js, err := natsclient.NewJetStreamContext(nc)
	if err != nil {
		return nil, err
	}
	if err := natsclient.EnsureStream(ctx, js, cfg.Events.Stream, []string{messaging.CartsSubjects}); err != nil {
		return nil, err
	}
	return natsclient.NewJetStreamPublisher(js), nil
}
