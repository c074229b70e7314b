// Package app contains the application setup for the cart service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/gocommerce/cart_service/internal/config"
	"github.com/abgdnv/gocommerce/cart_service/internal/hydration"
	"github.com/abgdnv/gocommerce/cart_service/internal/reactor"
	"github.com/abgdnv/gocommerce/cart_service/internal/remote"
	"github.com/abgdnv/gocommerce/cart_service/internal/service"
	"github.com/abgdnv/gocommerce/cart_service/internal/session"
	"github.com/abgdnv/gocommerce/cart_service/internal/store"
	"github.com/abgdnv/gocommerce/cart_service/internal/transport/rest"
	"github.com/abgdnv/gocommerce/cart_service/pkg/messaging"
	"github.com/abgdnv/gocommerce/cart_service/pkg/server"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const ServiceName = "cart"

// Collaborators are the pluggable parts chosen by configuration.
type Collaborators struct {
	Records   store.RecordStore
	Holder    *session.Holder
	Auth      session.AuthChecker
	Loader    remote.CartLoader
	Bus       session.EventBus
	Publisher messaging.Publisher
	Hydration hydration.Options
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

type Dependencies struct {
	Store       *store.CartStore
	CartService service.CartService
	Mounts      *hydration.Mounts
	Sessions    *session.Manager
	Reactor     *reactor.Reactor
	Health      *health.Server
	Metrics     http.Handler
	Logger      *slog.Logger
}

// SetupDependencies reads the persisted cart once and builds the components around it.
// gRPC health reports NOT_SERVING until the first hydration pass settles.
func SetupDependencies(ctx context.Context, c Collaborators, logger *slog.Logger) (*Dependencies, error) {
	cartStore, err := store.NewCartStore(ctx, c.Records, logger)
	if err != nil {
		return nil, err
	}

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	opts := c.Hydration
	onSettled := opts.OnSettled
	opts.OnSettled = func() {
		hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		if onSettled != nil {
			onSettled()
		}
	}
	mounts := hydration.NewMounts(func() hydration.Attacher {
		return hydration.NewOrchestrator(cartStore, c.Auth, c.Loader, c.Publisher, opts, logger)
	}, logger)

	return &Dependencies{
		Store:       cartStore,
		CartService: service.NewService(cartStore, logger),
		Mounts:      mounts,
		Sessions:    session.NewManager(c.Holder, c.Auth, cartStore, c.Bus, logger),
		Reactor:     reactor.New(c.Bus, cartStore, c.Publisher, logger),
		Health:      hs,
		Metrics:     c.Metrics,
		Logger:      logger,
	}, nil
}

// Start attaches the sign-out reactor and mounts the initial view.
func (d *Dependencies) Start(ctx context.Context) (<-chan struct{}, error) {
	if err := d.Reactor.Attach(ctx); err != nil {
		return nil, fmt.Errorf("failed to attach reactor: %w", err)
	}
	_, done := d.Mounts.Mount(ctx)
	return done, nil
}

// Stop detaches every view and the reactor.
func (d *Dependencies) Stop() error {
	d.Mounts.Close()
	d.Health.Shutdown()
	return d.Reactor.Detach()
}

// SetupHttpHandler initializes the routes and middleware for the cart service.
// Used by tests to exercise the full HTTP surface.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics)
	}
	rest.NewHandler(deps.CartService, deps.Mounts, deps.Sessions, deps.Logger).RegisterRoutes(mux)
	return mux
}

// SetupHttpServer creates and configures an HTTP server for the cart service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(cfg.HTTPServer, ServiceName, SetupHttpHandler(deps))
}

// SetupGrpcServer creates the gRPC server carrying the health service.
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool) *grpc.Server {
	return server.NewGRPCServer(deps.Logger, reflectionEnabled, server.WithHealth(deps.Health))
}
