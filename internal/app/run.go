package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	_ "net/http/pprof"

	"github.com/abgdnv/gocommerce/cart_service/internal/config"
	"github.com/abgdnv/gocommerce/cart_service/internal/session"
	natsclient "github.com/abgdnv/gocommerce/cart_service/pkg/nats"
	"github.com/abgdnv/gocommerce/cart_service/pkg/telemetry"
	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"
)

// Run starts the HTTP, gRPC and pprof servers and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	providers, err := telemetry.Setup(ctx, ServiceName, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			logger.Error("Failed to shutdown telemetry providers", "error", err)
		}
	}()

	var nc *nats.Conn
	if cfg.NeedsNATS() {
		nc, err = natsclient.NewClient(cfg.Nats, logger)
		if err != nil {
			return err
		}
		defer nc.Close()
		logger.Info("Connected to NATS", "url", nc.ConnectedUrl())
	}

	records, closeRecords, err := OpenRecordStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open cart storage: %w", err)
	}
	defer closeRecords()

	holder := session.NewHolder()
	checker, err := NewAuthChecker(ctx, cfg, holder, logger)
	if err != nil {
		return err
	}
	loader, closeLoader, err := NewCartLoader(ctx, cfg, holder, logger)
	if err != nil {
		return err
	}
	defer closeLoader()
	bus, err := NewSessionBus(cfg, nc, logger)
	if err != nil {
		return err
	}
	publisher, err := NewEventPublisher(ctx, cfg, nc)
	if err != nil {
		return err
	}

	deps, err := SetupDependencies(ctx, Collaborators{
		Records:   records,
		Holder:    holder,
		Auth:      checker,
		Loader:    loader,
		Bus:       bus,
		Publisher: publisher,
		Hydration: cfg.Hydration.Options(),
		Metrics:   providers.MetricsHandler,
	}, logger)
	if err != nil {
		return err
	}
	if _, err := deps.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := deps.Stop(); err != nil {
			logger.Error("Failed to stop cart components", "error", err)
		}
	}()

	httpServer := SetupHttpServer(deps, cfg)
	grpcServer := SetupGrpcServer(deps, cfg.GrpcServer.ReflectionEnabled)
	pprofServer := &http.Server{Addr: cfg.PProf.Addr, ReadHeaderTimeout: cfg.HTTPServer.Timeout.ReadHeader}

	g, gCtx := errgroup.WithContext(ctx)

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Start the gRPC server
	g.Go(func() error {
		grpcAddr := fmt.Sprintf(":%d", cfg.GrpcServer.Port)
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port: %w", err)
		}
		logger.Info("gRPC server listening", slog.String("addr", grpcAddr))
		return grpcServer.Serve(lis)
	})
	// gracefully shutdown gRPC server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down gRPC server...")
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
			logger.Info("gRPC server stopped gracefully.")
			return nil
		case <-time.After(cfg.Shutdown.Timeout):
			logger.Warn("gRPC server graceful stop timed out. Forcing stop.")
			grpcServer.Stop()
			return fmt.Errorf("grpc server graceful stop timed out")
		}
	})

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}
