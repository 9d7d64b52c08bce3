// Package main запускает HTTP-сервер витрины.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/storefront/internal/config"
	"github.com/mmeshcher/storefront/internal/fulfillment"
	"github.com/mmeshcher/storefront/internal/handler"
	"github.com/mmeshcher/storefront/internal/middleware"
	"github.com/mmeshcher/storefront/internal/notify"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/service"
	"github.com/mmeshcher/storefront/internal/storage"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := newRepository(cfg)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	opts := service.Options{
		Logger:        logger,
		AdminPassword: cfg.AdminPassword,
	}

	if cfg.RedisAddress != "" {
		broker, err := notify.NewRedisBroker(cfg.RedisAddress, cfg.RedisPassword, cfg.RedisChannel)
		if err != nil {
			sugar.Fatalw("redis initialization error", "error", err.Error())
		}
		opts.Broker = broker
	}

	if cfg.ObjectStore.Endpoint != "" {
		store, err := storage.NewMinioStore(cfg.ObjectStore.Endpoint, cfg.ObjectStore.AccessKey,
			cfg.ObjectStore.SecretKey, cfg.ObjectStore.Bucket, cfg.ObjectStore.UseSSL)
		if err != nil {
			sugar.Fatalw("object store initialization error", "error", err.Error())
		}
		opts.Proofs = store
	}

	if cfg.FulfillmentSystemAddress != "" {
		opts.Fulfillment = fulfillment.NewClient(cfg.FulfillmentSystemAddress)
	}

	svc := service.NewService(repo, opts)
	defer svc.Close()

	seed, err := service.LoadCatalogSeed(cfg.CatalogSeedFile)
	if err != nil {
		sugar.Fatalw("catalog seed error", "error", err.Error())
	}
	seeded, err := svc.SeedCatalog(context.Background(), seed)
	if err != nil {
		sugar.Fatalw("catalog seed error", "error", err.Error())
	}
	if seeded > 0 {
		sugar.Infow("catalog seeded", "products", seeded)
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	if cfg.AuthSecret == "" {
		sugar.Warn("AUTH_SECRET is not set, sessions will not survive a restart")
	}
	h := handler.NewHandler(svc, logger, authMiddleware, cfg.PollInterval)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server.RegisterOnShutdown(h.CloseStreams)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Опрос системы исполнения заказов
	g.Go(func() error {
		svc.StartFulfillmentUpdates(ctx)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting storefront server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

func newRepository(cfg *config.Config) (service.Repository, error) {
	if cfg.DatabaseURI == "" {
		return repository.NewMemoryRepository(), nil
	}
	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		return nil, err
	}
	return repo, nil
}
