package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/itadmit/quickshop3-sub007/internal/handlers"
	"github.com/itadmit/quickshop3-sub007/internal/platform/config"
	pfirestore "github.com/itadmit/quickshop3-sub007/internal/platform/firestore"
	"github.com/itadmit/quickshop3-sub007/internal/platform/jobs"
	"github.com/itadmit/quickshop3-sub007/internal/platform/observability"
	firestoreRepo "github.com/itadmit/quickshop3-sub007/internal/repositories/firestore"
	"github.com/itadmit/quickshop3-sub007/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("pricing-api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	location, err := cfg.Store.Location()
	if err != nil {
		logger.Fatal("failed to load store timezone", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	var redemptionPublisher services.RedemptionPublisher
	var pubsubClient *pubsub.Client
	var redemptionTopic *pubsub.Topic
	if cfg.PubSub.Enabled {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		redemptionTopic = pubsubClient.Topic(cfg.PubSub.RedemptionTopic)
		redemptionPublisher, err = jobs.NewPubSubRedemptionPublisher(redemptionTopic)
		if err != nil {
			logger.Fatal("failed to initialise redemption publisher", zap.Error(err))
		}
	}
	defer func() {
		if redemptionTopic != nil {
			redemptionTopic.Stop()
		}
		if pubsubClient != nil {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}
	}()

	discountRepo, err := firestoreRepo.NewDiscountRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise discount repository", zap.Error(err))
	}
	cartRepo, err := firestoreRepo.NewCartRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise cart session repository", zap.Error(err))
	}
	usageRepo, err := firestoreRepo.NewUsageRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise usage repository", zap.Error(err))
	}

	engineDeps := services.CalculationEngineDeps{
		Discounts: discountRepo,
		Location:  location,
		Now:       time.Now,
		Logger:    zapEventLogger(logger.Named("pricing")),
	}
	if cfg.Features.EnableSessionCodeFallback {
		engineDeps.Carts = cartRepo
	}
	engine, err := services.NewCalculationEngine(engineDeps)
	if err != nil {
		logger.Fatal("failed to initialise calculation engine", zap.Error(err))
	}

	discountLookup, err := services.NewDiscountService(services.DiscountServiceDeps{
		Discounts: discountRepo,
		Clock:     time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise discount lookup", zap.Error(err))
	}

	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Usage:     usageRepo,
		Publisher: redemptionPublisher,
		Clock:     time.Now,
		Logger:    zapEventLogger(logger.Named("checkout")),
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}

	pricingHandlers := handlers.NewPricingHandlers(engine, discountLookup, cfg.Store.CurrencyExponent)
	internalHandlers := handlers.NewInternalOrderHandlers(checkoutService)

	healthOpts := []handlers.HealthOption{
		handlers.WithReadinessCheck("firestore", firestoreReadinessCheck(firestoreClient)),
	}
	if redemptionTopic != nil {
		topic := redemptionTopic
		healthOpts = append(healthOpts, handlers.WithReadinessCheck("pubsub", func(ctx context.Context) error {
			_, err := topic.Exists(ctx)
			return err
		}))
	}
	healthHandlers := handlers.NewHealthHandlers(healthOpts...)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger.Named("http")),
			observability.TraceMiddleware(cfg.Firestore.ProjectID),
			observability.RecoveryMiddleware(logger.Named("http")),
			observability.RequestLoggerMiddleware(cfg.Firestore.ProjectID),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithPublicRoutes(pricingHandlers.Routes),
		handlers.WithInternalRoutes(internalHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("pricing api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func zapEventLogger(logger *zap.Logger) func(context.Context, string, map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug("pricing log", zFields...)
	}
}

func firestoreReadinessCheck(client *firestore.Client) handlers.ReadinessCheck {
	return func(ctx context.Context) error {
		iter := client.Collections(ctx)
		_, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		return err
	}
}
