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

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/vintora/catalog-api/internal/di"
	"github.com/vintora/catalog-api/internal/handlers"
	"github.com/vintora/catalog-api/internal/platform/auth"
	"github.com/vintora/catalog-api/internal/platform/config"
	pfirestore "github.com/vintora/catalog-api/internal/platform/firestore"
	"github.com/vintora/catalog-api/internal/platform/jobs"
	"github.com/vintora/catalog-api/internal/platform/observability"
	"github.com/vintora/catalog-api/internal/repositories"
	firestoreRepo "github.com/vintora/catalog-api/internal/repositories/firestore"
)

// version is stamped at build time via -ldflags.
var version = "dev"

const shutdownTimeout = 15 * time.Second

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

	logger := baseLogger.Named("catalog-api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
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

	pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		logger.Fatal("failed to initialise pubsub client", zap.Error(err))
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logger.Warn("pubsub close error", zap.Error(err))
		}
	}()

	refreshTopic := pubsubClient.Topic(cfg.PubSub.IndexRefreshTopic)
	defer refreshTopic.Stop()

	publisher, err := jobs.NewPubSubIndexRefreshPublisher(refreshTopic)
	if err != nil {
		logger.Fatal("failed to initialise index refresh publisher", zap.Error(err))
	}

	healthRepo, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{
			Name: "firestore",
			Check: func(ctx context.Context) error {
				_, err := firestoreClient.Collections(ctx).Next()
				if errors.Is(err, iterator.Done) {
					return nil
				}
				return err
			},
		},
		{
			Name: "pubsub",
			Check: func(ctx context.Context) error {
				_, err := refreshTopic.Exists(ctx)
				return err
			},
		},
	})
	if err != nil {
		logger.Fatal("failed to initialise health checks", zap.Error(err))
	}

	registry, err := firestoreRepo.NewRegistry(firestoreProvider, healthRepo)
	if err != nil {
		logger.Fatal("failed to initialise repository registry", zap.Error(err))
	}

	verifier, err := auth.NewVerifier(cfg.Auth.SessionSecret, cfg.Auth.Issuer)
	if err != nil {
		if cfg.Environment != "local" {
			logger.Fatal("failed to initialise session verifier", zap.Error(err))
		}
		// Local runs without a configured secret keep the API up but reject
		// every authenticated request.
		logger.Warn("session verifier disabled", zap.Error(err))
		verifier = nil
	}

	container, err := di.NewContainer(ctx, di.Deps{
		Config:    cfg,
		Registry:  registry,
		Publisher: publisher,
		Logger:    logger,
		Version:   version,
	})
	if err != nil {
		logger.Fatal("failed to assemble services", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()

	router := handlers.NewRouter(handlers.RouterDeps{
		Logger:   logger,
		Verifier: verifier,
		Products: handlers.NewProductHandlers(container.Services.Edits, container.Locales),
		Tasks:    handlers.NewTaskHandlers(container.Services.Tasks, container.Messages),
		Health:   handlers.NewHealthHandlers(container.Services.System),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", server.Addr),
			zap.String("environment", cfg.Environment),
			zap.String("version", version),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Fatal("server error", zap.Error(err))
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		_ = server.Close()
	}
}
