// Command api runs the book API as a plain HTTP server for local
// development, authenticating callers with HS256 bearer tokens.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heinscr/books-library/infrastructure/config"
	"github.com/heinscr/books-library/infrastructure/di"
	"github.com/heinscr/books-library/interfaces/http/rest"
	"github.com/heinscr/books-library/interfaces/http/rest/middleware"
	"github.com/heinscr/books-library/pkg/auth"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Sync()
	logger := container.Logger

	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
	})
	if err != nil {
		logger.Fatal("JWT_SECRET is required for the local server", zap.Error(err))
	}

	router := rest.NewRouter(
		container.BookService,
		container.ErrorHandler,
		rest.Identity(middleware.BearerIdentity(validator, container.ErrorHandler)),
		rest.Observability{
			Collector: container.Collector,
			Metrics:   container.Metrics,
			Tracer:    container.Tracer,
		},
		logger,
	)

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("object_store", cfg.ObjectStore),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
}
