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

	"comment-extractor/internal/adapter/httpapi"
	"comment-extractor/internal/di"
	"comment-extractor/internal/infrastructure/env"
)

const shutdownTimeout = 15 * time.Second

func main() {
	envService := env.NewEnvService()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := di.NewContainer(ctx, di.ConfigFromEnv(envService, "server"))
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	defer container.Close()

	api := httpapi.New(httpapi.Deps{
		Extractor: container.Extractor,
		Documents: container.Documents,
		Store:     container.Store,
		Logger:    container.Logger,
		Metrics:   container.MetricsHandler(),
		AccessLog: envService.GetBool("HTTP_ACCESS_LOG", true),
	})

	srv := &http.Server{
		Addr:              envService.GetWithDefault("HTTP_ADDR", ":8080"),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		container.Logger.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			container.Logger.Error("server failed", "error", err)
		}
	case <-ctx.Done():
		container.Logger.Info("shutting down")
		container.Extractor.Cancel()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			container.Logger.Error("shutdown failed", "error", err)
		}
	}
}
