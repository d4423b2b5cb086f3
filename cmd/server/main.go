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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tikserziku/welcome-to-visaginas/internal/ai"
	"github.com/tikserziku/welcome-to-visaginas/internal/artifact"
	"github.com/tikserziku/welcome-to-visaginas/internal/config"
	"github.com/tikserziku/welcome-to-visaginas/internal/handlers"
	"github.com/tikserziku/welcome-to-visaginas/internal/middleware"
	"github.com/tikserziku/welcome-to-visaginas/internal/notify"
	"github.com/tikserziku/welcome-to-visaginas/internal/pipeline"
	"github.com/tikserziku/welcome-to-visaginas/internal/service"
	"github.com/tikserziku/welcome-to-visaginas/internal/store"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	for _, dir := range []string{cfg.UploadDir, cfg.GeneratedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal("Failed to create directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	taskStore := store.New(logger)
	hub := notify.NewHub(logger)
	artifacts := artifact.NewStore(cfg.GeneratedDir, logger)

	aiClient := ai.NewClient(ai.Options{
		BaseURL:     cfg.OpenAIBaseURL,
		APIKey:      cfg.OpenAIAPIKey,
		VisionModel: cfg.VisionModel,
		ImageModel:  cfg.ImageModel,
		Timeout:     cfg.RequestTimeout,
	}, logger)

	processor := pipeline.New(taskStore, hub, aiClient, aiClient, aiClient, artifacts, logger)
	taskService := service.NewTaskService(taskStore, hub, processor, logger)
	handler := handlers.NewTaskHandler(taskService, processor, hub, cfg.UploadDir, cfg.DefaultStyle, logger)

	r := chi.NewRouter()
	r.Use(middleware.TraceID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recovery(logger))

	r.Post("/upload", handler.Upload)
	r.Get("/status/{taskID}", handler.Status)
	r.Get("/image-count", handler.ImageCount)
	r.Get("/events", handler.Events)
	r.Handle("/generated/*", http.StripPrefix("/generated/", http.FileServer(http.Dir(cfg.GeneratedDir))))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepTasks(ctx, taskStore, cfg.TaskTTL, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logger.Info("Server started", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
}

// sweepTasks evicts terminal tasks that outlived the TTL. In-flight
// tasks are never touched, so a long-running generation survives any
// number of sweeps.
func sweepTasks(ctx context.Context, taskStore *store.TaskStore, ttl time.Duration, logger *zap.Logger) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := taskStore.Sweep(ttl); removed > 0 {
				logger.Info("Swept terminal tasks", zap.Int("removed", removed))
			}
		}
	}
}
