package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lzbgt/saint-cai-crawler/internal/api"
	"github.com/lzbgt/saint-cai-crawler/internal/config"
	"github.com/lzbgt/saint-cai-crawler/internal/imagestore"
	"github.com/lzbgt/saint-cai-crawler/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients. The image store is optional: without it, jobs
	// fall back to the image mapping supplied in the request.
	var images *imagestore.Client
	if cfg.ImageStoreURL != "" {
		images = imagestore.NewClient(cfg.ImageStoreURL, cfg.ImageStoreAPIKey, cfg.ResolveTimeout)
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, images, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if images != nil {
			images.Close()
		}
	}()

	log.Info("starting chapter parser", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
