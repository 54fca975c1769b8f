package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"memdomain/internal/memdomain"
	"memdomain/internal/memdomain/handler"
	"memdomain/internal/memdomain/metrics"
	"memdomain/internal/platform/config"
	"memdomain/internal/platform/httpserver"
	"memdomain/internal/platform/logger"
	"memdomain/internal/providers/dmaengine"
	"memdomain/internal/providers/rdmasim"
)

// main wires the registry, the built-in providers and the introspection
// surface, and keeps the process lifecycle small. Domain semantics live in the
// internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	registry := memdomain.NewRegistry(
		memdomain.WithRegistryLogger(log),
		memdomain.WithRegistryMetrics(m),
	)

	rdma, err := rdmasim.Register(registry, rdmasim.NewBackend(),
		rdmasim.WithLogger(log))
	if err != nil {
		log.Error("failed to register rdma provider", "error", err.Error())
		os.Exit(1)
	}

	dma, err := dmaengine.New(registry, dmaengine.Config{
		Workers:    cfg.DMAWorkers,
		QueueDepth: cfg.DMAQueueDepth,
		ArenaBytes: cfg.DMAArenaBytes,
	}, dmaengine.WithLogger(log))
	if err != nil {
		log.Error("failed to start dma engine", "error", err.Error())
		os.Exit(1)
	}

	router := chi.NewRouter()
	handler.New(registry, log).Register(router)
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting memdomaind", "addr", cfg.Addr,
		"dma_workers", cfg.DMAWorkers, "dma_arena_bytes", cfg.DMAArenaBytes)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
	}

	dma.Close()
	rdma.Close()
}
