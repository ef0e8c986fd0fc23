// transferd is the HTTP API server for color-transfer job orchestration.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"colorwerkz/internal/api"
	"colorwerkz/internal/config"
	"colorwerkz/internal/health"
	"colorwerkz/internal/method"
	"colorwerkz/internal/observability"
	"colorwerkz/internal/transfer"
	"colorwerkz/internal/worker"
	"colorwerkz/internal/worker/docker"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("Service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg := config.LoadServiceConfig()

	// Setup metrics
	metrics, metricsHandler, err := observability.NewMetrics(ctx)
	if err != nil {
		return err
	}

	// Load method profiles
	profiles := method.Defaults()
	if cfg.MethodsFile != "" {
		profiles, err = method.LoadFile(cfg.MethodsFile, cfg.DefaultTimeout)
		if err != nil {
			return fmt.Errorf("failed to load methods file: %w", err)
		}
		slog.Info("Loaded method profiles", "file", cfg.MethodsFile, "methods", len(profiles))
	}

	methodRouter, err := method.NewRouter(profiles)
	if err != nil {
		return err
	}

	// Create the worker runtime
	workerCfg := worker.Config{
		MaxOutputBytes: cfg.MaxOutputBytes,
		KillGrace:      cfg.KillGrace,
	}

	var invoker transfer.Invoker
	var readiness health.ReadinessChecker

	switch cfg.Runtime {
	case config.RuntimeDocker:
		dockerInvoker, err := docker.NewInvoker(docker.Config{
			Worker:       workerCfg,
			WorkspaceDir: cfg.WorkspaceDir,
			MemoryMB:     cfg.WorkerMemoryMB,
		})
		if err != nil {
			return err
		}
		defer dockerInvoker.Close()
		invoker, readiness = dockerInvoker, dockerInvoker
		slog.Info("Connected to Docker daemon")
	case config.RuntimeExec:
		execInvoker := worker.NewExecInvoker(workerCfg, profiles)
		invoker, readiness = execInvoker, execInvoker
		slog.Info("Using process worker runtime")
	default:
		return fmt.Errorf("unknown worker runtime %q", cfg.Runtime)
	}

	// Create health checker
	healthChecker := health.NewChecker(readiness)

	// Create transfer service
	transferService := transfer.NewService(transfer.Config{
		Router:         methodRouter,
		Invoker:        invoker,
		BudgetMB:       cfg.BudgetMB,
		CostMultiplier: cfg.CostMultiplier,
		OutputDir:      cfg.WorkspaceDir,
		Metrics:        metrics,
	})

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		TransferService: transferService,
		MethodRouter:    methodRouter,
		Metrics:         metrics,
		HealthChecker:   healthChecker,
		APIKey:          cfg.APIKey,
	})

	if cfg.APIKey != "" {
		slog.Info("API authentication enabled")
	} else {
		slog.Warn("API authentication disabled - no API_KEY configured")
	}

	// Create API server
	apiServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Create metrics server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", metricsHandler)
	metricsServer := &http.Server{
		Addr:         ":" + cfg.MetricsPort,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Channel to capture server errors
	serverErr := make(chan error, 1)

	// Start API server
	go func() {
		slog.Info("Starting API server", "port", cfg.Port)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Start metrics server
	go func() {
		slog.Info("Starting metrics server", "port", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// shutdown closes both servers gracefully
	shutdown := func(timeout time.Duration) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server shutdown error", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server shutdown error", "error", err)
		}
	}

	// Wait for interrupt signal or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("Received shutdown signal", "signal", sig)
	case err := <-serverErr:
		slog.Error("Server failed to start", "error", err)
		shutdown(5 * time.Second)
		return err
	}

	// Phase 1: Mark service as unhealthy for load balancer draining
	healthChecker.SetShuttingDown()

	// Wait for load balancers to stop sending traffic
	if cfg.ShutdownDrainWait > 0 {
		slog.Info("Waiting for traffic to drain", "duration", cfg.ShutdownDrainWait)
		time.Sleep(cfg.ShutdownDrainWait)
	}

	// Phase 2: Graceful shutdown - stop accepting new connections, finish
	// in-flight transfers. The timeout must cover the longest job deadline
	// still running, so slow batches are given a generous window.
	slog.Info("Starting graceful shutdown")
	shutdown(25 * time.Second)

	slog.Info("Shutdown complete")
	return nil
}
