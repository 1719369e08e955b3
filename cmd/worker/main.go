package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/casewise/docintel/internal/bootstrap"
	"github.com/casewise/docintel/internal/config"
	"github.com/casewise/docintel/internal/observability/logging"
	"github.com/casewise/docintel/internal/observability/metrics"
	"github.com/casewise/docintel/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	m := metrics.NewWorkerMetrics("worker")

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsServer := &http.Server{
		Addr:        ":" + cfg.WorkerMetricsPort,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err)
		}
	}()

	runner := worker.New(app.Queue, app.Indexer, app.Notifier, m, log, worker.Options{
		PollInterval:    cfg.WorkerPollInterval,
		BatchBudget:     cfg.WorkerBatchBudget,
		RateRPS:         cfg.WorkerRateRPS,
		CleanupInterval: cfg.WorkerCleanupInterval,
		RetentionDays:   cfg.QueueRetentionDays,
	})

	log.Info("worker started", "subject", cfg.NATSSubject, "poll_interval", cfg.WorkerPollInterval.String())
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker stopped", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
