package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/casewise/docintel/internal/adapters/http"
	"github.com/casewise/docintel/internal/bootstrap"
	"github.com/casewise/docintel/internal/config"
	"github.com/casewise/docintel/internal/observability/logging"
	"github.com/casewise/docintel/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.NewJSONLogger("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	m := metrics.NewHTTPServerMetrics("api")
	router := httpadapter.NewRouter(cfg, httpadapter.Services{
		Ingest:    app.Ingest,
		Documents: app.Documents,
		Queue:     app.Queue,
		Indexer:   app.Indexer,
		Search:    app.Search,
		Discovery: app.Discovery,
	}, m, log)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("api server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("api shutdown", "error", err)
	}
}
