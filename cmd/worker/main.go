package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/strataworks/geoassist/internal/bootstrap"
	"github.com/strataworks/geoassist/internal/config"
	"github.com/strataworks/geoassist/internal/core/domain"
	"github.com/strataworks/geoassist/internal/observability/logging"
	"github.com/strataworks/geoassist/internal/observability/metrics"
)

const (
	serviceName   = "worker"
	recordTimeout = 30 * time.Second
)

func main() {
	cfg := config.Load()
	logging.Setup(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{})
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	m := metrics.NewWorkerMetrics(serviceName)
	metricsServer := startMetricsServer(cfg.WorkerMetricsPort, m)

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeAnswerRecorded(ctx, func(handlerCtx context.Context, record domain.AnswerRecord) error {
		m.StartRecord()
		start := time.Now()

		recordCtx, cancel := context.WithTimeout(handlerCtx, recordTimeout)
		defer cancel()
		recordErr := app.Recorder.Record(recordCtx, record)

		m.FinishRecord(serviceName, time.Since(start), recordErr)
		if !record.CreatedAt.IsZero() {
			m.ObserveQueueLag(serviceName, time.Since(record.CreatedAt))
		}
		return recordErr
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker subscription failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown error", "error", err)
	}
}

func startMetricsServer(port string, m *metrics.WorkerMetrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("worker metrics listening", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker metrics server error", "error", err)
		}
	}()
	return server
}
