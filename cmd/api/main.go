package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	httpadapter "github.com/strataworks/geoassist/internal/adapters/http"
	"github.com/strataworks/geoassist/internal/bootstrap"
	"github.com/strataworks/geoassist/internal/config"
	"github.com/strataworks/geoassist/internal/observability/logging"
	"github.com/strataworks/geoassist/internal/observability/metrics"
)

const serviceName = "api"

func main() {
	cfg := config.Load()
	logging.Setup(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		EmbedCacheLookup: func(hit bool) { m.RecordEmbedCacheLookup(serviceName, hit) },
	})
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	handler := httpadapter.NewRouter(cfg, app.Ask, app.Search, app.Search, m).Handler()
	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		slog.Error("listen failed", "port", cfg.APIPort, "error", err)
		os.Exit(1)
	}
	if cfg.APIMaxInFlight > 0 {
		// Cap TCP connections at twice the request admission limit.
		listener = netutil.LimitListener(listener, cfg.APIMaxInFlight*2)
	}

	go func() {
		slog.Info("api listening", "addr", listener.Addr().String())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown error", "error", err)
	}
}
