package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/strataworks/geoassist/internal/adapters/mcp"
	"github.com/strataworks/geoassist/internal/bootstrap"
	"github.com/strataworks/geoassist/internal/config"
	"github.com/strataworks/geoassist/internal/observability/logging"
)

const serviceName = "mcp"

func main() {
	cfg := config.Load()
	// Stdout carries the MCP protocol; logs go to stderr.
	logging.SetupWithWriter(os.Stderr, serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{})
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server := mcpadapter.NewServer(app.Search)
	slog.Info("mcp server listening on stdio")
	if err := server.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
