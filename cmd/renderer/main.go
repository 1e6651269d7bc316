// Command renderer decodes a stream (or synthesizes one), presents the
// newest frame with its telemetry HUD at display cadence, and serves
// latency telemetry, snapshots and metrics over HTTP.
package main

import (
	"context"
	"flag"
	stdlog "log"
	_ "net/http/pprof" // registers on http.DefaultServeMux, served with -pprof
	"os"
	"os/signal"
	"syscall"

	"github.com/denis-giri/pdraw/internal/logger"
)

func main() {
	cfg := DefaultConfig()
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		stdlog.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, cfg.LogColor)

	log.Info("Renderer starting...")
	log.Info("Log level: %s", level)

	a, err := newApp(cfg)
	if err != nil {
		stdlog.Fatalf("Failed to start: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := a.run(ctx)
	log.Info("Shutting down...")
	if err := a.close(); err != nil {
		log.Warn("Error during shutdown: %v", err)
	}
	if runErr != nil {
		log.Error("Renderer stopped: %v", runErr)
		os.Exit(1)
	}
	log.Info("Renderer stopped")
}
