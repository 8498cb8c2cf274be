// Second Brain server - exposes the recall pipeline and agent fleet over
// HTTP and MCP, backed by semantic memory and Postgres with pgvector.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ryanjosebrosas/second-brain/pkg/api"
	"github.com/ryanjosebrosas/second-brain/pkg/config"
	"github.com/ryanjosebrosas/second-brain/pkg/deps"
	"github.com/ryanjosebrosas/second-brain/pkg/mcpserver"
	"github.com/ryanjosebrosas/second-brain/pkg/version"
)

func main() {
	mcpMode := flag.Bool("mcp", false, "serve MCP over stdio instead of HTTP")
	envFile := flag.String("env-file", ".env", "path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		slog.Debug("no .env file loaded", "path", *envFile, "error", err)
	}

	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("starting second-brain", "version", version.Full())

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, initErr := deps.CreateDeps(ctx, cfg)
	if initErr != nil {
		// The HTTP server still starts so the health endpoint can report
		// unhealthy; the raw error stays in the logs.
		slog.Error("initialization failed", "error", initErr)
		if *mcpMode {
			os.Exit(1)
		}
	} else {
		defer d.Close()
	}

	if *mcpMode {
		if err := mcpserver.ServeStdio(ctx, d); err != nil {
			slog.Error("mcp server exited", "error", err)
			os.Exit(1)
		}
		return
	}

	server := api.NewServer(d, initErr != nil, cfg.HTTPPort)

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
