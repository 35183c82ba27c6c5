package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/app"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/config"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/http"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers questions about insurance documents using hybrid keyword and semantic retrieval.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: GoldKey Chat API
//   description: |
//     Document chat API. Questions are answered from the shared system library or from the
//     caller's own uploads. The caller is identified by the X-User-ID header set upstream.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		_ = a.Close()
	}()

	// A missing model is reported but not fatal; the gateway may load it on demand.
	if err := a.CheckModels(ctx); err != nil {
		slog.Warn("LLM gateway model check failed", "model", cfg.LLMModelName, "error", err)
	}

	router := http.NewRouter(a.RouterDeps())

	if cfg.SystemDocsPath != "" {
		go func() {
			slog.Info("Starting background sync of system library", "path", cfg.SystemDocsPath)
			res, err := a.Syncer.Sync(ctx)
			if err != nil {
				slog.Error("Library sync completed with errors", "error", err, "failed", res.Failed)
				return
			}
			slog.Info("Library sync completed", "indexed", res.Indexed, "reindexed", res.Reindexed, "unchanged", res.Unchanged)
		}()
	}

	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		log.Fatalf("API server failed: %v", err)
	}
}
