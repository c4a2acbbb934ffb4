package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/obsidianstack/taskapi/server/internal/api"
	"github.com/obsidianstack/taskapi/server/internal/backend"
	"github.com/obsidianstack/taskapi/server/internal/config"
	"github.com/obsidianstack/taskapi/server/internal/metrics"
	"github.com/obsidianstack/taskapi/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// The level is swapped in place on config reload.
	var level slog.LevelVar
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &level}))
	slog.SetDefault(logger)

	slog.Info("taskapi-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.Server.Level())

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"log_level", cfg.Server.LogLevel,
		"backend", cfg.Server.Store.Backend,
		"table", cfg.Server.Store.EffectiveTable(),
		"feed", cfg.Server.Feed.Enabled,
		"metrics", cfg.Server.Metrics.Enabled,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, closeStore, err := backend.Open(ctx, cfg.Server.Store)
	if err != nil {
		slog.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	var opts []api.Option
	httpMux := http.NewServeMux()

	if cfg.Server.Metrics.Enabled {
		reg := metrics.New()
		opts = append(opts, api.WithRecorder(reg))
		httpMux.Handle(cfg.Server.Metrics.Path, reg)
	}

	// WebSocket feed: the first page of tasks every interval.
	if cfg.Server.Feed.Enabled {
		hub := ws.New(st, cfg.Server.Feed.Interval, cfg.Server.Feed.PageSize)
		go hub.Run(ctx)
		httpMux.Handle(config.FeedPath, hub)
	}

	// Everything else, unknown paths included, goes to the task API.
	httpMux.Handle("/", api.New(api.NewDispatcher(st), opts...))

	reloader := config.NewReloader(cfg, &level)
	go func() {
		err := config.Watch(ctx, *configPath, func(c *config.Config) { reloader.Apply(c) })
		if err != nil {
			slog.Warn("config watch stopped", "err", err)
		}
	}()

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("taskapi-server shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
