// Command lambda serves the task API behind API Gateway. Configuration comes
// from the environment: TABLE_NAME, TASKS_STORE_BACKEND, TASKS_STORE_URL and
// LOG_LEVEL.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/obsidianstack/taskapi/server/internal/api"
	"github.com/obsidianstack/taskapi/server/internal/backend"
	"github.com/obsidianstack/taskapi/server/internal/config"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Server.Level()}))
	slog.SetDefault(logger)

	// One store handle per execution environment, shared by every invocation.
	// It is released when the runtime signals shutdown.
	st, closeStore, err := backend.Open(context.Background(), cfg.Server.Store)
	if err != nil {
		slog.Error("failed to open store", "err", err)
		os.Exit(1)
	}

	slog.Info("taskapi-lambda ready",
		"backend", cfg.Server.Store.Backend,
		"table", cfg.Server.Store.EffectiveTable(),
	)
	lambda.StartWithOptions(api.LambdaHandler(api.NewDispatcher(st)),
		lambda.WithEnableSIGTERM(func() {
			slog.Info("taskapi-lambda shutting down")
			closeStore()
		}),
	)
}
