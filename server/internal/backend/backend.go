// Package backend opens the task store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"

	"github.com/obsidianstack/taskapi/server/internal/config"
	"github.com/obsidianstack/taskapi/server/internal/store"
	dynamostore "github.com/obsidianstack/taskapi/server/internal/store/dynamodb"
	natsstore "github.com/obsidianstack/taskapi/server/internal/store/nats"
	pgstore "github.com/obsidianstack/taskapi/server/internal/store/postgres"
	redisstore "github.com/obsidianstack/taskapi/server/internal/store/redis"
)

// Open connects to the configured backend. The returned func releases its
// connections and is never nil on success.
func Open(ctx context.Context, cfg config.StoreConfig) (store.Store, func(), error) {
	table := cfg.EffectiveTable()
	url := cfg.URL()
	log := slog.Default().With("backend", cfg.Backend, "table", table)

	switch cfg.Backend {
	case config.BackendMemory, "":
		log.Info("backend: using in-memory store")
		return store.NewMemory(), func() {}, nil

	case config.BackendRedis:
		if url == "" {
			return nil, nil, fmt.Errorf("backend: redis: %s unset: %w", cfg.URLEnv, store.ErrNotConfigured)
		}
		opts, err := goredis.ParseURL(url)
		if err != nil {
			return nil, nil, fmt.Errorf("backend: redis: parse url: %w", err)
		}
		client := goredis.NewClient(opts)
		s := redisstore.New(client, table, redisstore.WithLogger(log))
		if err := s.Ping(ctx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("backend: redis: ping: %w", err)
		}
		log.Info("backend: connected", "addr", opts.Addr)
		return s, func() { client.Close() }, nil

	case config.BackendPostgres:
		if url == "" {
			return nil, nil, fmt.Errorf("backend: postgres: %s unset: %w", cfg.URLEnv, store.ErrNotConfigured)
		}
		s, err := pgstore.New(ctx, url, table, pgstore.WithLogger(log))
		if err != nil {
			return nil, nil, fmt.Errorf("backend: %w", err)
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("backend: %w", err)
		}
		log.Info("backend: connected")
		return s, s.Close, nil

	case config.BackendNATS:
		if url == "" {
			url = nats.DefaultURL
		}
		conn, err := nats.Connect(url, nats.Name("taskapi"))
		if err != nil {
			return nil, nil, fmt.Errorf("backend: nats: connect: %w", err)
		}
		s, err := natsstore.New(ctx, conn, table, natsstore.WithLogger(log))
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("backend: %w", err)
		}
		log.Info("backend: connected", "url", conn.ConnectedUrlRedacted())
		return s, func() { _ = conn.Drain() }, nil

	case config.BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("backend: dynamodb: load aws config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if url != "" {
				o.BaseEndpoint = aws.String(url)
			}
		})
		log.Info("backend: using dynamodb", "region", awsCfg.Region, "endpoint", url)
		return dynamostore.New(client, table, dynamostore.WithLogger(log)), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("backend: unknown backend %q", cfg.Backend)
	}
}
