package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/obsidianstack/taskapi/pkg/types"
	"github.com/obsidianstack/taskapi/server/internal/store"
)

var _ store.Store = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store implements store.Store backed by Redis.
type Store struct {
	client goredis.Cmdable
	prefix string
	logger *slog.Logger
}

// New creates a Redis-backed store whose keys start with prefix. The caller
// owns the Redis client lifecycle.
func New(client goredis.Cmdable, prefix string, opts ...Option) *Store {
	s := &Store{client: client, prefix: prefix, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Put writes the record and indexes its ID in one transaction.
func (s *Store) Put(ctx context.Context, t types.Task) error {
	id, err := store.KeyOf(t)
	if err != nil {
		return err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("redis: encode %q: %w", id, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.itemKey(id), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), goredis.Z{Score: 0, Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: put %q: %w", id, err)
	}
	return nil
}

// Get returns the record stored under id.
func (s *Store) Get(ctx context.Context, id string) (types.Task, bool, error) {
	data, err := s.client.Get(ctx, s.itemKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get %q: %w", id, err)
	}
	t, err := types.DecodeTask(data)
	if err != nil {
		return nil, false, fmt.Errorf("redis: decode %q: %w", id, err)
	}
	return t, true, nil
}

// Delete removes the record and its index entry. Absent keys are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.itemKey(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete %q: %w", id, err)
	}
	return nil
}

// Scan reads IDs from the index after the cursor key, then fetches their
// records with MGET. One extra ID is read to decide whether a LastKey is due.
func (s *Store) Scan(ctx context.Context, in store.ScanInput) (store.Page, error) {
	after, err := store.StartAfter(in)
	if err != nil {
		return store.Page{}, err
	}

	rng := &goredis.ZRangeBy{Min: "-", Max: "+"}
	if in.StartKey != nil {
		rng.Min = "(" + after
	}
	if in.Limit > 0 {
		rng.Count = int64(in.Limit) + 1
	}

	ids, err := s.client.ZRangeByLex(ctx, s.indexKey(), rng).Result()
	if err != nil {
		return store.Page{}, fmt.Errorf("redis: scan index: %w", err)
	}

	page := store.Page{Items: make([]types.Task, 0, len(ids))}
	if in.Limit > 0 && len(ids) > in.Limit {
		ids = ids[:in.Limit]
		page.LastKey = types.CursorFor(ids[len(ids)-1])
	}
	if len(ids) == 0 {
		return page, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.itemKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return store.Page{}, fmt.Errorf("redis: scan records: %w", err)
	}

	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Deleted between the index read and MGET.
			s.logger.Debug("redis: indexed task has no record", "task_id", ids[i])
			continue
		}
		t, err := types.DecodeTask([]byte(raw))
		if err != nil {
			return store.Page{}, fmt.Errorf("redis: decode %q: %w", ids[i], err)
		}
		page.Items = append(page.Items, t)
	}
	return page, nil
}
