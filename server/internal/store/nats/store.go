// Package nats implements store.Store on a NATS JetStream key-value bucket.
//
// KV keys only admit [-/_=.a-zA-Z0-9], so each task ID is stored under its
// unpadded base64url encoding. Scans list every key, decode and sort them,
// and resume after the cursor ID.
package nats

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/obsidianstack/taskapi/pkg/types"
	"github.com/obsidianstack/taskapi/server/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store implements store.Store backed by a JetStream KV bucket.
type Store struct {
	kv     jetstream.KeyValue
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates or binds the KV bucket on conn. The caller owns conn.
func New(ctx context.Context, conn *nats.Conn, bucket string, opts ...Option) (*Store, error) {
	if conn == nil {
		return nil, errors.New("nats: nil connection")
	}

	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("nats: create jetstream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "task records keyed by taskId",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("nats: create kv bucket %q: %w", bucket, err)
	}

	return NewFromKeyValue(kv, opts...), nil
}

// NewFromKeyValue wraps an existing bucket.
func NewFromKeyValue(kv jetstream.KeyValue, opts ...Option) *Store {
	s := &Store{kv: kv, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func encodeKey(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

func decodeKey(key string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(key)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted)
}

// Put writes the record under its taskId.
func (s *Store) Put(ctx context.Context, t types.Task) error {
	id, err := store.KeyOf(t)
	if err != nil {
		return err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("nats: encode %q: %w", id, err)
	}
	if _, err := s.kv.Put(ctx, encodeKey(id), data); err != nil {
		return fmt.Errorf("nats: put %q: %w", id, err)
	}
	return nil
}

// Get returns the record stored under id.
func (s *Store) Get(ctx context.Context, id string) (types.Task, bool, error) {
	entry, err := s.kv.Get(ctx, encodeKey(id))
	if isNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("nats: get %q: %w", id, err)
	}
	t, err := types.DecodeTask(entry.Value())
	if err != nil {
		return nil, false, fmt.Errorf("nats: decode %q: %w", id, err)
	}
	return t, true, nil
}

// Delete places a delete marker for id. Absent keys are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.kv.Delete(ctx, encodeKey(id)); err != nil && !isNotFound(err) {
		return fmt.Errorf("nats: delete %q: %w", id, err)
	}
	return nil
}

// Scan lists the bucket, then reads each record after the cursor in ID order.
func (s *Store) Scan(ctx context.Context, in store.ScanInput) (store.Page, error) {
	after, err := store.StartAfter(in)
	if err != nil {
		return store.Page{}, err
	}

	ids, err := s.ids(ctx)
	if err != nil {
		return store.Page{}, err
	}
	i := sort.SearchStrings(ids, after)
	if i < len(ids) && ids[i] == after {
		i++
	}
	ids = ids[i:]

	page := store.Page{Items: []types.Task{}}
	for n, id := range ids {
		if in.Limit > 0 && len(page.Items) == in.Limit {
			// ids[n] is unread, so the collection is not exhausted.
			page.LastKey = types.CursorFor(ids[n-1])
			break
		}
		t, ok, err := s.Get(ctx, id)
		if err != nil {
			return store.Page{}, err
		}
		if !ok {
			s.logger.Debug("nats: listed task vanished", "task_id", id)
			continue
		}
		page.Items = append(page.Items, t)
	}
	return page, nil
}

// ids returns every live task ID in ascending order.
func (s *Store) ids(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("nats: list keys: %w", err)
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		id, err := decodeKey(k)
		if err != nil {
			s.logger.Warn("nats: skipping foreign key", "key", k)
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
