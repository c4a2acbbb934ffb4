package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/obsidianstack/taskapi/pkg/types"
	"github.com/obsidianstack/taskapi/server/internal/config"
	"github.com/obsidianstack/taskapi/server/internal/store"
)

func TestOpen_Memory(t *testing.T) {
	s, closeFn, err := Open(context.Background(), config.StoreConfig{Backend: config.BackendMemory})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()
	if _, ok := s.(*store.Memory); !ok {
		t.Errorf("Open: got %T, want *store.Memory", s)
	}
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("TEST_BACKEND_REDIS_URL", "redis://"+mr.Addr()+"/0")

	s, closeFn, err := Open(context.Background(), config.StoreConfig{
		Backend: config.BackendRedis,
		Table:   "tasks",
		URLEnv:  "TEST_BACKEND_REDIS_URL",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()

	ctx := context.Background()
	if err := s.Put(ctx, types.Task{"taskId": "t"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !mr.Exists("tasks:item:t") {
		t.Error("record not written under the configured table prefix")
	}
}

func TestOpen_CloseReleasesRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("TEST_BACKEND_REDIS_URL", "redis://"+mr.Addr()+"/0")

	s, closeFn, err := Open(context.Background(), config.StoreConfig{
		Backend: config.BackendRedis,
		Table:   "tasks",
		URLEnv:  "TEST_BACKEND_REDIS_URL",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	closeFn()

	if err := s.Put(context.Background(), types.Task{"taskId": "t"}); err == nil {
		t.Error("Put after close: expected error from closed client")
	}
	if mr.Exists("tasks:item:t") {
		t.Error("record written after close")
	}
}

func TestOpen_MissingURL(t *testing.T) {
	for _, b := range []string{config.BackendRedis, config.BackendPostgres} {
		t.Run(b, func(t *testing.T) {
			t.Setenv("TEST_BACKEND_EMPTY_URL", "")
			_, _, err := Open(context.Background(), config.StoreConfig{
				Backend: b,
				Table:   "tasks",
				URLEnv:  "TEST_BACKEND_EMPTY_URL",
			})
			if !errors.Is(err, store.ErrNotConfigured) {
				t.Errorf("Open: got %v, want ErrNotConfigured", err)
			}
		})
	}
}

func TestOpen_Unknown(t *testing.T) {
	if _, _, err := Open(context.Background(), config.StoreConfig{Backend: "cassandra"}); err == nil {
		t.Error("Open: expected error for unknown backend")
	}
}
