package config

import (
	"log/slog"
	"sync"
)

// Reloader applies reloaded configuration to a running server. Only the log
// level is live. The store handle, listener, feed and metrics endpoint are
// built once at startup, so changes to them are reported and ignored.
type Reloader struct {
	level *slog.LevelVar

	mu      sync.Mutex
	running Config
}

// NewReloader returns a Reloader for a server started with cfg whose logger
// reads level.
func NewReloader(cfg *Config, level *slog.LevelVar) *Reloader {
	return &Reloader{level: level, running: *cfg}
}

// Apply sets the log level from next and returns the keys of settings that
// differ from the running server but need a restart.
func (r *Reloader) Apply(next *Config) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, nxt := &r.running.Server, &next.Server
	var ignored []string
	if cur.HTTPPort != nxt.HTTPPort {
		ignored = append(ignored, "server.http_port")
	}
	if cur.Store != nxt.Store {
		ignored = append(ignored, "server.store")
	}
	if cur.Feed != nxt.Feed {
		ignored = append(ignored, "server.feed")
	}
	if cur.Metrics != nxt.Metrics {
		ignored = append(ignored, "server.metrics")
	}
	if len(ignored) > 0 {
		slog.Warn("config: restart required to apply", "keys", ignored)
	}

	if cur.LogLevel != nxt.LogLevel {
		cur.LogLevel = nxt.LogLevel
		r.level.Set(cur.Level())
		slog.Info("config: log level updated", "log_level", cur.LogLevel)
	}
	return ignored
}

// Running returns the configuration the server is operating with.
func (r *Reloader) Running() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
