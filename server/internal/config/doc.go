// Package config loads the server-side configuration from the `server:` section
// of config.yaml.
//
// Config fields:
//   - HTTPPort          port for the task API, metrics and feed (default 8080)
//   - LogLevel          debug | info | warn | error (default info, hot-reloaded)
//   - Store.Backend     memory | redis | postgres | nats | dynamodb (default memory)
//   - Store.Table       table, bucket or key prefix (default "tasks")
//   - Store.TableEnv    environment variable overriding Table (default TABLE_NAME)
//   - Store.URLEnv      environment variable holding the backend URL (default TASKS_STORE_URL)
//   - Feed.*            WebSocket task feed (enabled, 5s interval, 50 tasks)
//   - Metrics.*         Prometheus endpoint (enabled, /metrics)
//
// Load(path) applies defaults before unmarshalling, then validates. FromEnv()
// serves the Lambda entry point, which has no config file. Watch(path) reloads
// the file on change.
package config
