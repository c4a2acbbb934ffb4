// Package redis implements store.Store on Redis. Each task is a string key
// holding its JSON record; a sorted set with equal scores indexes the task
// IDs so scans walk them lexicographically with ZRANGEBYLEX.
//
// Usage:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	s := redis.New(client, "tasks")
//	if err := s.Ping(ctx); err != nil { ... }
package redis
