// Package ws implements the WebSocket task feed for taskapi-server.
//
// Hub manages a set of connected clients and broadcasts the first page of
// tasks to all of them on a configurable interval (feed.interval).
//
// New(store, interval, pageSize) creates a Hub.
// Hub.Run(ctx) starts the broadcast ticker and blocks until ctx is cancelled,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// page immediately on connect, then streams updates on each tick.
//
// Message format sent to clients:
//
//	{
//	  "event": "tasks",
//	  "data":  { /* same schema as GET /tasks */ }
//	}
//
// A failed scan skips the tick; clients stay connected. The upgrader accepts
// all origins. The server mounts the hub at /ws/tasks.
package ws
