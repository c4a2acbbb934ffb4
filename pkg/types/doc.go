// Package types defines shared Go types used by the stores, the dispatcher
// and the transports. Tasks and cursors are schemaless JSON objects; only the
// taskId key field carries meaning.
package types
