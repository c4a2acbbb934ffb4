package store

import (
	"context"
	"errors"

	"github.com/obsidianstack/taskapi/pkg/types"
)

// MaxScanLimit is the largest page size any caller may request.
const MaxScanLimit = 500

var (
	// ErrBadCursor is returned by Scan when the start cursor does not carry
	// a string taskId.
	ErrBadCursor = errors.New("store: cursor has no taskId")

	// ErrMissingKey is returned by Put when the record has no string taskId.
	ErrMissingKey = errors.New("store: record has no taskId")

	// ErrNotConfigured is returned when a backend lacks its connection URL.
	ErrNotConfigured = errors.New("store: backend not configured")
)

// ScanInput bounds a scan. A zero Limit means the backend default and a nil
// StartKey starts from the beginning of the collection.
type ScanInput struct {
	Limit    int
	StartKey types.Cursor
}

// Page is the result of one scan call. LastKey is nil when the scan reached
// the end of the collection.
type Page struct {
	Items   []types.Task
	LastKey types.Cursor
}

// Store is a key-value collection of tasks partitioned by taskId.
// Implementations must be safe for concurrent use.
type Store interface {
	// Scan enumerates tasks in backend order, resuming after in.StartKey.
	Scan(ctx context.Context, in ScanInput) (Page, error)

	// Get returns the task stored under id and whether it exists.
	Get(ctx context.Context, id string) (types.Task, bool, error)

	// Put stores t under its taskId, replacing any previous record.
	Put(ctx context.Context, t types.Task) error

	// Delete removes id. Deleting an absent key is not an error.
	Delete(ctx context.Context, id string) error
}

// StartAfter returns the key a scan resumes after, or "" when in has no cursor.
func StartAfter(in ScanInput) (string, error) {
	if in.StartKey == nil {
		return "", nil
	}
	id, ok := in.StartKey.Key()
	if !ok {
		return "", ErrBadCursor
	}
	return id, nil
}

// KeyOf returns the partition key of t.
func KeyOf(t types.Task) (string, error) {
	id, ok := t.ID()
	if !ok || id == "" {
		return "", ErrMissingKey
	}
	return id, nil
}
