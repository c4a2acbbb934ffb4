package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/obsidianstack/taskapi/pkg/types"
)

// Memory is a thread-safe in-memory Store keyed by taskId. Records are kept
// JSON-encoded so callers never share maps with the store.
// Scans walk keys in lexicographic order.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Put stores or replaces the record for t's taskId.
func (m *Memory) Put(_ context.Context, t types.Task) error {
	id, err := KeyOf(t)
	if err != nil {
		return err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("store: encode %q: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = data
	return nil
}

// Get returns a decoded copy of the record stored under id.
func (m *Memory) Get(_ context.Context, id string) (types.Task, bool, error) {
	m.mu.RLock()
	data, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	t, err := types.DecodeTask(data)
	if err != nil {
		return nil, false, fmt.Errorf("store: decode %q: %w", id, err)
	}
	return t, true, nil
}

// Delete removes id if present.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

// Scan returns up to in.Limit records whose keys sort after the cursor key.
// LastKey is set only when records remain beyond the returned page.
func (m *Memory) Scan(_ context.Context, in ScanInput) (Page, error) {
	after, err := StartAfter(in)
	if err != nil {
		return Page{}, err
	}

	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for id := range m.data {
		keys = append(keys, id)
	}
	sort.Strings(keys)

	start := 0
	if in.StartKey != nil {
		start = sort.Search(len(keys), func(i int) bool { return keys[i] > after })
	}
	end := len(keys)
	if in.Limit > 0 && start+in.Limit < end {
		end = start + in.Limit
	}

	page := Page{Items: make([]types.Task, 0, end-start)}
	raw := make([][]byte, 0, end-start)
	for _, id := range keys[start:end] {
		raw = append(raw, m.data[id])
	}
	if end < len(keys) && end > start {
		page.LastKey = types.CursorFor(keys[end-1])
	}
	m.mu.RUnlock()

	for _, data := range raw {
		t, err := types.DecodeTask(data)
		if err != nil {
			return Page{}, fmt.Errorf("store: decode: %w", err)
		}
		page.Items = append(page.Items, t)
	}
	return page, nil
}

// Count returns the number of records held.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
