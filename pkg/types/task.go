package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// KeyField is the single partition key of the task collection.
const KeyField = "taskId"

// Task is an open-ended JSON object identified by its taskId field.
// Numbers decoded through DecodeObject are kept as json.Number.
type Task map[string]any

// ID returns the taskId field when it holds a string.
func (t Task) ID() (string, bool) {
	id, ok := t[KeyField].(string)
	return id, ok
}

// Cursor is the opaque continuation position of a bounded scan. Every
// backend in this module produces cursors of the form {"taskId": "<last>"}.
type Cursor map[string]any

// CursorFor returns the cursor positioned after id.
func CursorFor(id string) Cursor {
	return Cursor{KeyField: id}
}

// Key returns the taskId the cursor points at.
func (c Cursor) Key() (string, bool) {
	id, ok := c[KeyField].(string)
	return id, ok && id != ""
}

// DecodeObject parses data as a single JSON object. Valid JSON that is not an
// object (array, string, number, bool, null) is an error.
func DecodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("JSON value is %s, not an object", kindOf(v))
	}
	return obj, nil
}

// DecodeTask parses a stored JSON record.
func DecodeTask(data []byte) (Task, error) {
	obj, err := DecodeObject(data)
	if err != nil {
		return nil, err
	}
	return Task(obj), nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
