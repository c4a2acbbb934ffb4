package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/obsidianstack/taskapi/pkg/types"
	"github.com/obsidianstack/taskapi/server/internal/store"
)

const (
	paramTaskID   = "taskId"
	paramLimit    = "limit"
	paramStartKey = "startKey"

	contentTypeJSON = "application/json"
)

var errEmptyBody = errors.New("empty body")

// Dispatcher maps one Request onto exactly one store call and one Response.
// It keeps no per-request or mutable state and is safe for concurrent use;
// the store handle is fixed at construction.
type Dispatcher struct {
	store store.Store
}

// NewDispatcher returns a Dispatcher backed by st.
func NewDispatcher(st store.Store) *Dispatcher {
	return &Dispatcher{store: st}
}

// Dispatch classifies req and executes it. Validation failures and missing
// items are ordinary responses. A non-nil error means the store failed; it is
// returned untranslated for the host to turn into a 5xx.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Response, error) {
	switch {
	case req.Resource == RouteTasks && req.HTTPMethod == http.MethodGet:
		return d.list(ctx, req)
	case req.Resource == RouteTask:
		return d.item(ctx, req)
	default:
		return errorResp(http.StatusNotFound, RouteNotFound, "not found", "")
	}
}

// list handles GET /tasks.
func (d *Dispatcher) list(ctx context.Context, req Request) (Response, error) {
	var in store.ScanInput

	if raw, ok := req.QueryStringParameters[paramLimit]; ok {
		if n, ok := parseLimit(raw); ok {
			in.Limit = n
		}
		// A malformed or out-of-range limit falls back to the default scan.
	}

	if raw, ok := req.QueryStringParameters[paramStartKey]; ok {
		cursor, err := parseCursor(raw)
		if err != nil {
			return errorResp(http.StatusBadRequest, InvalidCursor, "invalid startKey", "")
		}
		in.StartKey = cursor
	}

	page, err := d.store.Scan(ctx, in)
	if err != nil {
		return Response{}, fmt.Errorf("api: scan tasks: %w", err)
	}

	out := ListResponse{Items: page.Items, LastKey: page.LastKey}
	if out.Items == nil {
		out.Items = []types.Task{}
	}
	if len(out.LastKey) == 0 {
		out.LastKey = nil
	}
	return jsonResp(http.StatusOK, ListRetrieved, out)
}

// item handles GET, PUT and DELETE on /tasks/{taskId}.
func (d *Dispatcher) item(ctx context.Context, req Request) (Response, error) {
	id := req.PathParameters[paramTaskID]
	if id == "" {
		return errorResp(http.StatusBadRequest, MissingIdentifier, "missing taskId", "")
	}

	switch req.HTTPMethod {
	case http.MethodGet:
		t, ok, err := d.store.Get(ctx, id)
		if err != nil {
			return Response{}, fmt.Errorf("api: get task %q: %w", id, err)
		}
		if !ok {
			return errorResp(http.StatusNotFound, ItemNotFound, "task not found", id)
		}
		return jsonResp(http.StatusOK, ItemRetrieved, t)

	case http.MethodPut:
		t, err := parseBody(req)
		if err != nil {
			return errorResp(http.StatusBadRequest, InvalidBody, "body must be JSON object", "")
		}
		// The path is authoritative for identity.
		t[types.KeyField] = id
		if err := d.store.Put(ctx, t); err != nil {
			return Response{}, fmt.Errorf("api: put task %q: %w", id, err)
		}
		return jsonResp(http.StatusOK, ItemWritten, t)

	case http.MethodDelete:
		if err := d.store.Delete(ctx, id); err != nil {
			return Response{}, fmt.Errorf("api: delete task %q: %w", id, err)
		}
		return Response{
			StatusCode: http.StatusNoContent,
			Headers:    headers(),
			Outcome:    ItemDeleted,
		}, nil

	default:
		resp, err := errorResp(http.StatusMethodNotAllowed, MethodNotAllowed, "method not allowed", "")
		if err == nil {
			resp.Headers["Allow"] = "GET, PUT, DELETE"
		}
		return resp, err
	}
}

// --- parsing ----------------------------------------------------------------

// parseLimit reports whether raw is an integer page size in [1, MaxScanLimit].
func parseLimit(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	if n < 1 || n > store.MaxScanLimit {
		return 0, false
	}
	return n, true
}

// parseCursor decodes a JSON-serialised cursor object.
func parseCursor(raw string) (types.Cursor, error) {
	obj, err := types.DecodeObject([]byte(raw))
	if err != nil {
		return nil, err
	}
	return types.Cursor(obj), nil
}

// parseBody decodes the request body, base64 first when flagged, into a JSON
// object.
func parseBody(req Request) (types.Task, error) {
	if req.Body == "" {
		return nil, errEmptyBody
	}
	data := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return nil, fmt.Errorf("decode base64 body: %w", err)
		}
		data = decoded
	}
	obj, err := types.DecodeObject(data)
	if err != nil {
		return nil, err
	}
	return types.Task(obj), nil
}

// --- responses --------------------------------------------------------------

func headers() map[string]string {
	return map[string]string{"Content-Type": contentTypeJSON}
}

func jsonResp(code int, outcome Outcome, v any) (Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Response{}, fmt.Errorf("api: encode %s response: %w", outcome, err)
	}
	return Response{
		StatusCode: code,
		Headers:    headers(),
		Body:       string(body),
		Outcome:    outcome,
	}, nil
}

func errorResp(code int, outcome Outcome, msg, taskID string) (Response, error) {
	return jsonResp(code, outcome, errorResponse{Error: msg, Code: outcome, TaskID: taskID})
}
