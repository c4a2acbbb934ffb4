package api_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/obsidianstack/taskapi/server/internal/api"
)

// --- test helpers -----------------------------------------------------------

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []string
	failures int
}

func (r *fakeRecorder) ObserveRequest(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *fakeRecorder) ObserveFailure(_ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
}

func newHandler(spy *spyStore, opts ...api.Option) http.Handler {
	return api.New(api.NewDispatcher(spy), opts...)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, r))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- /tasks/{taskId} --------------------------------------------------------

func TestHTTP_PutThenGet(t *testing.T) {
	h := newHandler(newSpy())

	rr := do(t, h, http.MethodPut, "/tasks/t-1", `{"taskId":"other","title":"write"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("PUT status: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Error("X-Request-Id header missing")
	}

	rr = do(t, h, http.MethodGet, "/tasks/t-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("GET status: got %d, want 200", rr.Code)
	}
	var got map[string]interface{}
	decode(t, rr, &got)
	if got["taskId"] != "t-1" || got["title"] != "write" {
		t.Errorf("body: got %v, want taskId=t-1 title=write", got)
	}
}

func TestHTTP_GetMissing(t *testing.T) {
	rr := do(t, newHandler(newSpy()), http.MethodGet, "/tasks/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
	var got map[string]interface{}
	decode(t, rr, &got)
	if got["code"] != "ItemNotFound" {
		t.Errorf("code: got %v, want ItemNotFound", got["code"])
	}
}

func TestHTTP_Delete(t *testing.T) {
	rr := do(t, newHandler(newSpy()), http.MethodDelete, "/tasks/t-1", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("body: got %q, want empty", rr.Body.String())
	}
}

func TestHTTP_MethodNotAllowed(t *testing.T) {
	rr := do(t, newHandler(newSpy()), http.MethodPatch, "/tasks/t-1", `{}`)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
	if allow := rr.Header().Get("Allow"); allow != "GET, PUT, DELETE" {
		t.Errorf("Allow: got %q", allow)
	}
}

func TestHTTP_InvalidBody(t *testing.T) {
	rr := do(t, newHandler(newSpy()), http.MethodPut, "/tasks/t-1", `[1,2]`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

// --- /tasks -----------------------------------------------------------------

func TestHTTP_ListWithQuery(t *testing.T) {
	spy := newSpy()
	h := newHandler(spy)
	for _, id := range []string{"a", "b", "c"} {
		do(t, h, http.MethodPut, "/tasks/"+id, `{}`)
	}

	rr := do(t, h, http.MethodGet, `/tasks?limit=2&startKey=%7B%22taskId%22%3A%22a%22%7D`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	var resp api.ListResponse
	decode(t, rr, &resp)
	if len(resp.Items) != 2 {
		t.Fatalf("items: got %d, want 2", len(resp.Items))
	}
	if id, _ := resp.Items[0].ID(); id != "b" {
		t.Errorf("items[0]: got %q, want b", id)
	}
	if resp.LastKey != nil {
		t.Errorf("lastKey: got %v, want omitted", resp.LastKey)
	}
}

func TestHTTP_ListBadCursor(t *testing.T) {
	rr := do(t, newHandler(newSpy()), http.MethodGet, "/tasks?startKey=not-json", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestHTTP_PostToCollectionIsNotFound(t *testing.T) {
	rr := do(t, newHandler(newSpy()), http.MethodPost, "/tasks", `{}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

// --- unmatched paths --------------------------------------------------------

func TestHTTP_UnknownPath(t *testing.T) {
	spy := newSpy()
	h := newHandler(spy)
	for _, path := range []string{"/other", "/", "/tasks/a/b"} {
		rr := do(t, h, http.MethodGet, path, "")
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s: status got %d, want 404", path, rr.Code)
		}
	}
	if calls := spy.Calls(); len(calls) != 0 {
		t.Errorf("store calls: got %v, want none", calls)
	}
}

// --- failures and recording -------------------------------------------------

func TestHTTP_StoreErrorIs500(t *testing.T) {
	spy := newSpy()
	spy.GetErr = errors.New("connection reset")
	rec := &fakeRecorder{}
	h := newHandler(spy, api.WithRecorder(rec))

	rr := do(t, h, http.MethodGet, "/tasks/t-1", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "connection reset") {
		t.Errorf("body leaks store error: %s", rr.Body.String())
	}
	if rec.failures != 1 {
		t.Errorf("failures: got %d, want 1", rec.failures)
	}
}

func TestHTTP_RecordsOutcomes(t *testing.T) {
	rec := &fakeRecorder{}
	h := newHandler(newSpy(), api.WithRecorder(rec))

	do(t, h, http.MethodPut, "/tasks/a", `{}`)
	do(t, h, http.MethodGet, "/tasks/a", "")
	do(t, h, http.MethodGet, "/tasks", "")
	do(t, h, http.MethodDelete, "/tasks/a", "")
	do(t, h, http.MethodGet, "/nowhere", "")

	want := []string{"ItemWritten", "ItemRetrieved", "ListRetrieved", "ItemDeleted", "RouteNotFound"}
	if strings.Join(rec.outcomes, ",") != strings.Join(want, ",") {
		t.Errorf("outcomes: got %v, want %v", rec.outcomes, want)
	}
}

func TestHTTP_BodyTooLarge(t *testing.T) {
	big := `{"x":"` + strings.Repeat("a", 1<<20) + `"}`
	rr := do(t, newHandler(newSpy()), http.MethodPut, "/tasks/t", big)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestHTTP_LargeBodyIgnoredOutsidePut(t *testing.T) {
	big := strings.Repeat("a", 2<<20)
	h := newHandler(newSpy())

	if rr := do(t, h, http.MethodGet, "/tasks/t", big); rr.Code != http.StatusNotFound {
		t.Errorf("GET status: got %d, want 404", rr.Code)
	}
	if rr := do(t, h, http.MethodDelete, "/tasks/t", big); rr.Code != http.StatusNoContent {
		t.Errorf("DELETE status: got %d, want 204", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/tasks", big); rr.Code != http.StatusOK {
		t.Errorf("list status: got %d, want 200", rr.Code)
	}
}
