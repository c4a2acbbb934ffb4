package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// maxBodyBytes caps request bodies read by the HTTP host.
const maxBodyBytes = 1 << 20

// Recorder receives one observation per handled request. It is implemented
// by package metrics; a nil Recorder disables recording.
type Recorder interface {
	ObserveRequest(outcome string, d time.Duration)
	ObserveFailure(d time.Duration)
}

// Handler serves the task routes over net/http. It translates each HTTP
// request into a Request, runs the Dispatcher and writes the Response.
// Dispatcher errors become 500 responses.
type Handler struct {
	dispatcher *Dispatcher
	recorder   Recorder
	mux        *http.ServeMux
}

// Option configures a Handler.
type Option func(*Handler)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(h *Handler) { h.recorder = r }
}

// New creates a Handler around d and registers the task routes. Paths that
// match neither route template are dispatched with their literal path as the
// resource, which the dispatcher answers with 404.
func New(d *Dispatcher, opts ...Option) *Handler {
	h := &Handler{dispatcher: d, mux: http.NewServeMux()}
	for _, o := range opts {
		o(h)
	}

	h.mux.HandleFunc("/tasks", h.route(RouteTasks))
	h.mux.HandleFunc("/tasks/{taskId}", h.route(RouteTask))
	h.mux.HandleFunc("/", h.route(""))

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// route returns the handler for one route template. An empty template means
// "unmatched": the concrete path is used instead.
func (h *Handler) route(template string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		w.Header().Set("X-Request-Id", reqID)

		req, err := toRequest(r, template)
		if err != nil {
			writeError(w, http.StatusBadRequest, InvalidBody, "could not read body")
			return
		}

		resp, err := h.dispatcher.Dispatch(r.Context(), req)
		elapsed := time.Since(start)
		if err != nil {
			slog.Error("api: request failed",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"resource", req.Resource,
				"err", err,
			)
			if h.recorder != nil {
				h.recorder.ObserveFailure(elapsed)
			}
			writeError(w, http.StatusInternalServerError, "", "internal error")
			return
		}

		writeResponse(w, resp)

		slog.Info("api: request",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"resource", req.Resource,
			"status", resp.StatusCode,
			"outcome", string(resp.Outcome),
			"duration", elapsed,
		)
		if h.recorder != nil {
			h.recorder.ObserveRequest(string(resp.Outcome), elapsed)
		}
	}
}

// --- helpers ----------------------------------------------------------------

// toRequest builds the dispatcher Request for r under the given template.
func toRequest(r *http.Request, template string) (Request, error) {
	req := Request{
		HTTPMethod: r.Method,
		Resource:   template,
		Path:       r.URL.Path,
	}
	if template == "" {
		req.Resource = r.URL.Path
	}
	if template == RouteTask {
		req.PathParameters = map[string]string{paramTaskID: r.PathValue(paramTaskID)}
	}

	if q := r.URL.Query(); len(q) > 0 {
		req.QueryStringParameters = make(map[string]string, len(q))
		for k, vs := range q {
			if len(vs) > 0 {
				req.QueryStringParameters[k] = vs[0]
			}
		}
	}

	// Only PUT carries a task; other bodies are never read.
	if r.Method == http.MethodPut && r.Body != nil {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil {
			return Request{}, err
		}
		if len(data) > maxBodyBytes {
			return Request{}, errors.New("body too large")
		}
		req.Body = string(data)
	}
	return req, nil
}

func writeResponse(w http.ResponseWriter, resp Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		io.WriteString(w, resp.Body) //nolint:errcheck
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, outcome Outcome, msg string) {
	writeJSON(w, code, errorResponse{Error: msg, Code: outcome})
}
