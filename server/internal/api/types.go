package api

import "github.com/obsidianstack/taskapi/pkg/types"

// Route templates recognised by the dispatcher.
const (
	RouteTasks = "/tasks"
	RouteTask  = "/tasks/{taskId}"
)

// Request is one inbound call, in the shape of an API Gateway proxy event.
// Resource is the route template, not the concrete path.
type Request struct {
	HTTPMethod            string            `json:"httpMethod"`
	Resource              string            `json:"resource"`
	Path                  string            `json:"path,omitempty"`
	PathParameters        map[string]string `json:"pathParameters"`
	QueryStringParameters map[string]string `json:"queryStringParameters"`
	Body                  string            `json:"body"`
	IsBase64Encoded       bool              `json:"isBase64Encoded"`
}

// Response is the normalised result of a dispatched request. Body is empty
// for 204 responses. Outcome is not serialised; hosts use it for logs and
// metrics.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
	Outcome    Outcome           `json:"-"`
}

// Outcome names the result kind of a dispatched request.
type Outcome string

// Success outcomes.
const (
	ListRetrieved Outcome = "ListRetrieved"
	ItemRetrieved Outcome = "ItemRetrieved"
	ItemWritten   Outcome = "ItemWritten"
	ItemDeleted   Outcome = "ItemDeleted"
)

// Client error outcomes.
const (
	InvalidCursor     Outcome = "InvalidCursor"
	MissingIdentifier Outcome = "MissingIdentifier"
	InvalidBody       Outcome = "InvalidBody"
	MethodNotAllowed  Outcome = "MethodNotAllowed"
	ItemNotFound      Outcome = "ItemNotFound"
	RouteNotFound     Outcome = "RouteNotFound"
)

// ListResponse is the payload for GET /tasks. LastKey is omitted when the
// scan exhausted the collection.
type ListResponse struct {
	Items   []types.Task `json:"items"`
	LastKey types.Cursor `json:"lastKey,omitempty"`
}

// errorResponse is the JSON error body shared by every client error.
type errorResponse struct {
	Error  string  `json:"error"`
	Code   Outcome `json:"code,omitempty"`
	TaskID string  `json:"taskId,omitempty"`
}
