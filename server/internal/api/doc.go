// Package api implements the task resource API.
//
// The Dispatcher is transport-neutral: it takes a Request (method, route
// template, path and query parameters, body) and returns a Response. It
// recognises exactly two route templates:
//
//	GET    /tasks               scan; optional limit (1 to 500) and startKey cursor
//	GET    /tasks/{taskId}      fetch one task; 404 if absent
//	PUT    /tasks/{taskId}      full replace; the path taskId overrides the body
//	DELETE /tasks/{taskId}      remove; always 204
//
// Two hosts adapt it: Handler serves it over net/http, and LambdaHandler
// serves API Gateway proxy events. Validation failures are responses; store
// failures are returned as errors and become 500s in the host.
package api
