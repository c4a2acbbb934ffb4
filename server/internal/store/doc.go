// Package store defines the Task Store collaborator consumed by the request
// dispatcher and provides the thread-safe in-memory backend. Networked
// backends live in the redis, postgres, nats and dynamodb subpackages.
package store
