// Package metrics counts handled requests per dispatcher outcome on
// OpenTelemetry instruments and serves them in the Prometheus exposition
// format.
//
// Exposed families:
//   - taskapi_requests_total{outcome}                    requests per outcome
//   - taskapi_request_duration_seconds_total{outcome}    summed handling time
//   - taskapi_store_errors_total                         requests failed by the store
//
// Store failures are also counted under outcome="StoreError".
package metrics
