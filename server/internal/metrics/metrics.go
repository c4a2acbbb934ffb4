package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// meterName is the instrumentation scope of the request instruments.
const meterName = "github.com/obsidianstack/taskapi/server/internal/metrics"

const (
	requestsName    = "taskapi_requests_total"
	durationName    = "taskapi_request_duration_seconds_total"
	storeErrorsName = "taskapi_store_errors_total"

	// OutcomeStoreError labels requests that ended in a store failure.
	OutcomeStoreError = "StoreError"
)

// Registry records request observations on OTel instruments and exposes the
// collected values in the Prometheus exposition format.
type Registry struct {
	reader      *sdkmetric.ManualReader
	requests    metric.Int64Counter
	duration    metric.Float64Counter
	storeErrors metric.Int64Counter
}

// New creates a Registry backed by its own MeterProvider.
func New() *Registry {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter(meterName)

	// The names are constant and valid; on error the API hands back noop
	// instruments.
	requests, _ := meter.Int64Counter(requestsName,
		metric.WithDescription("Requests handled, by dispatcher outcome."),
		metric.WithUnit("{request}"),
	)
	duration, _ := meter.Float64Counter(durationName,
		metric.WithDescription("Total time spent handling requests, by dispatcher outcome."),
		metric.WithUnit("s"),
	)
	storeErrors, _ := meter.Int64Counter(storeErrorsName,
		metric.WithDescription("Requests that failed because the task store returned an error."),
		metric.WithUnit("{request}"),
	)

	// Scrapers see the error counter at zero before the first failure.
	storeErrors.Add(context.Background(), 0)

	return &Registry{
		reader:      reader,
		requests:    requests,
		duration:    duration,
		storeErrors: storeErrors,
	}
}

// ObserveRequest records one request that produced a response.
func (r *Registry) ObserveRequest(outcome string, d time.Duration) {
	r.record(outcome, d)
}

// ObserveFailure records one request that failed in the store. It is counted
// under the StoreError outcome as well as in the store error total.
func (r *Registry) ObserveFailure(d time.Duration) {
	r.record(OutcomeStoreError, d)
	r.storeErrors.Add(context.Background(), 1)
}

func (r *Registry) record(outcome string, d time.Duration) {
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	r.requests.Add(ctx, 1, attrs)
	r.duration.Add(ctx, d.Seconds(), attrs)
}

// Gather collects the instruments and converts them to metric families
// sorted by name.
func (r *Registry) Gather(ctx context.Context) ([]*dto.MetricFamily, error) {
	var rm metricdata.ResourceMetrics
	if err := r.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("metrics: collect: %w", err)
	}

	var out []*dto.MetricFamily
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			mf := family(m.Name, m.Description)
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					mf.Metric = append(mf.Metric, counterMetric(float64(dp.Value), dp.Attributes))
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					mf.Metric = append(mf.Metric, counterMetric(dp.Value, dp.Attributes))
				}
			default:
				slog.Debug("metrics: skipping unsupported aggregation", "name", m.Name)
				continue
			}
			sort.Slice(mf.Metric, func(i, j int) bool {
				return labelKey(mf.Metric[i]) < labelKey(mf.Metric[j])
			})
			out = append(out, mf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out, nil
}

// ServeHTTP writes the metric families using the format negotiated from the
// Accept header.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	families, err := r.Gather(req.Context())
	if err != nil {
		slog.Error("metrics: gather failed", "err", err)
		http.Error(w, "metrics unavailable", http.StatusInternalServerError)
		return
	}

	format := expfmt.Negotiate(req.Header)
	w.Header().Set("Content-Type", string(format))

	enc := expfmt.NewEncoder(w, format)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			slog.Error("metrics: encode failed", "family", mf.GetName(), "err", err)
			return
		}
	}
	if closer, ok := enc.(expfmt.Closer); ok {
		closer.Close() //nolint:errcheck
	}
}

func family(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: &name,
		Help: &help,
		Type: dto.MetricType_COUNTER.Enum(),
	}
}

// counterMetric builds a counter sample labelled with the attribute set.
func counterMetric(v float64, attrs attribute.Set) *dto.Metric {
	m := &dto.Metric{Counter: &dto.Counter{Value: &v}}
	for _, kv := range attrs.ToSlice() {
		name, value := string(kv.Key), kv.Value.Emit()
		m.Label = append(m.Label, &dto.LabelPair{Name: &name, Value: &value})
	}
	return m
}

func labelKey(m *dto.Metric) string {
	var b strings.Builder
	for _, lp := range m.GetLabel() {
		b.WriteString(lp.GetName())
		b.WriteByte('=')
		b.WriteString(lp.GetValue())
		b.WriteByte(',')
	}
	return b.String()
}
