package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds all application metrics implementing the golden 4 signals:
// - Latency: How long requests/transfers take
// - Traffic: Request/transfer throughput
// - Errors: Rate of failures, split by failure classification
// - Saturation: Concurrently running worker invocations
type Metrics struct {
	meter metric.Meter

	// HTTP metrics (Latency, Traffic, Errors)
	HTTPRequestDuration metric.Float64Histogram
	HTTPRequestsTotal   metric.Int64Counter
	HTTPErrorsTotal     metric.Int64Counter

	// Transfer metrics (Latency, Traffic, Errors, Saturation)
	TransferDuration metric.Float64Histogram
	TransfersTotal   metric.Int64Counter
	TransferFailures metric.Int64Counter
	TransfersActive  metric.Int64UpDownCounter
	TransferDeltaE   metric.Float64Histogram

	// Batch packing metrics
	BatchesPacked metric.Int64Counter
	BatchJobs     metric.Int64Histogram
}

// NewMetrics creates and registers all metrics with a Prometheus exporter.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("colorwerkz")
	m := &Metrics{meter: meter}

	// HTTP metrics
	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPErrorsTotal, err = meter.Int64Counter(
		"http_errors_total",
		metric.WithDescription("Total number of HTTP errors (4xx and 5xx)"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Transfer metrics
	m.TransferDuration, err = meter.Float64Histogram(
		"transfer_duration_seconds",
		metric.WithDescription("Worker invocation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, nil, err
	}

	m.TransfersTotal, err = meter.Int64Counter(
		"transfers_total",
		metric.WithDescription("Total number of transfer jobs dispatched"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.TransferFailures, err = meter.Int64Counter(
		"transfer_failures_total",
		metric.WithDescription("Total number of failed transfers by classification"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.TransfersActive, err = meter.Int64UpDownCounter(
		"transfers_active",
		metric.WithDescription("Number of currently running worker invocations (saturation)"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.TransferDeltaE, err = meter.Float64Histogram(
		"transfer_delta_e",
		metric.WithDescription("Delta E of successful transfers (lower is better)"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2, 5, 10, 25, 50, 100),
	)
	if err != nil {
		return nil, nil, err
	}

	// Batch packing metrics
	m.BatchesPacked, err = meter.Int64Counter(
		"batches_packed_total",
		metric.WithDescription("Total number of batches produced by the packer"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.BatchJobs, err = meter.Int64Histogram(
		"batch_jobs",
		metric.WithDescription("Number of jobs packed into one batch"),
		metric.WithExplicitBucketBoundaries(1, 2, 4, 8, 16, 32),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.Handler(), nil
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	attrs := metric.WithAttributes(
		httpMethodAttr(method),
		pathAttr(path),
		statusAttr(statusCode),
	)

	m.HTTPRequestDuration.Record(ctx, durationSeconds, attrs)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)

	if statusCode >= 400 {
		m.HTTPErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordTransferStarted records a worker invocation beginning.
func (m *Metrics) RecordTransferStarted(ctx context.Context, method string) {
	attrs := metric.WithAttributes(methodAttr(method))
	m.TransfersTotal.Add(ctx, 1, attrs)
	m.TransfersActive.Add(ctx, 1, attrs)
}

// RecordTransferCompleted records a transfer settling (success or failure).
// classification is empty on success; deltaE is only meaningful on success.
func (m *Metrics) RecordTransferCompleted(ctx context.Context, method string, success bool, classification string, deltaE, durationSeconds float64) {
	attrs := metric.WithAttributes(methodAttr(method), successAttr(success))
	m.TransferDuration.Record(ctx, durationSeconds, attrs)
	m.TransfersActive.Add(ctx, -1, metric.WithAttributes(methodAttr(method)))

	if success {
		m.TransferDeltaE.Record(ctx, deltaE, metric.WithAttributes(methodAttr(method)))
		return
	}
	m.TransferFailures.Add(ctx, 1, metric.WithAttributes(methodAttr(method), classificationAttr(classification)))
}

// RecordBatchesPacked records the outcome of packing one job set.
func (m *Metrics) RecordBatchesPacked(ctx context.Context, method string, batches int, batchSizes []int) {
	attrs := metric.WithAttributes(methodAttr(method))
	m.BatchesPacked.Add(ctx, int64(batches), attrs)
	for _, size := range batchSizes {
		m.BatchJobs.Record(ctx, int64(size), attrs)
	}
}
