// Package observe carries the service's telemetry: OpenTelemetry metrics and
// traces, trace-aware slog loggers, and the HTTP middleware that ties them to
// each request.
//
// Metrics go through the OpenTelemetry Metrics API. [InitProvider] bridges
// them to a Prometheus exporter for scraping at /metrics. [DefaultMetrics]
// is bound to the global provider; tests should call [NewMetrics] with their
// own [metric.MeterProvider].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/suminhong/diribon2gg"

// Metrics holds every instrument the service records. The OTel types handle
// their own synchronisation.
type Metrics struct {
	// FetchDuration is the latency of one table download, by origin and
	// table.
	FetchDuration metric.Float64Histogram

	// FetchErrors counts failed table downloads, by origin and table.
	FetchErrors metric.Int64Counter

	// SnapshotRecords is the row count of each table in the most recently
	// loaded snapshot.
	SnapshotRecords metric.Int64Gauge

	// QueryDuration is the time spent filtering and sorting one list query.
	QueryDuration metric.Float64Histogram

	// QueryResults is the number of rows a list query returned.
	QueryResults metric.Int64Histogram

	// DetailLookups counts detail requests by outcome
	// (found, missing, superseded, unavailable).
	DetailLookups metric.Int64Counter

	// HTTPRequestDuration is the request latency by method and route.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are in seconds and sized for small CSV downloads and
// in-memory queries.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

var resultBuckets = []float64{0, 1, 5, 10, 50, 100, 250, 500, 1000, 2500}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FetchDuration, err = m.Float64Histogram("diribon.fetch.duration",
		metric.WithDescription("Latency of dataset table downloads."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FetchErrors, err = m.Int64Counter("diribon.fetch.errors",
		metric.WithDescription("Failed dataset table downloads by origin and table."),
	); err != nil {
		return nil, err
	}
	if met.SnapshotRecords, err = m.Int64Gauge("diribon.snapshot.records",
		metric.WithDescription("Rows per table in the last loaded snapshot."),
	); err != nil {
		return nil, err
	}
	if met.QueryDuration, err = m.Float64Histogram("diribon.query.duration",
		metric.WithDescription("Time spent filtering and sorting a list query."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.QueryResults, err = m.Int64Histogram("diribon.query.results",
		metric.WithDescription("Rows returned by a list query."),
		metric.WithExplicitBucketBoundaries(resultBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DetailLookups, err = m.Int64Counter("diribon.detail.lookups",
		metric.WithDescription("Detail requests by outcome."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("diribon.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the process-wide [Metrics], created on first use
// from [otel.GetMeterProvider]. It panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordFetch records one table download. A non-nil err also increments
// [Metrics.FetchErrors].
func (m *Metrics) RecordFetch(ctx context.Context, origin, table string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.FetchDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("origin", origin),
		attribute.String("table", table),
		attribute.String("status", status),
	))
	if err != nil {
		m.FetchErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("origin", origin),
			attribute.String("table", table),
		))
	}
}

// RecordSnapshot sets the row count gauge for table.
func (m *Metrics) RecordSnapshot(ctx context.Context, table string, rows int) {
	m.SnapshotRecords.Record(ctx, int64(rows), metric.WithAttributes(attribute.String("table", table)))
}

// RecordQuery records one list query's latency and result size.
func (m *Metrics) RecordQuery(ctx context.Context, sort string, d time.Duration, results int) {
	attrs := metric.WithAttributes(attribute.String("sort", sort))
	m.QueryDuration.Record(ctx, d.Seconds(), attrs)
	m.QueryResults.Record(ctx, int64(results), attrs)
}

// RecordDetail counts one detail request by outcome.
func (m *Metrics) RecordDetail(ctx context.Context, outcome string) {
	m.DetailLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
