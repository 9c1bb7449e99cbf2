package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/npuflow/logger"
)

// InitMeter installs an OTLP/HTTP meter provider as the global provider.
func InitMeter(ctx context.Context, cfg Config, svc ServiceInfo) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(svc)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", svc.Name,
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the scheduler instruments. A nil *Metrics records nothing.
type Metrics struct {
	batchTotal     metric.Int64Counter
	batchDuration  metric.Float64Histogram
	submitted      metric.Int64Counter
	completed      metric.Int64Counter
	rejected       metric.Int64Counter
	stray          metric.Int64Counter
	inflight       metric.Int64UpDownCounter
	stageFailures  metric.Int64Counter
	sliceDurations metric.Float64Histogram
}

// NewMetrics creates the scheduler instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.batchTotal, err = meter.Int64Counter("npuflow.batch.total",
		metric.WithDescription("Batches run, by mode and status")); err != nil {
		return nil, fmt.Errorf("creating npuflow.batch.total counter: %w", err)
	}
	if m.batchDuration, err = meter.Float64Histogram("npuflow.batch.duration",
		metric.WithDescription("Wall time of RunBatch"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating npuflow.batch.duration histogram: %w", err)
	}
	if m.sliceDurations, err = meter.Float64Histogram("npuflow.slice.duration",
		metric.WithDescription("Wall time of one window or pipelined slice"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating npuflow.slice.duration histogram: %w", err)
	}
	if m.submitted, err = meter.Int64Counter("npuflow.request.submitted",
		metric.WithDescription("Requests accepted by the accelerator")); err != nil {
		return nil, fmt.Errorf("creating npuflow.request.submitted counter: %w", err)
	}
	if m.completed, err = meter.Int64Counter("npuflow.request.completed",
		metric.WithDescription("Completions matched to a request")); err != nil {
		return nil, fmt.Errorf("creating npuflow.request.completed counter: %w", err)
	}
	if m.rejected, err = meter.Int64Counter("npuflow.request.rejected",
		metric.WithDescription("Submissions rejected because the accelerator queue was full")); err != nil {
		return nil, fmt.Errorf("creating npuflow.request.rejected counter: %w", err)
	}
	if m.stray, err = meter.Int64Counter("npuflow.completion.stray",
		metric.WithDescription("Completions dropped because their window had ended")); err != nil {
		return nil, fmt.Errorf("creating npuflow.completion.stray counter: %w", err)
	}
	if m.inflight, err = meter.Int64UpDownCounter("npuflow.request.inflight",
		metric.WithDescription("Requests submitted and not yet completed")); err != nil {
		return nil, fmt.Errorf("creating npuflow.request.inflight counter: %w", err)
	}
	if m.stageFailures, err = meter.Int64Counter("npuflow.stage.failure",
		metric.WithDescription("Pipeline stage failures, by stage")); err != nil {
		return nil, fmt.Errorf("creating npuflow.stage.failure counter: %w", err)
	}
	return &m, nil
}

// RecordBatch records a finished batch.
func (m *Metrics) RecordBatch(ctx context.Context, mode, status string, size int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrMode, mode),
		attribute.String(AttrStatus, status),
	)
	m.batchTotal.Add(ctx, 1, attrs)
	m.batchDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordSlice records a finished slice.
func (m *Metrics) RecordSlice(ctx context.Context, mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.sliceDurations.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(AttrMode, mode)))
}

// RecordSubmitted counts an accepted submission.
func (m *Metrics) RecordSubmitted(ctx context.Context) {
	if m == nil {
		return
	}
	m.submitted.Add(ctx, 1)
	m.inflight.Add(ctx, 1)
}

// RecordCompleted counts a matched completion.
func (m *Metrics) RecordCompleted(ctx context.Context) {
	if m == nil {
		return
	}
	m.completed.Add(ctx, 1)
	m.inflight.Add(ctx, -1)
}

// RecordRejected counts a busy rejection.
func (m *Metrics) RecordRejected(ctx context.Context) {
	if m == nil {
		return
	}
	m.rejected.Add(ctx, 1)
}

// RecordStray counts a dropped stray completion.
func (m *Metrics) RecordStray(ctx context.Context) {
	if m == nil {
		return
	}
	m.stray.Add(ctx, 1)
}

// RecordStageFailure counts a failed stage.
func (m *Metrics) RecordStageFailure(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.stageFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
