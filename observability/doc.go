// Package observability wires OpenTelemetry tracing and metrics for npuflow.
//
// Setup installs OTLP/HTTP trace and metric providers as the global
// providers and returns a shutdown function. When disabled, the global
// no-op providers stay in place and every instrument is free to call.
//
//	shutdown, err := observability.Setup(ctx, cfg.Observability, observability.ServiceInfo{Name: "npuflow"})
//	defer shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("scheduler"))
//	metrics.RecordBatch(ctx, "pipelined", "ok", 10, elapsed)
package observability
