package config

import (
	"context"
	"errors"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/mpapenbr/racetiming-analytics/log"
	"github.com/mpapenbr/racetiming-analytics/version"
)

type Telemetry struct {
	ctx       context.Context
	metrics   *metric.MeterProvider
	traces    *trace.TracerProvider
	shutdowns []func(context.Context) error
}

// Shutdown flushes and stops all registered providers.
func (t *Telemetry) Shutdown() {
	ctx, cancel := context.WithTimeout(t.ctx, 5*time.Second)
	defer cancel()
	var err error
	for _, f := range t.shutdowns {
		err = errors.Join(err, f(ctx))
	}
	if err != nil {
		log.Warn("telemetry shutdown", log.ErrorField(err))
	}
}

// SetupTelemetry registers global meter and tracer providers.
// Data is sent to TelemetryEndpoint via OTLP/gRPC. The endpoint "stdout"
// writes everything to stdout instead (useful for local runs).
func SetupTelemetry(ctx context.Context) (*Telemetry, error) {
	res, err := resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName("racetiming-analytics"),
			semconv.ServiceVersion(version.Version),
		))
	if err != nil {
		return nil, err
	}
	t := &Telemetry{ctx: ctx}

	var metricExporter metric.Exporter
	var traceExporter trace.SpanExporter
	if TelemetryEndpoint == "stdout" {
		if metricExporter, err = stdoutmetric.New(
			stdoutmetric.WithWriter(os.Stdout)); err != nil {
			return nil, err
		}
		if traceExporter, err = stdouttrace.New(
			stdouttrace.WithWriter(os.Stdout)); err != nil {
			return nil, err
		}
	} else {
		if metricExporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(TelemetryEndpoint),
			otlpmetricgrpc.WithInsecure()); err != nil {
			return nil, err
		}
		if traceExporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(TelemetryEndpoint),
			otlptracegrpc.WithInsecure()); err != nil {
			return nil, err
		}
	}

	t.metrics = metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExporter,
			metric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(t.metrics)
	t.shutdowns = append(t.shutdowns, t.metrics.Shutdown)

	t.traces = trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithBatcher(traceExporter),
	)
	otel.SetTracerProvider(t.traces)
	t.shutdowns = append(t.shutdowns, t.traces.Shutdown)
	return t, nil
}
