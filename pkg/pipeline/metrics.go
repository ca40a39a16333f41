package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter  = otel.Meter("pipeline")
	tracer = otel.Tracer("pipeline")
)

type recorder struct {
	duration  metric.Float64Histogram
	documents metric.Int64Counter
	rows      metric.Int64Counter
}

func newRecorder() *recorder {
	duration, _ := meter.Float64Histogram("document_processing",
		metric.WithDescription("processing of one report document"),
		metric.WithUnit("s"))
	documents, _ := meter.Int64Counter("documents",
		metric.WithDescription("processed report documents by outcome"))
	rows, _ := meter.Int64Counter("cleaned_rows",
		metric.WithDescription("rows written to cleaned artifacts"))
	return &recorder{duration: duration, documents: documents, rows: rows}
}

func (r *recorder) document(ctx context.Context, kind string, o outcome, start time.Time) {
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", o.String()),
	)
	r.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	r.documents.Add(ctx, 1, attrs)
}

func (r *recorder) cleaned(ctx context.Context, kind string, n int) {
	r.rows.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
}
