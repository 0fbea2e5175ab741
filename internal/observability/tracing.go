package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of the scanner tracer.
const TracerName = "github.com/jonesrussell/competitive-scan"

// Tracer starts the spans of the scan pipeline.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer from the global provider.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// ScanSpan starts the root span of one client scan.
// Caller is responsible for calling span.End().
//
//nolint:spancheck // span is returned to caller who manages its lifecycle
func (t *Tracer) ScanSpan(ctx context.Context, clientID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "scan.execute",
		trace.WithAttributes(attribute.String("client.id", clientID)),
	)
}

// StageSpan starts a span for one pipeline stage.
// Caller is responsible for calling span.End().
//
//nolint:spancheck // span is returned to caller who manages its lifecycle
func (t *Tracer) StageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "scan."+stage)
}

// ProviderSpan starts a span for one provider lookup.
// Caller is responsible for calling span.End().
//
//nolint:spancheck // span is returned to caller who manages its lifecycle
func (t *Tracer) ProviderSpan(ctx context.Context, providerName, family, cacheKey string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "provider.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("provider.name", providerName),
			attribute.String("provider.family", family),
			attribute.String("cache.key", cacheKey),
		),
	)
}

// RecordError marks span as failed.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
