package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
)

const attrStatus = "status"

// TracingCollector opens one OpenTelemetry span per timeline build and per source query.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a collector on a tracer from the application's TracerProvider.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, timeline.SpanContext) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))

	return spanCtx, &SpanContext{span: span}
}

// FinishSpan ends spans started by this collector. Foreign SpanContext implementations are ignored.
func (t *TracingCollector) FinishSpan(spanCtx timeline.SpanContext, status string, attrs map[string]string) {
	s, ok := spanCtx.(*SpanContext)
	if !ok {
		return
	}

	s.span.SetAttributes(toAttributes(attrs)...)
	s.SetStatus(status)
	s.span.End()
}

var _ timeline.TracingCollector = (*TracingCollector)(nil)

// SpanContext wraps an OpenTelemetry span.
type SpanContext struct {
	span trace.Span
}

// SetStatus maps the timeline status values onto span status codes.
// A superseded build is not an error; it is recorded as an attribute only.
func (s *SpanContext) SetStatus(status string) {
	switch status {
	case timeline.StatusSuccess, "ok":
		s.span.SetStatus(codes.Ok, "")
	case timeline.StatusError, "failed":
		s.span.SetStatus(codes.Error, "timeline operation failed")
	case "canceled", "cancelled":
		s.span.SetStatus(codes.Error, "timeline operation canceled")
	default:
		s.span.SetAttributes(attribute.String(attrStatus, status))
	}
}

func (s *SpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ timeline.SpanContext = (*SpanContext)(nil)
