package timeline

import (
	"context"
	"fmt"
	"math"
	"time"
)

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// === Logging ===
// Every message goes to the plain logger and, with the context attached, to the contextual logger.

func (b *Builder) logDebug(ctx context.Context, msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}

	if b.contextualLogger != nil {
		b.contextualLogger.DebugContext(ctx, msg, args...)
	}
}

func (b *Builder) logInfo(ctx context.Context, msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}

	if b.contextualLogger != nil {
		b.contextualLogger.InfoContext(ctx, msg, args...)
	}
}

func (b *Builder) logWarn(ctx context.Context, msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}

	if b.contextualLogger != nil {
		b.contextualLogger.WarnContext(ctx, msg, args...)
	}
}

// logError logs error information at the error level if a logger is configured.
func (b *Builder) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if b.logger != nil {
		b.logger.Error(msg, allArgs...)
	}

	if b.contextualLogger != nil {
		b.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	}
}

// === Metrics ===

// recordDuration records duration metrics with context if the collector supports it.
func (b *Builder) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if b.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := b.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	b.metricsCollector.RecordDuration(metric, duration, labels)
}

// recordValue records value metrics with context if the collector supports it.
func (b *Builder) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if b.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := b.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metric, value, labels)
		return
	}

	b.metricsCollector.RecordValue(metric, value, labels)
}

// incrementCounter increments a counter with context if the collector supports it.
func (b *Builder) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if b.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := b.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	b.metricsCollector.IncrementCounter(metric, labels)
}

func (b *Builder) recordEvaluationError(ctx context.Context, role string) {
	b.incrementCounter(ctx, MetricEvaluationErrors, map[string]string{
		metricLabelOperation:      operationEvaluate,
		metricLabelExpressionRole: role,
	})
}

// buildMetricsObserver encapsulates the metrics collection for one build.
type buildMetricsObserver struct {
	b         *Builder
	ctx       context.Context
	dateField string
}

func (b *Builder) startBuildMetrics(ctx context.Context, dateField string) *buildMetricsObserver {
	return &buildMetricsObserver{
		b:         b,
		ctx:       ctx,
		dateField: dateField,
	}
}

// recordSuccess records all metrics for a successful build.
func (bmo *buildMetricsObserver) recordSuccess(eventCount int, duration time.Duration) {
	labels := map[string]string{
		metricLabelOperation: operationBuild,
		metricLabelStatus:    StatusSuccess,
		metricLabelDateField: bmo.dateField,
	}

	bmo.b.recordDuration(bmo.ctx, MetricBuildDuration, duration, labels)
	bmo.b.recordValue(bmo.ctx, MetricEventsBuilt, float64(eventCount), labels)
}

// recordError records all metrics for a failed build.
func (bmo *buildMetricsObserver) recordError(errorType string, duration time.Duration) {
	bmo.b.recordDuration(bmo.ctx, MetricBuildDuration, duration, map[string]string{
		metricLabelOperation: operationBuild,
		metricLabelStatus:    StatusError,
		metricLabelDateField: bmo.dateField,
	})

	bmo.b.incrementCounter(bmo.ctx, MetricBuildErrors, map[string]string{
		metricLabelOperation: operationBuild,
		metricLabelStatus:    StatusError,
		metricLabelErrorType: errorType,
	})
}

// === Tracing ===

// buildTracingObserver encapsulates the span lifecycle of one build.
type buildTracingObserver struct {
	b    *Builder
	span SpanContext
}

func (b *Builder) startBuildTracing(ctx context.Context, buildID, dateField string) (*buildTracingObserver, context.Context) {
	if b.tracingCollector == nil {
		return &buildTracingObserver{b: b}, ctx
	}

	newCtx, span := b.tracingCollector.StartSpan(ctx, SpanNameBuild, map[string]string{
		spanAttrBuildID:   buildID,
		spanAttrDateField: dateField,
	})

	return &buildTracingObserver{b: b, span: span}, newCtx
}

// finishSuccess completes the build span with the feature and event counts.
func (bto *buildTracingObserver) finishSuccess(featureCount, eventCount int, duration time.Duration) {
	if bto.span == nil {
		return
	}

	bto.span.SetStatus(StatusSuccess)
	bto.span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", toMilliseconds(duration)))

	bto.b.tracingCollector.FinishSpan(bto.span, StatusSuccess, map[string]string{
		spanAttrFeatureCount: fmt.Sprintf("%d", featureCount),
		spanAttrEventCount:   fmt.Sprintf("%d", eventCount),
	})
}

// finishError completes the build span with error details.
func (bto *buildTracingObserver) finishError(errorType string, duration time.Duration) {
	if bto.span == nil {
		return
	}

	bto.span.SetStatus(StatusError)
	bto.span.AddAttribute(spanAttrErrorType, errorType)

	if duration > 0 {
		bto.span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", toMilliseconds(duration)))
	}

	bto.b.tracingCollector.FinishSpan(bto.span, StatusError, map[string]string{spanAttrErrorType: errorType})
}
