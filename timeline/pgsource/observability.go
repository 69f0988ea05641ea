package pgsource

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
)

const (
	spanAttrOperation    = "operation"
	spanAttrTable        = "table"
	spanAttrFeatureCount = "feature_count"
	spanAttrErrorType    = "error_type"
	spanAttrDurationMS   = "duration_ms"
	metricLabelStatus    = "status"
)

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// logQueryWithDuration logs SQL queries with execution time at debug level if a logger is configured.
func (s *Source) logQueryWithDuration(ctx context.Context, sqlQuery, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+action, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (s *Source) logOperation(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, msg, args...)
	}
}

// logError logs error information at the error level if a logger is configured.
func (s *Source) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if s.logger != nil {
		s.logger.Error(msg, allArgs...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	}
}

// === Metrics Observer Pattern ===

// queryMetricsObserver encapsulates the metrics collection for one query.
type queryMetricsObserver struct {
	s         *Source
	ctx       context.Context
	operation string
}

func (s *Source) startQueryMetrics(ctx context.Context, operation string) *queryMetricsObserver {
	return &queryMetricsObserver{s: s, ctx: ctx, operation: operation}
}

func (qmo *queryMetricsObserver) recordSuccess(duration time.Duration) {
	qmo.recordDuration(duration, timeline.StatusSuccess)
}

func (qmo *queryMetricsObserver) recordError(errorType string, duration time.Duration) {
	qmo.recordDuration(duration, timeline.StatusError)

	collector := qmo.s.metricsCollector
	if collector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: qmo.operation,
		metricLabelStatus: timeline.StatusError,
		spanAttrErrorType: errorType,
		spanAttrTable:     qmo.s.tableName,
	}

	if contextualCollector, ok := collector.(timeline.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(qmo.ctx, timeline.MetricSourceErrors, labels)
		return
	}

	collector.IncrementCounter(timeline.MetricSourceErrors, labels)
}

func (qmo *queryMetricsObserver) recordDuration(duration time.Duration, status string) {
	collector := qmo.s.metricsCollector
	if collector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: qmo.operation,
		metricLabelStatus: status,
		spanAttrTable:     qmo.s.tableName,
	}

	if contextualCollector, ok := collector.(timeline.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(qmo.ctx, timeline.MetricSourceQueryDuration, duration, labels)
		return
	}

	collector.RecordDuration(timeline.MetricSourceQueryDuration, duration, labels)
}

// === Tracing Observer Pattern ===

// queryTracingObserver encapsulates the span lifecycle of one query.
type queryTracingObserver struct {
	s    *Source
	span timeline.SpanContext
}

func (s *Source) startQueryTracing(ctx context.Context, operation string) (*queryTracingObserver, context.Context) {
	if s.tracingCollector == nil {
		return &queryTracingObserver{s: s}, ctx
	}

	newCtx, span := s.tracingCollector.StartSpan(ctx, timeline.SpanNameSourceQuery, map[string]string{
		spanAttrOperation: operation,
		spanAttrTable:     s.tableName,
	})

	return &queryTracingObserver{s: s, span: span}, newCtx
}

func (qto *queryTracingObserver) finishSuccess(featureCount int, duration time.Duration) {
	if qto.span == nil {
		return
	}

	qto.span.SetStatus(timeline.StatusSuccess)
	qto.span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", toMilliseconds(duration)))
	qto.s.tracingCollector.FinishSpan(qto.span, timeline.StatusSuccess, map[string]string{
		spanAttrFeatureCount: fmt.Sprintf("%d", featureCount),
	})
}

func (qto *queryTracingObserver) finishError(errorType string, duration time.Duration) {
	if qto.span == nil {
		return
	}

	qto.span.SetStatus(timeline.StatusError)
	qto.span.AddAttribute(spanAttrErrorType, errorType)

	if duration > 0 {
		qto.span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", toMilliseconds(duration)))
	}

	qto.s.tracingCollector.FinishSpan(qto.span, timeline.StatusError, map[string]string{spanAttrErrorType: errorType})
}
