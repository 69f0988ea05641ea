package timeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	logMsgBuildCompleted         = "timeline build completed"
	logMsgBuildFailed            = "timeline build failed"
	logMsgEventQueryIssued       = "issuing event query"
	logMsgSubtitleFailed         = "subtitle expression failed, subtitle omitted"
	logMsgDescriptionFailed      = "description expression failed, description omitted"
	logMsgInvalidDate            = "date value could not be parsed"
	logMsgSourceNotSorted        = "source returned events out of date order"
	logMsgUnsupportedGeometry    = "geometry cannot be reduced to a location"
	logAttrError                 = "error"
	logAttrBuildID               = "build_id"
	logAttrDateField             = "date_field"
	logAttrWhere                 = "where"
	logAttrEventCount            = "event_count"
	logAttrFeatureCount          = "feature_count"
	logAttrDurationMS            = "duration_ms"
	logAttrObjectID              = "object_id"
	logAttrIndex                 = "index"
	logAttrGeometryKind          = "geometry_kind"
	errorTypeValidation          = "validation_error"
	errorTypeQuery               = "query_error"
	errorTypeStandingFilter      = "standing_filter_error"
	errorTypeCompile             = "compile_error"
	errorTypeEvaluation          = "evaluation_error"
	errorTypeCanceled            = "canceled"
	expressionRoleTitle          = "title"
	expressionRoleSubtitle       = "subtitle"
	expressionRoleDescription    = "description"
	defaultBuilderParallelism    = 1
	spanAttrBuildID              = "build_id"
	spanAttrDateField            = "date_field"
	spanAttrEventCount           = "event_count"
	spanAttrFeatureCount         = "feature_count"
	spanAttrErrorType            = "error_type"
	spanAttrDurationMS           = "duration_ms"
	metricLabelStatus            = "status"
	metricLabelErrorType         = "error_type"
	metricLabelExpressionRole    = "expression"
	metricLabelDateField         = "date_field"
	metricLabelOperation         = "operation"
	operationBuild               = "build"
	operationEvaluate            = "evaluate"
	invalidDateEpochMilliseconds = 0
)

// Builder turns the records of a Source into a date-ordered list of Events.
// It is safe for concurrent use; every BuildEvents call compiles its own expressions.
type Builder struct {
	evaluator        Evaluator
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
	parallelism      int
	verifySort       bool
}

// NewBuilder creates a Builder that compiles expressions with the given evaluator.
func NewBuilder(evaluator Evaluator, options ...BuilderOption) (*Builder, error) {
	if evaluator == nil {
		return nil, ErrNilEvaluator
	}

	b := &Builder{
		evaluator:   evaluator,
		parallelism: defaultBuilderParallelism,
	}

	for _, option := range options {
		if err := option(b); err != nil {
			return nil, err
		}
	}

	return b, nil
}

type compiledExpressions struct {
	title       CompiledExpression
	subtitle    CompiledExpression
	description CompiledExpression
}

// BuildEvents queries the source for all records with a non-null date field, makes the query's
// where clause the source's standing filter, and derives one Event per record in source order.
//
// The source is expected to honor the requested ascending date order; the builder does not re-sort.
// Any failure of the query, the standing filter, a compilation or a title evaluation aborts the
// build and no events are returned. Subtitle and description failures only drop that field.
func (b *Builder) BuildEvents(ctx context.Context, source Source, cfg EventConfig) ([]Event, error) {
	start := time.Now()
	buildID := uuid.NewString()

	tracer, ctx := b.startBuildTracing(ctx, buildID, cfg.DateField)
	metrics := b.startBuildMetrics(ctx, cfg.DateField)

	fail := func(errorType string, err error) ([]Event, error) {
		duration := time.Since(start)
		b.logError(ctx, logMsgBuildFailed, err, logAttrBuildID, buildID, logAttrDateField, cfg.DateField)
		metrics.recordError(errorType, duration)
		tracer.finishError(errorType, duration)

		return nil, err
	}

	if source == nil {
		return fail(errorTypeValidation, ErrNilSource)
	}

	if err := cfg.Validate(); err != nil {
		return fail(errorTypeValidation, err)
	}

	query, err := EventQuery(cfg)
	if err != nil {
		return fail(errorTypeValidation, err)
	}

	b.logDebug(ctx, logMsgEventQueryIssued, logAttrBuildID, buildID, logAttrWhere, query.Where())

	result, err := source.Query(ctx, query)
	if err != nil {
		if errors.Is(err, ErrQueryingSourceFailed) {
			return fail(errorTypeQuery, err)
		}

		return fail(errorTypeQuery, errors.Join(ErrQueryingSourceFailed, err))
	}

	if err = source.ApplyStandingFilter(ctx, query); err != nil {
		if errors.Is(err, ErrApplyingStandingFilterFailed) {
			return fail(errorTypeStandingFilter, err)
		}

		return fail(errorTypeStandingFilter, errors.Join(ErrApplyingStandingFilterFailed, err))
	}

	expressions, err := b.compile(cfg)
	if err != nil {
		return fail(errorTypeCompile, err)
	}

	objectIDField := source.ObjectIDField()
	if objectIDField == "" {
		objectIDField = cfg.ObjectIDField
	}

	events, err := b.buildAll(ctx, expressions, result.Features, cfg, objectIDField)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return fail(errorTypeCanceled, err)
		}

		return fail(errorTypeEvaluation, err)
	}

	if b.verifySort {
		b.verifyOrder(ctx, events)
	}

	duration := time.Since(start)
	b.logInfo(
		ctx,
		logMsgBuildCompleted,
		logAttrBuildID, buildID,
		logAttrFeatureCount, len(result.Features),
		logAttrEventCount, len(events),
		logAttrDurationMS, toMilliseconds(duration),
	)
	metrics.recordSuccess(len(events), duration)
	tracer.finishSuccess(len(result.Features), len(events), duration)

	return events, nil
}

func (b *Builder) compile(cfg EventConfig) (compiledExpressions, error) {
	var compiled compiledExpressions
	var err error

	if compiled.title, err = b.compileOne(cfg.TitleExpression, expressionRoleTitle); err != nil {
		return compiledExpressions{}, err
	}

	if cfg.SubtitleExpression != nil && !cfg.SubtitleExpression.IsZero() {
		if compiled.subtitle, err = b.compileOne(*cfg.SubtitleExpression, expressionRoleSubtitle); err != nil {
			return compiledExpressions{}, err
		}
	}

	if cfg.DescriptionExpression != nil && !cfg.DescriptionExpression.IsZero() {
		if compiled.description, err = b.compileOne(*cfg.DescriptionExpression, expressionRoleDescription); err != nil {
			return compiledExpressions{}, err
		}
	}

	return compiled, nil
}

func (b *Builder) compileOne(spec ExpressionSpec, role string) (CompiledExpression, error) {
	compiled, err := b.evaluator.Compile(spec)
	if err != nil {
		if !errors.Is(err, ErrCompilingExpressionFailed) {
			err = errors.Join(ErrCompilingExpressionFailed, err)
		}

		return nil, fmt.Errorf("%s expression: %w", role, err)
	}

	return compiled, nil
}

func (b *Builder) buildAll(
	ctx context.Context,
	expressions compiledExpressions,
	features Features,
	cfg EventConfig,
	objectIDField string,
) ([]Event, error) {

	built := make([]*Event, len(features))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.parallelism)

	for i, feature := range features {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			event, ok, err := b.buildEvent(groupCtx, expressions, feature, cfg, objectIDField)
			if err != nil {
				return err
			}

			if ok {
				built[i] = &event
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(features))
	for _, event := range built {
		if event != nil {
			events = append(events, *event)
		}
	}

	return events, nil
}

// buildEvent derives the Event for one feature. It reports false for features whose date
// attribute is null; the query already excludes them but not every source enforces it.
func (b *Builder) buildEvent(
	ctx context.Context,
	expressions compiledExpressions,
	feature Feature,
	cfg EventConfig,
	objectIDField string,
) (Event, bool, error) {

	rawDate, ok := feature.Attribute(cfg.DateField)
	if !ok {
		return Event{}, false, nil
	}

	objectID, _ := feature.ObjectID(objectIDField)
	event := Event{ObjectID: objectID}

	date, err := ParseDate(rawDate, cfg.InUTC())
	if err != nil {
		b.logWarn(ctx, logMsgInvalidDate, logAttrObjectID, objectID, logAttrDateField, cfg.DateField, logAttrError, err.Error())
		event.Date = invalidDateEpochMilliseconds
		event.FormattedDate = InvalidDate
	} else {
		event.Date = date.UnixMilli()
		event.FormattedDate = formatTime(date, cfg.EffectiveDateFormat())
	}

	if lonLat, found := ExtractLonLat(feature.Geometry); found {
		event.LonLat = &lonLat
	} else if feature.Geometry != nil {
		b.logDebug(ctx, logMsgUnsupportedGeometry, logAttrObjectID, objectID, logAttrGeometryKind, feature.Geometry.geometryKind())
	}

	title, err := EvaluateForFeature(ctx, expressions.title, feature, nil)
	if err != nil {
		b.recordEvaluationError(ctx, expressionRoleTitle)
		return Event{}, false, fmt.Errorf("title expression for feature %v: %w", objectID, err)
	}

	event.Title = scalarToString(title)
	event.Subtitle = b.evaluateOptional(ctx, expressions.subtitle, feature, objectID, expressionRoleSubtitle, logMsgSubtitleFailed)
	event.Description = b.evaluateOptional(ctx, expressions.description, feature, objectID, expressionRoleDescription, logMsgDescriptionFailed)

	return event, true, nil
}

func (b *Builder) evaluateOptional(
	ctx context.Context,
	expr CompiledExpression,
	feature Feature,
	objectID any,
	role string,
	failureMsg string,
) *string {

	if expr == nil {
		return nil
	}

	value, err := EvaluateForFeature(ctx, expr, feature, nil)
	if err != nil {
		b.recordEvaluationError(ctx, role)
		b.logWarn(ctx, failureMsg, logAttrObjectID, objectID, logAttrError, err.Error())

		return nil
	}

	if value == nil {
		return nil
	}

	rendered := scalarToString(value)

	return &rendered
}

func (b *Builder) verifyOrder(ctx context.Context, events []Event) {
	for i := 1; i < len(events); i++ {
		if events[i].Date < events[i-1].Date {
			b.logWarn(ctx, logMsgSourceNotSorted, logAttrIndex, i, logAttrObjectID, events[i].ObjectID)
			return
		}
	}
}

// scalarToString renders an expression result for display; nil renders as "".
func scalarToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
