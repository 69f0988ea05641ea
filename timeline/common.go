package timeline

import (
	"errors"
)

var (
	// ErrCompilingExpressionFailed is returned when a script is malformed or references an undeclared variable.
	ErrCompilingExpressionFailed = errors.New("compiling expression failed")

	// ErrEvaluatingExpressionFailed is returned when a compiled expression fails for one feature.
	ErrEvaluatingExpressionFailed = errors.New("evaluating expression failed")

	// ErrQueryingSourceFailed is returned when the feature source rejects the event query.
	ErrQueryingSourceFailed = errors.New("querying feature source failed")

	// ErrApplyingStandingFilterFailed is returned when the source refuses the standing filter.
	ErrApplyingStandingFilterFailed = errors.New("applying standing filter failed")

	// ErrBuildingQueryFailed is returned when a source cannot translate a Query into its own query language.
	ErrBuildingQueryFailed = errors.New("building source query failed")

	// ErrRawWhereUnsupported is returned by sources that only understand structured predicates.
	ErrRawWhereUnsupported = errors.New("raw where clauses are not supported by this source")
)

var (
	// ErrNilSource is returned when a Builder is created without a feature source.
	ErrNilSource = errors.New("feature source must not be nil")

	// ErrNilEvaluator is returned when a Builder is created without an expression evaluator.
	ErrNilEvaluator = errors.New("expression evaluator must not be nil")

	// ErrEmptyDateField is returned when an EventConfig names no date field.
	ErrEmptyDateField = errors.New("date field must not be empty")

	// ErrMissingTitleExpression is returned when an EventConfig has no title expression.
	ErrMissingTitleExpression = errors.New("title expression is required")

	// ErrEmptyScript is returned when an expression script is blank.
	ErrEmptyScript = errors.New("expression script must not be empty")

	// ErrInvalidParallelism is returned for a worker count below one.
	ErrInvalidParallelism = errors.New("parallelism must be positive")

	// ErrParsingDateFailed is returned by ParseDate for values that are not dates.
	ErrParsingDateFailed = errors.New("parsing date value failed")
)

var (
	// ErrEventIndexOutOfRange is returned by Navigator.Goto for an index outside the loaded events.
	ErrEventIndexOutOfRange = errors.New("event index out of range")

	// ErrEventNotFound is returned by Navigator.GotoObjectID when no event carries the object id.
	ErrEventNotFound = errors.New("event not found")

	// ErrReloadSuperseded is returned by Loader.Reload when a newer reload started before this one finished.
	ErrReloadSuperseded = errors.New("reload superseded by a newer reload")
)

// InvalidDate is what FormatDate renders for values it cannot parse.
const InvalidDate = "Invalid Date"
