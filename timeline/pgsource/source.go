package pgsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb/geojson"

	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline/pgsource/internal/adapters"
)

const (
	defaultGeometryColumn      = "geom"
	dialectPostgres            = "postgres"
	aliasGeoJSON               = "__timeline_geojson"
	funcAsGeoJSON              = "ST_AsGeoJSON"
	funcTransform              = "ST_Transform"
	logMsgBuildSelectFailed    = "failed to build select query"
	logMsgDBQueryFailed        = "database query execution failed"
	logMsgReadRowsFailed       = "failed to read database rows"
	logMsgCloseRowsFailed      = "failed to close database rows"
	logMsgDecodeGeometryFailed = "failed to decode geometry"
	logMsgQueryCompleted       = "query completed"
	logMsgStandingFilterSet    = "standing filter applied"
	logMsgSQLExecuted          = "executed sql for: "
	logMsgOperation            = "feature source operation: "
	logAttrError               = "error"
	logAttrQuery               = "query"
	logAttrTable               = "table"
	logAttrWhere               = "where"
	logAttrFeatureCount        = "feature_count"
	logAttrDurationMS          = "duration_ms"
	logActionQuery             = "query"
	logActionFeatures          = "features"
	errorTypeBuildQuery        = "build_query_error"
	errorTypeDatabaseQuery     = "database_query_error"
	errorTypeReadRows          = "read_rows_error"
)

var (
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")
	ErrEmptyTableName        = errors.New("table name must not be empty")
	ErrEmptyGeometryColumn   = errors.New("geometry column must not be empty")
	ErrInvalidSRID           = errors.New("srid must be positive")
)

// Source reads features from one PostGIS table.
// It is safe for concurrent use.
type Source struct {
	db               adapters.DBAdapter
	tableName        string
	geometryColumn   string
	objectIDField    string
	srid             int
	logger           timeline.Logger
	contextualLogger timeline.ContextualLogger
	metricsCollector timeline.MetricsCollector
	tracingCollector timeline.TracingCollector

	mu             sync.RWMutex
	standingFilter *timeline.Query
}

// NewFromPGXPool creates a new Source using a pgx Pool with optional configuration.
func NewFromPGXPool(db *pgxpool.Pool, options ...Option) (*Source, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newSource(adapters.NewPGXAdapter(db), options...)
}

// NewFromPGXPoolWithReplica creates a new Source that reads from a replica pool.
func NewFromPGXPoolWithReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*Source, error) {
	if db == nil || replica == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newSource(adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewFromSQLDB creates a new Source using a sql.DB with optional configuration.
func NewFromSQLDB(db *sql.DB, options ...Option) (*Source, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newSource(adapters.NewSQLAdapter(db), options...)
}

// NewFromSQLX creates a new Source using a sqlx.DB with optional configuration.
func NewFromSQLX(db *sqlx.DB, options ...Option) (*Source, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newSource(adapters.NewSQLXAdapter(db), options...)
}

func newSource(db adapters.DBAdapter, options ...Option) (*Source, error) {
	s := &Source{
		db:             db,
		geometryColumn: defaultGeometryColumn,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	if s.tableName == "" {
		return nil, ErrEmptyTableName
	}

	return s, nil
}

// ObjectIDField implements timeline.Source.
func (s *Source) ObjectIDField() string {
	return s.objectIDField
}

// Query implements timeline.Source.
func (s *Source) Query(ctx context.Context, q timeline.Query) (timeline.QueryResult, error) {
	features, err := s.run(ctx, q, logActionQuery)
	if err != nil {
		return timeline.QueryResult{}, err
	}

	return timeline.QueryResult{Features: features}, nil
}

// ApplyStandingFilter implements timeline.Source. The query must translate to SQL.
func (s *Source) ApplyStandingFilter(ctx context.Context, q timeline.Query) error {
	if _, err := s.buildSelectQuery(q); err != nil {
		return errors.Join(timeline.ErrApplyingStandingFilterFailed, err)
	}

	s.mu.Lock()
	s.standingFilter = &q
	s.mu.Unlock()

	s.logOperation(ctx, logMsgStandingFilterSet, logAttrTable, s.tableName, logAttrWhere, q.Where())

	return nil
}

// StandingFilter returns the where clause of the standing filter, "" when none is set.
func (s *Source) StandingFilter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.standingFilter == nil {
		return ""
	}

	return s.standingFilter.Where()
}

// Features reads all features under the standing filter, with geometries.
func (s *Source) Features(ctx context.Context) (timeline.Features, error) {
	s.mu.RLock()
	q := timeline.BuildQuery().WithGeometry().Finalize()
	if s.standingFilter != nil {
		q = *s.standingFilter
	}
	s.mu.RUnlock()

	return s.run(ctx, q, logActionFeatures)
}

func (s *Source) run(ctx context.Context, q timeline.Query, action string) (timeline.Features, error) {
	tracer, ctx := s.startQueryTracing(ctx, action)
	metrics := s.startQueryMetrics(ctx, action)

	sqlQuery, err := s.buildSelectQuery(q)
	if err != nil {
		s.logError(ctx, logMsgBuildSelectFailed, err)
		metrics.recordError(errorTypeBuildQuery, 0)
		tracer.finishError(errorTypeBuildQuery, 0)

		return nil, errors.Join(timeline.ErrQueryingSourceFailed, timeline.ErrBuildingQueryFailed, err)
	}

	start := time.Now()

	rows, err := s.db.Query(ctx, sqlQuery)
	if err != nil {
		duration := time.Since(start)
		s.logError(ctx, logMsgDBQueryFailed, err, logAttrQuery, sqlQuery)
		metrics.recordError(errorTypeDatabaseQuery, duration)
		tracer.finishError(errorTypeDatabaseQuery, duration)

		return nil, errors.Join(timeline.ErrQueryingSourceFailed, err)
	}

	features, err := s.readFeatures(ctx, rows)
	if err != nil {
		duration := time.Since(start)
		s.logError(ctx, logMsgReadRowsFailed, err, logAttrQuery, sqlQuery)
		metrics.recordError(errorTypeReadRows, duration)
		tracer.finishError(errorTypeReadRows, duration)

		return nil, errors.Join(timeline.ErrQueryingSourceFailed, err)
	}

	duration := time.Since(start)
	s.logQueryWithDuration(ctx, sqlQuery, action, duration)
	s.logOperation(
		ctx,
		logMsgOperation+logMsgQueryCompleted,
		logAttrTable, s.tableName,
		logAttrFeatureCount, len(features),
		logAttrDurationMS, toMilliseconds(duration),
	)
	metrics.recordSuccess(duration)
	tracer.finishSuccess(len(features), duration)

	return features, nil
}

func (s *Source) readFeatures(ctx context.Context, rows adapters.DBRows) (features timeline.Features, err error) {
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logError(ctx, logMsgCloseRowsFailed, closeErr)
		}
	}()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	features = make(timeline.Features, 0)
	for rows.Next() {
		values, valuesErr := rows.Values()
		if valuesErr != nil {
			return nil, valuesErr
		}

		features = append(features, s.toFeature(ctx, columns, values))
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return features, nil
}

func (s *Source) toFeature(ctx context.Context, columns []string, values []any) timeline.Feature {
	feature := timeline.Feature{Attributes: make(map[string]any, len(columns))}

	for i, column := range columns {
		switch column {
		case aliasGeoJSON:
			feature.Geometry = s.decodeGeometry(ctx, values[i])
		case s.geometryColumn:
			// raw EWKB, the GeoJSON rendition is used instead
		default:
			feature.Attributes[column] = values[i]
		}
	}

	return feature
}

func (s *Source) decodeGeometry(ctx context.Context, value any) timeline.Geometry {
	var raw []byte

	switch v := value.(type) {
	case nil:
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		s.logError(ctx, logMsgDecodeGeometryFailed, fmt.Errorf("unexpected geometry value type %T", value))
		return nil
	}

	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		s.logError(ctx, logMsgDecodeGeometryFailed, err)
		return nil
	}

	return timeline.GeometryFromOrb(g.Geometry())
}

// buildSelectQuery translates the timeline query into a SELECT on the feature table.
func (s *Source) buildSelectQuery(q timeline.Query) (string, error) {
	selects := make([]any, 0, len(q.OutFields())+2)
	if q.AllFields() {
		selects = append(selects, goqu.Star())
	} else {
		for _, field := range q.OutFields() {
			selects = append(selects, goqu.C(field))
		}
	}

	if q.ReturnGeometry() {
		var geometry any = goqu.C(s.geometryColumn)
		if s.srid > 0 {
			geometry = goqu.Func(funcTransform, goqu.C(s.geometryColumn), s.srid)
		}

		selects = append(selects, goqu.Func(funcAsGeoJSON, geometry).As(aliasGeoJSON))
	}

	where, err := whereExpressions(q)
	if err != nil {
		return "", err
	}

	orderBy := make([]exp.OrderedExpression, 0, len(q.OrderByFields()))
	for _, field := range q.OrderByFields() {
		orderBy = append(orderBy, goqu.C(field).Asc())
	}

	builder := goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select(selects...)

	if len(where) > 0 {
		builder = builder.Where(where...)
	}

	if len(orderBy) > 0 {
		builder = builder.Order(orderBy...)
	}

	sqlQuery, _, err := builder.ToSQL()
	if err != nil {
		return "", err
	}

	return sqlQuery, nil
}

func whereExpressions(q timeline.Query) ([]exp.Expression, error) {
	expressions := make([]exp.Expression, 0, len(q.Predicates())+1)

	for _, predicate := range q.Predicates() {
		column := goqu.C(predicate.Field())

		switch predicate.Op() {
		case timeline.OpIsNotNull:
			expressions = append(expressions, column.IsNotNull())
		case timeline.OpIsNull:
			expressions = append(expressions, column.IsNull())
		case timeline.OpEq:
			expressions = append(expressions, column.Eq(predicate.Value()))
		case timeline.OpNeq:
			expressions = append(expressions, column.Neq(predicate.Value()))
		case timeline.OpGt:
			expressions = append(expressions, column.Gt(predicate.Value()))
		case timeline.OpGte:
			expressions = append(expressions, column.Gte(predicate.Value()))
		case timeline.OpLt:
			expressions = append(expressions, column.Lt(predicate.Value()))
		case timeline.OpLte:
			expressions = append(expressions, column.Lte(predicate.Value()))
		case timeline.OpIn:
			expressions = append(expressions, column.In(predicate.Values()...))
		default:
			return nil, fmt.Errorf("unsupported operator %q on %s", predicate.Op(), predicate.Field())
		}
	}

	if raw := q.RawWhere(); raw != "" {
		expressions = append(expressions, goqu.L("("+raw+")"))
	}

	return expressions, nil
}

var _ timeline.Source = (*Source)(nil)
