package pgsource

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/testutil/observability/testdoubles" //nolint:revive
	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline/pgsource/internal/adapters"
)

// adapterStub answers every query with the same rows and remembers the SQL it received.
type adapterStub struct {
	columns  []string
	rows     [][]any
	queryErr error
	rowsErr  error
	queries  []string
}

func (a *adapterStub) Query(_ context.Context, query string) (adapters.DBRows, error) {
	a.queries = append(a.queries, query)
	if a.queryErr != nil {
		return nil, a.queryErr
	}

	return &rowsStub{columns: a.columns, rows: a.rows, err: a.rowsErr, index: -1}, nil
}

type rowsStub struct {
	columns []string
	rows    [][]any
	err     error
	index   int
	closed  bool
}

func (r *rowsStub) Columns() ([]string, error) { return r.columns, nil }

func (r *rowsStub) Next() bool {
	r.index++
	return r.index < len(r.rows)
}

func (r *rowsStub) Values() ([]any, error) { return r.rows[r.index], nil }

func (r *rowsStub) Err() error { return r.err }

func (r *rowsStub) Close() error {
	r.closed = true
	return nil
}

func givenSource(t *testing.T, db adapters.DBAdapter, options ...Option) *Source {
	t.Helper()

	source, err := newSource(db, append([]Option{WithTableName("incidents")}, options...)...)
	require.NoError(t, err)

	return source
}

func eventQuery(t *testing.T, cfg timeline.EventConfig) timeline.Query {
	t.Helper()

	q, err := timeline.EventQuery(cfg)
	require.NoError(t, err)

	return q
}

func Test_buildSelectQuery_EventQuery(t *testing.T) {
	// setup
	source := givenSource(t, &adapterStub{})

	// arrange
	q := eventQuery(t, timeline.EventConfig{
		DateField:       "event_date",
		TitleExpression: timeline.Expr("$feature.name"),
		Query: &timeline.QuerySpec{
			Where:   "region = 'north'",
			Filters: []timeline.FilterSpec{{Field: "status", Op: "in", Values: []any{"open", "closed"}}},
		},
	})

	// act
	sqlQuery, err := source.buildSelectQuery(q)

	// assert
	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `SELECT *, ST_AsGeoJSON("geom") AS "__timeline_geojson" FROM "incidents"`)
	assert.Contains(t, sqlQuery, `"event_date" IS NOT NULL`)
	assert.Contains(t, sqlQuery, `"status" IN ('open', 'closed')`)
	assert.Contains(t, sqlQuery, `(region = 'north')`)
	assert.Contains(t, sqlQuery, `ORDER BY "event_date" ASC`)
}

func Test_buildSelectQuery_SelectedFieldsAndSRID(t *testing.T) {
	// setup
	source := givenSource(t, &adapterStub{}, WithGeometryColumn("shape"), WithSRID(4326))

	// arrange
	q := timeline.BuildQuery().
		OutFields("id", "name").
		WithGeometry().
		Where(timeline.Gte("score", 3)).
		Finalize()

	// act
	sqlQuery, err := source.buildSelectQuery(q)

	// assert
	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `SELECT "id", "name", ST_AsGeoJSON(ST_Transform("shape", 4326)) AS "__timeline_geojson"`)
	assert.Contains(t, sqlQuery, `"score" >= 3`)
	assert.NotContains(t, sqlQuery, "ORDER BY")
}

func Test_Query_ScansFeaturesWithGeometry(t *testing.T) {
	// setup
	db := &adapterStub{
		columns: []string{"id", "name", "event_date", "geom", aliasGeoJSON},
		rows: [][]any{
			{int64(1), "bridge", "2020-01-01", "0101000020E6100000", `{"type":"Point","coordinates":[-93.25,44.98]}`},
			{int64(2), "park", "2020-01-02", "raw", `{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2],[0,0]]]}`},
			{int64(3), "no shape", "2020-01-03", nil, nil},
		},
	}
	source := givenSource(t, db, WithObjectIDField("id"))

	// act
	result, err := source.Query(context.Background(), timeline.BuildQuery().WithGeometry().Finalize())

	// assert
	require.NoError(t, err)
	require.Len(t, result.Features, 3)

	first := result.Features[0]
	assert.Equal(t, map[string]any{"id": int64(1), "name": "bridge", "event_date": "2020-01-01"}, first.Attributes)
	assert.Equal(t, timeline.Point{Lon: -93.25, Lat: 44.98}, first.Geometry)

	lonLat, ok := timeline.ExtractLonLat(result.Features[1].Geometry)
	assert.True(t, ok)
	assert.InDelta(t, 1.0, lonLat.Lon(), 1e-9)

	assert.Nil(t, result.Features[2].Geometry)
	assert.Equal(t, "id", source.ObjectIDField())
}

func Test_Query_When_DatabaseFails_Then_SourceQueryError(t *testing.T) {
	// setup
	logHandler := NewLogHandlerSpy(false)
	metrics := NewMetricsCollectorSpy()
	tracing := NewTracingCollectorSpy()
	source := givenSource(t,
		&adapterStub{queryErr: errors.New("relation does not exist")},
		WithLogger(slog.New(logHandler)),
		WithMetrics(metrics),
		WithTracing(tracing),
	)

	// act
	_, err := source.Query(context.Background(), timeline.BuildQuery().Finalize())

	// assert
	assert.ErrorIs(t, err, timeline.ErrQueryingSourceFailed)
	assert.True(t, logHandler.HasErrorLogWithMessage(logMsgDBQueryFailed).WithAttributeKey(logAttrQuery).Assert())
	assert.True(t, metrics.HasCounterRecordForMetric(timeline.MetricSourceErrors).WithErrorType(errorTypeDatabaseQuery).Assert())
	assert.True(t, tracing.HasSpanRecordForName(timeline.SpanNameSourceQuery).WithStatus(timeline.StatusError).Assert())
}

func Test_Query_When_RowsFail_Then_SourceQueryError(t *testing.T) {
	// setup
	db := &adapterStub{columns: []string{"id"}, rowsErr: errors.New("connection reset")}
	source := givenSource(t, db)

	// act
	_, err := source.Query(context.Background(), timeline.BuildQuery().Finalize())

	// assert
	assert.ErrorIs(t, err, timeline.ErrQueryingSourceFailed)
	assert.ErrorContains(t, err, "connection reset")
}

func Test_Observability_Query_WithLogger_LogsSQLAndCompletion(t *testing.T) {
	// setup
	logHandler := NewLogHandlerSpy(false)
	metrics := NewMetricsCollectorSpy()
	tracing := NewTracingCollectorSpy()
	db := &adapterStub{columns: []string{"id"}, rows: [][]any{{int64(1)}, {int64(2)}}}
	source := givenSource(t, db, WithLogger(slog.New(logHandler)), WithMetrics(metrics), WithTracing(tracing))

	// act
	_, err := source.Query(context.Background(), timeline.BuildQuery().Finalize())

	// assert
	require.NoError(t, err)
	assert.True(t, logHandler.HasDebugLogWithMessage("executed sql for: query").WithDurationMS().WithAttributeKey(logAttrQuery).Assert())
	assert.True(t,
		logHandler.HasInfoLogWithMessage("feature source operation: query completed").
			WithDurationMS().
			WithAttribute(logAttrFeatureCount, 2).
			Assert(),
	)
	assert.True(t, metrics.HasDurationRecordForMetric(timeline.MetricSourceQueryDuration).WithStatus(timeline.StatusSuccess).Assert())
	assert.True(t,
		tracing.HasSpanRecordForName(timeline.SpanNameSourceQuery).
			WithStatus(timeline.StatusSuccess).
			WithStartAttribute(spanAttrTable, "incidents").
			WithEndAttribute(spanAttrFeatureCount, "2").
			Assert(),
	)
}

func Test_Features_UsesStandingFilter(t *testing.T) {
	// setup
	db := &adapterStub{columns: []string{"id"}, rows: [][]any{{int64(1)}}}
	source := givenSource(t, db)

	// arrange
	q := eventQuery(t, timeline.EventConfig{DateField: "event_date", TitleExpression: timeline.Expr("$feature.name")})

	// act
	_, beforeErr := source.Features(context.Background())
	applyErr := source.ApplyStandingFilter(context.Background(), q)
	_, afterErr := source.Features(context.Background())

	// assert
	require.NoError(t, beforeErr)
	require.NoError(t, applyErr)
	require.NoError(t, afterErr)
	require.Len(t, db.queries, 2)
	assert.NotContains(t, db.queries[0], "WHERE")
	assert.Contains(t, db.queries[1], `"event_date" IS NOT NULL`)
	assert.Equal(t, "event_date is not null", source.StandingFilter())
}

func Test_newSource_When_InvalidOptions_Then_Error(t *testing.T) {
	tests := []struct {
		name     string
		options  []Option
		expected error
	}{
		{name: "missing_table", options: nil, expected: ErrEmptyTableName},
		{name: "empty_table", options: []Option{WithTableName("")}, expected: ErrEmptyTableName},
		{name: "empty_geometry_column", options: []Option{WithTableName("t"), WithGeometryColumn("")}, expected: ErrEmptyGeometryColumn},
		{name: "negative_srid", options: []Option{WithTableName("t"), WithSRID(-1)}, expected: ErrInvalidSRID},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newSource(&adapterStub{}, tc.options...)

			assert.ErrorIs(t, err, tc.expected)
		})
	}
}
