package pgsource

import (
	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
)

// Option defines a functional option for configuring a Source.
type Option func(*Source) error

// WithTableName sets the feature table, optionally schema qualified ("gis.incidents").
func WithTableName(tableName string) Option {
	return func(s *Source) error {
		if tableName == "" {
			return ErrEmptyTableName
		}

		s.tableName = tableName

		return nil
	}
}

// WithGeometryColumn sets the PostGIS geometry column. Defaults to "geom".
func WithGeometryColumn(column string) Option {
	return func(s *Source) error {
		if column == "" {
			return ErrEmptyGeometryColumn
		}

		s.geometryColumn = column

		return nil
	}
}

// WithObjectIDField declares the column carrying feature identity.
func WithObjectIDField(field string) Option {
	return func(s *Source) error {
		s.objectIDField = field
		return nil
	}
}

// WithSRID reprojects geometries to the given SRID (e.g. 4326) before they are returned.
func WithSRID(srid int) Option {
	return func(s *Source) error {
		if srid <= 0 {
			return ErrInvalidSRID
		}

		s.srid = srid

		return nil
	}
}

// WithLogger sets the logger for the Source.
// Debug level: SQL statements with execution timing
// Info level: row counts and durations
// Error level: failed queries.
func WithLogger(logger timeline.Logger) Option {
	return func(s *Source) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Source.
func WithContextualLogger(logger timeline.ContextualLogger) Option {
	return func(s *Source) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Source.
// It receives query durations and database errors.
func WithMetrics(collector timeline.MetricsCollector) Option {
	return func(s *Source) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Source.
// Every query is wrapped in a span named timeline.SpanNameSourceQuery.
func WithTracing(collector timeline.TracingCollector) Option {
	return func(s *Source) error {
		s.tracingCollector = collector
		return nil
	}
}
