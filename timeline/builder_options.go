package timeline

// BuilderOption defines a functional option for configuring a Builder.
type BuilderOption func(*Builder) error

// WithLogger sets the logger for the Builder.
// Debug level: the issued query and per-phase timing
// Info level: event counts and build duration
// Warn level: per-feature problems that do not abort the build (subtitle/description failures,
// unparseable dates, unsorted source results)
// Error level: failures that abort the build.
func WithLogger(logger Logger) BuilderOption {
	return func(b *Builder) error {
		b.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Builder.
// It receives the same messages as the Logger, with the build context attached for trace correlation.
func WithContextualLogger(logger ContextualLogger) BuilderOption {
	return func(b *Builder) error {
		b.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Builder.
// It receives build durations, event counts, evaluation errors and build errors.
func WithMetrics(collector MetricsCollector) BuilderOption {
	return func(b *Builder) error {
		b.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Builder.
// Every BuildEvents call is wrapped in a span named SpanNameBuild.
func WithTracing(collector TracingCollector) BuilderOption {
	return func(b *Builder) error {
		b.tracingCollector = collector
		return nil
	}
}

// WithParallelism evaluates up to n features concurrently. The output keeps source order.
func WithParallelism(n int) BuilderOption {
	return func(b *Builder) error {
		if n < 1 {
			return ErrInvalidParallelism
		}

		b.parallelism = n

		return nil
	}
}

// WithSortVerification makes the Builder warn when the source returned records out of date order.
// The events are never re-sorted.
func WithSortVerification() BuilderOption {
	return func(b *Builder) error {
		b.verifySort = true
		return nil
	}
}
