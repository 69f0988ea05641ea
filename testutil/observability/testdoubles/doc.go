// Package testdoubles provides spies for the observability interfaces of package timeline.
//
//   - LogHandlerSpy: a slog.Handler that captures records, usable behind timeline.WithLogger
//   - ContextualLoggerSpy: captures context-aware log calls
//   - MetricsCollectorSpy: captures duration, counter and value recordings
//   - TracingCollectorSpy: captures spans with their start and end attributes
//
// Every spy is safe for concurrent use, so it also works with parallel builds.
package testdoubles
