// Package timeline extracts a date-ordered list of events from geospatial features and keeps the
// navigation state over that list.
//
// The pieces, leaves first:
//   - Evaluator / CompiledExpression: the contract for the pluggable scripting engine that derives
//     titles, subtitles and descriptions from a feature (see package exprengine)
//   - ExtractLonLat: reduces a point or areal Geometry to a single location
//   - FormatDate / ParseDate: render date attributes with moment-style patterns
//   - Builder: queries a Source and turns its features into Events
//   - Navigator and Loader: cursor, filter mode and loading state over the events
//
// Common usage pattern:
//
//	engine, err := exprengine.New()
//	if err != nil {
//		// handle error
//	}
//
//	builder, err := timeline.NewBuilder(engine, timeline.WithLogger(slog.Default()))
//	if err != nil {
//		// handle error
//	}
//
//	navigator := timeline.NewNavigator()
//	loader := timeline.NewLoader(builder, navigator)
//
//	cfg := timeline.EventConfig{
//		DateField:       "EVENT_DATE",
//		TitleExpression: timeline.Expr("$feature.NAME"),
//		DateFormat:      "MMM D, YYYY",
//	}
//
//	if _, err = loader.Reload(ctx, source, cfg); err != nil {
//		// handle error
//	}
//
//	navigator.Next()
//	current, _ := navigator.CurrentEvent()
package timeline
