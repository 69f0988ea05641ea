package timeline_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/paulmach/orb"

	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
)

// sourceStub is an in-memory timeline.Source that records what it was asked.
type sourceStub struct {
	features      timeline.Features
	queryErr      error
	filterErr     error
	objectIDField string

	mu             sync.Mutex
	queries        []timeline.Query
	standingFilter string
}

func (s *sourceStub) Query(_ context.Context, q timeline.Query) (timeline.QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries = append(s.queries, q)
	if s.queryErr != nil {
		return timeline.QueryResult{}, s.queryErr
	}

	return timeline.QueryResult{Features: s.features}, nil
}

func (s *sourceStub) ApplyStandingFilter(_ context.Context, q timeline.Query) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filterErr != nil {
		return s.filterErr
	}

	s.standingFilter = q.Where()

	return nil
}

func (s *sourceStub) ObjectIDField() string {
	return s.objectIDField
}

// scriptFunc is what a stub script does with the feature bound to $feature.
type scriptFunc func(feature timeline.Feature) (any, error)

// evaluatorStub compiles only the scripts it knows.
type evaluatorStub struct {
	scripts map[string]scriptFunc

	mu       sync.Mutex
	compiled []string
}

func newEvaluatorStub(scripts map[string]scriptFunc) *evaluatorStub {
	return &evaluatorStub{scripts: scripts}
}

func (e *evaluatorStub) Compile(spec timeline.ExpressionSpec) (timeline.CompiledExpression, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.compiled = append(e.compiled, spec.Script)

	fn, ok := e.scripts[spec.Script]
	if !ok {
		return nil, errors.Join(timeline.ErrCompilingExpressionFailed, fmt.Errorf("unknown script %q", spec.Script))
	}

	return compiledStub{profile: spec.EffectiveProfile(), fn: fn}, nil
}

func (e *evaluatorStub) compileCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.compiled)
}

type compiledStub struct {
	profile timeline.Profile
	fn      scriptFunc
}

func (c compiledStub) Profile() timeline.Profile {
	return c.profile
}

func (c compiledStub) Evaluate(_ context.Context, bindings timeline.Bindings) (any, error) {
	feature, ok := bindings[timeline.FeatureVariable].(timeline.Feature)
	if !ok {
		return nil, errors.New("$feature is not bound")
	}

	return c.fn(feature)
}

func attribute(name string) scriptFunc {
	return func(feature timeline.Feature) (any, error) {
		value, _ := feature.Attribute(name)
		return value, nil
	}
}

func failing(msg string) scriptFunc {
	return func(timeline.Feature) (any, error) {
		return nil, errors.New(msg)
	}
}

func givenPointFeature(id int, name string, date any, lon, lat float64) timeline.Feature {
	return timeline.Feature{
		Attributes: map[string]any{
			"OBJECTID":   id,
			"NAME":       name,
			"EVENT_DATE": date,
		},
		Geometry: timeline.GeometryFromOrb(orb.Point{lon, lat}),
	}
}

func eventConfig() timeline.EventConfig {
	return timeline.EventConfig{
		DateField:       "EVENT_DATE",
		TitleExpression: timeline.Expr("$feature.NAME"),
		DateFormat:      "YYYY-MM-DD",
		ObjectIDField:   "OBJECTID",
	}
}

func givenEvents(n int) []timeline.Event {
	events := make([]timeline.Event, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, timeline.Event{
			ObjectID: i + 1,
			Title:    fmt.Sprintf("event %d", i+1),
			Date:     int64(i) * 86_400_000,
		})
	}

	return events
}
