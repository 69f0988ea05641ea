// Package geojsonsource implements timeline.Source over an in-memory GeoJSON FeatureCollection,
// loaded from a file, a URL or an already decoded collection.
//
// Structured predicates are evaluated in memory. Raw SQL where fragments cannot be evaluated and are
// rejected with timeline.ErrRawWhereUnsupported.
package geojsonsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
)

const (
	logMsgLoaded            = "geojson features loaded"
	logMsgStandingFilterSet = "standing filter applied"
	logAttrOrigin           = "origin"
	logAttrFeatureCount     = "feature_count"
	logAttrWhere            = "where"
)

var ErrUnexpectedStatus = errors.New("unexpected http status")

// Source serves features from memory. It is safe for concurrent use.
type Source struct {
	features      timeline.Features
	objectIDField string
	logger        timeline.Logger
	httpClient    *http.Client

	mu             sync.RWMutex
	standingFilter *timeline.Query
}

// Option defines a functional option for configuring a Source.
type Option func(*Source) error

// WithObjectIDField declares the property carrying feature identity, for collections without feature ids.
func WithObjectIDField(field string) Option {
	return func(s *Source) error {
		s.objectIDField = field
		return nil
	}
}

// WithLogger sets the logger for the Source.
func WithLogger(logger timeline.Logger) Option {
	return func(s *Source) error {
		s.logger = logger
		return nil
	}
}

// WithHTTPClient sets the client LoadURL uses. Defaults to http.DefaultClient.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Source) error {
		s.httpClient = client
		return nil
	}
}

func newSource(options ...Option) (*Source, error) {
	s := &Source{httpClient: http.DefaultClient}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// FromFeatureCollection creates a Source over a decoded collection.
func FromFeatureCollection(fc *geojson.FeatureCollection, options ...Option) (*Source, error) {
	s, err := newSource(options...)
	if err != nil {
		return nil, err
	}

	s.setFeatures(fc, "memory")

	return s, nil
}

// Parse creates a Source from raw GeoJSON.
func Parse(data []byte, options ...Option) (*Source, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decoding feature collection: %w", err)
	}

	return FromFeatureCollection(fc, options...)
}

// Load creates a Source from a GeoJSON file.
func Load(path string, options ...Option) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading geojson %s: %w", path, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("loading geojson %s: %w", path, err)
	}

	s, err := newSource(options...)
	if err != nil {
		return nil, err
	}

	s.setFeatures(fc, path)

	return s, nil
}

// LoadURL creates a Source from a GeoJSON document served over HTTP.
func LoadURL(ctx context.Context, url string, options ...Option) (*Source, error) {
	s, err := newSource(options...)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching geojson %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching geojson %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching geojson %s: %w: %d", url, ErrUnexpectedStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetching geojson %s: %w", url, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decoding geojson from %s: %w", url, err)
	}

	s.setFeatures(fc, url)

	return s, nil
}

func (s *Source) setFeatures(fc *geojson.FeatureCollection, origin string) {
	features := make(timeline.Features, 0, len(fc.Features))
	for _, f := range fc.Features {
		attributes := make(map[string]any, len(f.Properties))
		for key, value := range f.Properties {
			attributes[key] = value
		}

		features = append(features, timeline.Feature{
			ID:         f.ID,
			Attributes: attributes,
			Geometry:   timeline.GeometryFromOrb(f.Geometry),
		})
	}

	s.features = features

	if s.logger != nil {
		s.logger.Debug(logMsgLoaded, logAttrOrigin, origin, logAttrFeatureCount, len(features))
	}
}

// ObjectIDField implements timeline.Source.
func (s *Source) ObjectIDField() string {
	return s.objectIDField
}

// Query implements timeline.Source.
func (s *Source) Query(ctx context.Context, q timeline.Query) (timeline.QueryResult, error) {
	features, err := s.query(ctx, q)
	if err != nil {
		return timeline.QueryResult{}, errors.Join(timeline.ErrQueryingSourceFailed, err)
	}

	return timeline.QueryResult{Features: features}, nil
}

// ApplyStandingFilter implements timeline.Source.
func (s *Source) ApplyStandingFilter(_ context.Context, q timeline.Query) error {
	if q.RawWhere() != "" {
		return errors.Join(timeline.ErrApplyingStandingFilterFailed, timeline.ErrRawWhereUnsupported)
	}

	s.mu.Lock()
	s.standingFilter = &q
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info(logMsgStandingFilterSet, logAttrWhere, q.Where())
	}

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

// Features returns all features matching the standing filter, with geometries.
func (s *Source) Features(ctx context.Context) (timeline.Features, error) {
	s.mu.RLock()
	q := timeline.BuildQuery().WithGeometry().Finalize()
	if s.standingFilter != nil {
		q = *s.standingFilter
	}
	s.mu.RUnlock()

	return s.query(ctx, q)
}

// Len returns the number of loaded features.
func (s *Source) Len() int {
	return len(s.features)
}

func (s *Source) query(ctx context.Context, q timeline.Query) (timeline.Features, error) {
	if q.RawWhere() != "" {
		return nil, timeline.ErrRawWhereUnsupported
	}

	matched := make(timeline.Features, 0, len(s.features))
	for _, feature := range s.features {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ok, err := matchesAll(feature, q.Predicates())
		if err != nil {
			return nil, err
		}

		if ok {
			matched = append(matched, project(feature, q))
		}
	}

	if fields := q.OrderByFields(); len(fields) > 0 {
		slices.SortStableFunc(matched, func(a, b timeline.Feature) int {
			for _, field := range fields {
				if c := compareForOrder(a.Attributes[field], b.Attributes[field]); c != 0 {
					return c
				}
			}

			return 0
		})
	}

	return matched, nil
}

// project restricts a feature to the requested fields and drops the geometry unless requested.
func project(feature timeline.Feature, q timeline.Query) timeline.Feature {
	projected := timeline.Feature{ID: feature.ID}

	if q.ReturnGeometry() {
		projected.Geometry = feature.Geometry
	}

	if q.AllFields() {
		projected.Attributes = feature.Attributes
		return projected
	}

	projected.Attributes = make(map[string]any, len(q.OutFields()))
	for _, field := range q.OutFields() {
		if value, ok := feature.Attributes[field]; ok {
			projected.Attributes[field] = value
		}
	}

	return projected
}

var _ timeline.Source = (*Source)(nil)
