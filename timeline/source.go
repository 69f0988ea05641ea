package timeline

import (
	"context"
)

// QueryResult is what a Source returns for a Query.
type QueryResult struct {
	Features Features
}

// Source is the feature collection the builder queries.
//
// Query returns the records matching q, ordered as q requests. ApplyStandingFilter makes the where
// clause of q the source's persistent filter, so that later independent queries against the same
// source (for instance a map layer drawing features) only see what the timeline shows.
// ObjectIDField names the attribute that carries feature identity, or "" when unknown.
type Source interface {
	Query(ctx context.Context, q Query) (QueryResult, error)
	ApplyStandingFilter(ctx context.Context, q Query) error
	ObjectIDField() string
}
