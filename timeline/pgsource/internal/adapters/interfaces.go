package adapters

import (
	"context"
)

// DBAdapter defines the database operations the feature source needs.
type DBAdapter interface {
	Query(ctx context.Context, query string) (DBRows, error)
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Columns() ([]string, error)
	Next() bool
	// Values returns the current row, one normalized value per column.
	Values() ([]any, error)
	Err() error
	Close() error
}
