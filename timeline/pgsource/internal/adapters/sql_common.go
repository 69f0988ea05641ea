package adapters

import (
	"database/sql"
)

// stdRows wraps standard library sql.Rows to implement DBRows interface.
type stdRows struct {
	rows    *sql.Rows
	columns []string
}

func (s *stdRows) Columns() ([]string, error) {
	if s.columns != nil {
		return s.columns, nil
	}

	columns, err := s.rows.Columns()
	if err != nil {
		return nil, err
	}

	s.columns = columns

	return columns, nil
}

func (s *stdRows) Next() bool {
	return s.rows.Next()
}

func (s *stdRows) Values() ([]any, error) {
	columns, err := s.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	if err = s.rows.Scan(pointers...); err != nil {
		return nil, err
	}

	for i, value := range values {
		values[i] = normalizeValue(value)
	}

	return values, nil
}

func (s *stdRows) Err() error {
	return s.rows.Err()
}

func (s *stdRows) Close() error {
	return s.rows.Close()
}

// normalizeValue turns driver byte slices (text, json, numeric columns via lib/pq) into strings.
func normalizeValue(value any) any {
	if b, ok := value.([]byte); ok {
		return string(b)
	}

	return value
}
