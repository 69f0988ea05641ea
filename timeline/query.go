package timeline

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

type QueryFieldString = string

/***** Operator *****/

// Operator is the comparison a Predicate applies to a field.
type Operator string

const (
	OpIsNotNull Operator = "is not null"
	OpIsNull    Operator = "is null"
	OpEq        Operator = "="
	OpNeq       Operator = "<>"
	OpGt        Operator = ">"
	OpGte       Operator = ">="
	OpLt        Operator = "<"
	OpLte       Operator = "<="
	OpIn        Operator = "in"
)

// ParseOperator maps the textual operators accepted in configuration onto an Operator.
func ParseOperator(op string) (Operator, error) {
	switch strings.ToLower(strings.TrimSpace(op)) {
	case "is not null", "notnull", "not_null":
		return OpIsNotNull, nil
	case "is null", "null":
		return OpIsNull, nil
	case "=", "==", "eq":
		return OpEq, nil
	case "<>", "!=", "neq":
		return OpNeq, nil
	case ">", "gt":
		return OpGt, nil
	case ">=", "gte":
		return OpGte, nil
	case "<", "lt":
		return OpLt, nil
	case "<=", "lte":
		return OpLte, nil
	case "in":
		return OpIn, nil
	default:
		return "", fmt.Errorf("unknown operator %q", op)
	}
}

/***** Predicate *****/

// Predicate is one structured condition on a feature attribute.
type Predicate struct {
	field  QueryFieldString
	op     Operator
	values []any
}

func IsNotNull(field QueryFieldString) Predicate {
	return Predicate{field: field, op: OpIsNotNull}
}

func IsNull(field QueryFieldString) Predicate {
	return Predicate{field: field, op: OpIsNull}
}

func Eq(field QueryFieldString, value any) Predicate {
	return Predicate{field: field, op: OpEq, values: []any{value}}
}

func Neq(field QueryFieldString, value any) Predicate {
	return Predicate{field: field, op: OpNeq, values: []any{value}}
}

func Gt(field QueryFieldString, value any) Predicate {
	return Predicate{field: field, op: OpGt, values: []any{value}}
}

func Gte(field QueryFieldString, value any) Predicate {
	return Predicate{field: field, op: OpGte, values: []any{value}}
}

func Lt(field QueryFieldString, value any) Predicate {
	return Predicate{field: field, op: OpLt, values: []any{value}}
}

func Lte(field QueryFieldString, value any) Predicate {
	return Predicate{field: field, op: OpLte, values: []any{value}}
}

func In(field QueryFieldString, values ...any) Predicate {
	return Predicate{field: field, op: OpIn, values: values}
}

func (p Predicate) Field() QueryFieldString {
	return p.field
}

func (p Predicate) Op() Operator {
	return p.op
}

// Value returns the single comparison value, nil for null checks.
func (p Predicate) Value() any {
	if len(p.values) == 0 {
		return nil
	}

	return p.values[0]
}

func (p Predicate) Values() []any {
	return p.values
}

// String renders the predicate as a SQL-style where fragment, e.g. `EVENT_DATE is not null`.
func (p Predicate) String() string {
	switch p.op {
	case OpIsNotNull, OpIsNull:
		return fmt.Sprintf("%s %s", p.field, p.op)

	case OpIn:
		rendered := make([]string, 0, len(p.values))
		for _, value := range p.values {
			rendered = append(rendered, renderLiteral(value))
		}

		return fmt.Sprintf("%s in (%s)", p.field, strings.Join(rendered, ", "))

	default:
		return fmt.Sprintf("%s %s %s", p.field, p.op, renderLiteral(p.Value()))
	}
}

func renderLiteral(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return "'" + v.UTC().Format(time.RFC3339Nano) + "'"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}

/***** Query *****/

// Query is what the builder asks a Source for: structured predicates joined with AND, an optional raw
// where fragment for sources that understand SQL, the fields to return, the geometry flag and ordering.
type Query struct {
	predicates     []Predicate
	rawWhere       string
	outFields      []QueryFieldString
	returnGeometry bool
	orderBy        []QueryFieldString
}

func (q Query) Predicates() []Predicate {
	return q.predicates
}

func (q Query) RawWhere() string {
	return q.rawWhere
}

// OutFields returns the requested fields; a single "*" means all fields.
func (q Query) OutFields() []QueryFieldString {
	return q.outFields
}

func (q Query) ReturnGeometry() bool {
	return q.returnGeometry
}

// OrderByFields returns the ascending sort fields.
func (q Query) OrderByFields() []QueryFieldString {
	return q.orderBy
}

// AllFields reports whether every attribute was requested.
func (q Query) AllFields() bool {
	return len(q.outFields) == 0 || slices.Contains(q.outFields, "*")
}

// Where renders the complete where clause, e.g. `EVENT_DATE is not null AND (STATUS = 'open')`.
// This is the string a source adopts as its standing filter.
func (q Query) Where() string {
	parts := make([]string, 0, len(q.predicates)+1)
	for _, predicate := range q.predicates {
		parts = append(parts, predicate.String())
	}

	if q.rawWhere != "" {
		parts = append(parts, "("+q.rawWhere+")")
	}

	return strings.Join(parts, " AND ")
}

/***** QueryBuilder *****/

// QueryBuilder assembles a Query.
//
// It sanitizes the input:
//   - predicates with an empty field are dropped
//   - empty and duplicate out-fields and order-by fields are dropped
type QueryBuilder struct {
	query Query
}

// BuildQuery starts a new Query that requests all fields.
func BuildQuery() QueryBuilder {
	return QueryBuilder{query: Query{outFields: []QueryFieldString{"*"}}}
}

// Where adds one or multiple predicates, all of which must match.
func (qb QueryBuilder) Where(predicate Predicate, predicates ...Predicate) QueryBuilder {
	all := append([]Predicate{predicate}, predicates...)
	merged := slices.Clone(qb.query.predicates)

	for _, p := range all {
		if strings.TrimSpace(p.field) == "" {
			continue
		}

		merged = append(merged, p)
	}

	qb.query.predicates = merged

	return qb
}

// AndRawWhere conjoins a raw SQL where fragment supplied by configuration.
func (qb QueryBuilder) AndRawWhere(where string) QueryBuilder {
	where = strings.TrimSpace(where)
	if where == "" {
		return qb
	}

	if qb.query.rawWhere != "" {
		where = "(" + qb.query.rawWhere + ") AND (" + where + ")"
	}

	qb.query.rawWhere = where

	return qb
}

// OutFields replaces the requested fields.
func (qb QueryBuilder) OutFields(field QueryFieldString, fields ...QueryFieldString) QueryBuilder {
	qb.query.outFields = sanitizeFields(append([]QueryFieldString{field}, fields...))

	return qb
}

// WithGeometry requests geometries along with attributes.
func (qb QueryBuilder) WithGeometry() QueryBuilder {
	qb.query.returnGeometry = true

	return qb
}

// OrderBy appends ascending sort fields.
func (qb QueryBuilder) OrderBy(field QueryFieldString, fields ...QueryFieldString) QueryBuilder {
	all := append(slices.Clone(qb.query.orderBy), field)
	qb.query.orderBy = sanitizeFields(append(all, fields...))

	return qb
}

// Finalize returns the assembled Query.
func (qb QueryBuilder) Finalize() Query {
	return qb.query
}

func sanitizeFields(fields []QueryFieldString) []QueryFieldString {
	sanitized := make([]QueryFieldString, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" || slices.Contains(sanitized, field) {
			continue
		}

		sanitized = append(sanitized, field)
	}

	return sanitized
}

/***** QuerySpec *****/

// QuerySpec is the caller-supplied part of the event query as it appears in configuration.
type QuerySpec struct {
	Where   string       `json:"where,omitempty" yaml:"where,omitempty"`
	Filters []FilterSpec `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// FilterSpec is one structured condition in configuration.
type FilterSpec struct {
	Field  string `json:"field" yaml:"field"`
	Op     string `json:"op" yaml:"op"`
	Value  any    `json:"value,omitempty" yaml:"value,omitempty"`
	Values []any  `json:"values,omitempty" yaml:"values,omitempty"`
}

// Predicate converts the configured filter into a Predicate.
func (fs FilterSpec) Predicate() (Predicate, error) {
	if strings.TrimSpace(fs.Field) == "" {
		return Predicate{}, fmt.Errorf("filter field is required")
	}

	op, err := ParseOperator(fs.Op)
	if err != nil {
		return Predicate{}, err
	}

	switch op {
	case OpIsNotNull, OpIsNull:
		return Predicate{field: fs.Field, op: op}, nil
	case OpIn:
		if len(fs.Values) == 0 {
			return Predicate{}, fmt.Errorf("filter on %s: in requires values", fs.Field)
		}
		return In(fs.Field, fs.Values...), nil
	default:
		return Predicate{field: fs.Field, op: op, values: []any{fs.Value}}, nil
	}
}

// EventQuery builds the query the builder issues for an event configuration:
// `<dateField> is not null` conjoined with the caller's filters, all fields, geometry included,
// ordered by the date field ascending.
func EventQuery(cfg EventConfig) (Query, error) {
	if strings.TrimSpace(cfg.DateField) == "" {
		return Query{}, ErrEmptyDateField
	}

	qb := BuildQuery().
		Where(IsNotNull(cfg.DateField)).
		OutFields("*").
		WithGeometry().
		OrderBy(cfg.DateField)

	if cfg.Query != nil {
		for i, filter := range cfg.Query.Filters {
			predicate, err := filter.Predicate()
			if err != nil {
				return Query{}, fmt.Errorf("query filter %d: %w", i, err)
			}

			qb = qb.Where(predicate)
		}

		qb = qb.AndRawWhere(cfg.Query.Where)
	}

	return qb.Finalize(), nil
}
