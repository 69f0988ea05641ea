package geojsonsource

import (
	"cmp"
	"fmt"
	"strconv"
	"time"

	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
)

func matchesAll(feature timeline.Feature, predicates []timeline.Predicate) (bool, error) {
	for _, p := range predicates {
		ok, err := matches(feature, p)
		if err != nil {
			return false, err
		}

		if !ok {
			return false, nil
		}
	}

	return true, nil
}

// matches follows SQL semantics: comparisons against a missing or null attribute are false.
func matches(feature timeline.Feature, p timeline.Predicate) (bool, error) {
	value, present := feature.Attribute(p.Field())

	switch p.Op() {
	case timeline.OpIsNotNull:
		return present, nil
	case timeline.OpIsNull:
		return !present, nil
	}

	if !present {
		return false, nil
	}

	switch p.Op() {
	case timeline.OpIn:
		for _, candidate := range p.Values() {
			if c, ok := compareValues(value, candidate); ok && c == 0 {
				return true, nil
			}
		}

		return false, nil
	case timeline.OpEq, timeline.OpNeq, timeline.OpGt, timeline.OpGte, timeline.OpLt, timeline.OpLte:
		c, ok := compareValues(value, p.Value())
		if !ok {
			return false, nil
		}

		return holds(p.Op(), c), nil
	default:
		return false, fmt.Errorf("operator %q on %s: %w", p.Op(), p.Field(), timeline.ErrBuildingQueryFailed)
	}
}

func holds(op timeline.Operator, c int) bool {
	switch op {
	case timeline.OpEq:
		return c == 0
	case timeline.OpNeq:
		return c != 0
	case timeline.OpGt:
		return c > 0
	case timeline.OpGte:
		return c >= 0
	case timeline.OpLt:
		return c < 0
	case timeline.OpLte:
		return c <= 0
	default:
		return false
	}
}

// compareValues orders an attribute value against a literal.
// Numbers compare numerically, times chronologically (the other side parsed as a date), booleans
// and strings by value. Numeric strings compare as numbers against numbers. The second result is
// false when the two values have no common ordering.
func compareValues(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}

	if ta, ok := asTime(a); ok {
		tb, err := timeline.ParseDate(b, true)
		if err != nil {
			return 0, false
		}

		return ta.Compare(tb), true
	}

	if tb, ok := asTime(b); ok {
		ta, err := timeline.ParseDate(a, true)
		if err != nil {
			return 0, false
		}

		return ta.Compare(tb), true
	}

	fa, aNum := asFloat(a)
	fb, bNum := asFloat(b)
	if aNum && bNum {
		return cmp.Compare(fa, fb), true
	}

	if ba, ok := a.(bool); ok {
		bb, ok := b.(bool)
		if !ok {
			return 0, false
		}

		switch {
		case ba == bb:
			return 0, true
		case !ba:
			return -1, true
		default:
			return 1, true
		}
	}

	sa, aStr := a.(string)
	sb, bStr := b.(string)
	if aStr && bStr {
		return cmp.Compare(sa, sb), true
	}

	return 0, false
}

// compareForOrder sorts nulls and values without a common ordering last.
func compareForOrder(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	if c, ok := compareDateStrings(a, b); ok {
		return c
	}

	if c, ok := compareValues(a, b); ok {
		return c
	}

	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// compareDateStrings orders two non-numeric strings chronologically when both parse as dates,
// so that "12/25/2018" sorts before "05/01/2019".
func compareDateStrings(a, b any) (int, bool) {
	sa, aStr := a.(string)
	sb, bStr := b.(string)
	if !aStr || !bStr {
		return 0, false
	}

	_, aNum := asFloat(sa)
	_, bNum := asFloat(sb)
	if aNum && bNum {
		return 0, false
	}

	ta, err := timeline.ParseDate(sa, true)
	if err != nil {
		return 0, false
	}

	tb, err := timeline.ParseDate(sb, true)
	if err != nil {
		return 0, false
	}

	return ta.Compare(tb), true
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}

		return *t, true
	default:
		return time.Time{}, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
