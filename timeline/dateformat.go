package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/nleeper/goment"
)

// ParseDate turns a raw date attribute into a time.
//
// Accepted inputs: time.Time, numeric epoch milliseconds (any Go integer or float kind and json.Number),
// numeric strings (epoch milliseconds) and date strings in any layout dateparse understands.
// Strings without a zone are read in UTC, or in local time when utc is false.
func ParseDate(value any, utc bool) (time.Time, error) {
	loc := time.UTC
	if !utc {
		loc = time.Local
	}

	t, err := parseDateIn(value, loc)
	if err != nil {
		return time.Time{}, errors.Join(ErrParsingDateFailed, err)
	}

	return t.In(loc), nil
}

func parseDateIn(value any, loc *time.Location) (time.Time, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, errors.New("date value is null")
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, errors.New("date value is null")
		}
		return *v, nil
	case int:
		return time.UnixMilli(int64(v)), nil
	case int8:
		return time.UnixMilli(int64(v)), nil
	case int16:
		return time.UnixMilli(int64(v)), nil
	case int32:
		return time.UnixMilli(int64(v)), nil
	case int64:
		return time.UnixMilli(v), nil
	case uint:
		return time.UnixMilli(int64(v)), nil
	case uint8:
		return time.UnixMilli(int64(v)), nil
	case uint16:
		return time.UnixMilli(int64(v)), nil
	case uint32:
		return time.UnixMilli(int64(v)), nil
	case uint64:
		if v > math.MaxInt64 {
			return time.Time{}, fmt.Errorf("epoch milliseconds %d overflow", v)
		}
		return time.UnixMilli(int64(v)), nil
	case float32:
		return fromEpochMilliFloat(float64(v))
	case float64:
		return fromEpochMilliFloat(v)
	case json.Number:
		if ms, err := v.Int64(); err == nil {
			return time.UnixMilli(ms), nil
		}
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, err
		}
		return fromEpochMilliFloat(f)
	case string:
		return parseDateString(v, loc)
	default:
		return time.Time{}, fmt.Errorf("unsupported date value type %T", value)
	}
}

func parseDateString(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("date value is empty")
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpochMilliFloat(f)
	}

	return dateparse.ParseIn(s, loc)
}

func fromEpochMilliFloat(f float64) (time.Time, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, fmt.Errorf("epoch milliseconds %v is not finite", f)
	}

	if f > math.MaxInt64 || f < math.MinInt64 {
		return time.Time{}, fmt.Errorf("epoch milliseconds %v overflow", f)
	}

	return time.UnixMilli(int64(math.Round(f))), nil
}

// FormatDate renders a date value with a moment-style pattern such as "MM/DD/YYYY" or "MMM D, YYYY".
// An empty pattern means DefaultDateFormat. Values that cannot be parsed render as InvalidDate.
func FormatDate(value any, pattern string, utc bool) string {
	t, err := ParseDate(value, utc)
	if err != nil {
		return InvalidDate
	}

	return formatTime(t, pattern)
}

func formatTime(t time.Time, pattern string) string {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultDateFormat
	}

	g, err := goment.New(t)
	if err != nil {
		return InvalidDate
	}

	return g.Format(pattern)
}
