package timeline

import (
	"strings"
)

// DefaultDateFormat is the pattern used when an EventConfig sets none.
const DefaultDateFormat = "MM/DD/YYYY"

// Event is one timeline entry derived from a feature.
type Event struct {
	ObjectID      any     `json:"objectId"`
	Title         string  `json:"title"`
	Subtitle      *string `json:"subtitle,omitempty"`
	Description   *string `json:"description,omitempty"`
	Date          int64   `json:"date"`
	FormattedDate string  `json:"formattedDate"`
	LonLat        *LonLat `json:"lonLat,omitempty"`
}

// HasLocation reports whether the event can be placed on a map.
func (e Event) HasLocation() bool {
	return e.LonLat != nil
}

// EventConfig describes how features become events.
type EventConfig struct {
	DateField             string          `json:"dateField" yaml:"dateField"`
	TitleExpression       ExpressionSpec  `json:"titleExpression" yaml:"titleExpression"`
	SubtitleExpression    *ExpressionSpec `json:"subtitleExpression,omitempty" yaml:"subtitleExpression,omitempty"`
	DescriptionExpression *ExpressionSpec `json:"descriptionExpression,omitempty" yaml:"descriptionExpression,omitempty"`
	DateFormat            string          `json:"dateFormat,omitempty" yaml:"dateFormat,omitempty"`
	Query                 *QuerySpec      `json:"query,omitempty" yaml:"query,omitempty"`

	// UTC interprets dates in UTC when unset or true, in local time when false.
	UTC *bool `json:"utc,omitempty" yaml:"utc,omitempty"`

	// ObjectIDField is used when neither the feature nor the source declare an identity.
	ObjectIDField string `json:"objectIdField,omitempty" yaml:"objectIdField,omitempty"`
}

// EffectiveDateFormat returns DateFormat or DefaultDateFormat.
func (c EventConfig) EffectiveDateFormat() string {
	if strings.TrimSpace(c.DateFormat) == "" {
		return DefaultDateFormat
	}

	return c.DateFormat
}

// InUTC reports whether dates are interpreted in UTC.
func (c EventConfig) InUTC() bool {
	return c.UTC == nil || *c.UTC
}

// Validate checks the fields the builder cannot work without.
func (c EventConfig) Validate() error {
	if strings.TrimSpace(c.DateField) == "" {
		return ErrEmptyDateField
	}

	if c.TitleExpression.IsZero() {
		return ErrMissingTitleExpression
	}

	return nil
}
