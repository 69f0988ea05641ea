package timeline

// Feature is one geospatial record as returned by a Source.
//
// ID carries the source's own object-id accessor value and is nil when the source has none;
// the builder then falls back to the attribute named by Source.ObjectIDField.
type Feature struct {
	ID         any
	Attributes map[string]any
	Geometry   Geometry
}

// Attribute returns the named attribute and whether it is present with a non-nil value.
func (f Feature) Attribute(name string) (any, bool) {
	if f.Attributes == nil {
		return nil, false
	}

	value, ok := f.Attributes[name]
	if !ok || value == nil {
		return nil, false
	}

	return value, true
}

// ObjectID resolves the feature identity: the accessor value first, then the given attribute.
func (f Feature) ObjectID(objectIDField string) (any, bool) {
	if f.ID != nil {
		return f.ID, true
	}

	if objectIDField == "" {
		return nil, false
	}

	return f.Attribute(objectIDField)
}

// Features is an alias type for a slice of Feature.
type Features = []Feature
