package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/jeffallen007/what-would-she-say/core"
)

// Property data types understood by the backends.
const (
	DataTypeText   = "text"
	DataTypeInt    = "int"
	DataTypeNumber = "number"
	DataTypeBool   = "boolean"
)

// Property declares one metadata property of a collection.
type Property struct {
	Name     string   `json:"name"`
	DataType []string `json:"dataType"`
}

// Type returns the first declared data type, or "" if none.
func (p Property) Type() string {
	if len(p.DataType) == 0 {
		return ""
	}
	return p.DataType[0]
}

// CollectionSchema describes a collection. Properties and VectorDimension are
// optional; when present, backends use them to reject malformed objects one
// by one instead of failing a whole batch.
type CollectionSchema struct {
	Name            string     `json:"class"`
	Description     string     `json:"description,omitempty"`
	Properties      []Property `json:"properties,omitempty"`
	VectorDimension int        `json:"vectorDimension,omitempty"`
	CreatedAt       time.Time  `json:"-"`
}

// NewCollectionSchema returns a schema that accepts any metadata.
func NewCollectionSchema(name string) *CollectionSchema {
	return &CollectionSchema{Name: name}
}

// LoadSchema reads a collection schema from a JSON file.
// The file uses the "class" key for the collection name.
func LoadSchema(path string) (*CollectionSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file %s: %w", path, err)
	}

	var schema CollectionSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("%w: parsing schema file %s: %w", ErrInvalidSchema, path, err)
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return &schema, nil
}

// Validate checks the schema for structural problems.
func (s *CollectionSchema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidSchema)
	}
	if s.VectorDimension < 0 {
		return fmt.Errorf("%w: vector dimension must not be negative", ErrInvalidSchema)
	}
	seen := make(map[string]struct{}, len(s.Properties))
	for _, p := range s.Properties {
		if p.Name == "" {
			return fmt.Errorf("%w: property name is required", ErrInvalidSchema)
		}
		if _, ok := seen[p.Name]; ok {
			return fmt.Errorf("%w: duplicate property %s", ErrInvalidSchema, p.Name)
		}
		seen[p.Name] = struct{}{}
		if !slices.Contains([]string{DataTypeText, DataTypeInt, DataTypeNumber, DataTypeBool}, p.Type()) {
			return fmt.Errorf("%w: property %s has unsupported data type %q", ErrInvalidSchema, p.Name, p.Type())
		}
	}
	return nil
}

// CheckObject returns a rejection reason when obj does not fit the schema,
// or "" when it does.
func (s *CollectionSchema) CheckObject(obj *core.Object) string {
	if s.VectorDimension > 0 && len(obj.Vector) > 0 && len(obj.Vector) != s.VectorDimension {
		return fmt.Sprintf("vector dimension %d does not match collection dimension %d", len(obj.Vector), s.VectorDimension)
	}
	if len(s.Properties) == 0 {
		return ""
	}

	props := make(map[string]string, len(s.Properties))
	for _, p := range s.Properties {
		props[p.Name] = p.Type()
	}
	for _, k := range obj.Document.Metadata.Keys() {
		want, ok := props[k]
		if !ok {
			return fmt.Sprintf("property %q is not declared in collection %s", k, s.Name)
		}
		if !valueMatches(want, obj.Document.Metadata[k]) {
			return fmt.Sprintf("property %q expects %s, got %T", k, want, obj.Document.Metadata[k])
		}
	}
	return ""
}

func valueMatches(dataType string, v any) bool {
	switch v.(type) {
	case string:
		return dataType == DataTypeText
	case bool:
		return dataType == DataTypeBool
	case int, int64:
		return dataType == DataTypeInt || dataType == DataTypeNumber
	case float64:
		return dataType == DataTypeNumber
	default:
		return false
	}
}
