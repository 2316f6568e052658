package entity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/crmarques/cement/faults"
)

type FieldType int

const (
	Scalar FieldType = iota
	Reference
	ReferenceList
)

func (t FieldType) String() string {
	switch t {
	case Reference:
		return "reference"
	case ReferenceList:
		return "reference-list"
	default:
		return "scalar"
	}
}

// Field declares one attribute of an entity kind.
type Field struct {
	Name string
	Type FieldType
	// Target is the referenced kind for Reference and ReferenceList fields.
	Target string
	// Nullable fields accept nil as a desired value.
	Nullable bool
	// WriteOnly fields are sent on create/update but never returned by the
	// server, so they never take part in a diff.
	WriteOnly bool
	// APIName overrides the wire attribute name.
	APIName string
}

// WireName is the attribute name used in request payloads: references
// travel as "<name>_id" and reference lists as "<singular>_ids".
func (f Field) WireName() string {
	if f.APIName != "" {
		return f.APIName
	}
	switch f.Type {
	case Reference:
		return f.Name + "_id"
	case ReferenceList:
		return singular(f.Name) + "_ids"
	default:
		return f.Name
	}
}

func (f Field) IsReference() bool {
	return f.Type == Reference || f.Type == ReferenceList
}

// Schema is the declared field set and endpoint of one entity kind.
type Schema struct {
	Kind  string
	Title string
	// Endpoint is the collection path relative to the server URL.
	Endpoint string
	// PayloadKey wraps create/update bodies; empty for read-only kinds.
	PayloadKey string
	// ResultsSelector is the jq filter selecting items out of a search page.
	ResultsSelector string
	Fields          []Field
}

func (s Schema) Field(name string) (Field, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for idx, field := range s.Fields {
		names[idx] = field.Name
	}
	return names
}

func (s Schema) ReadOnly() bool {
	return s.PayloadKey == ""
}

func (s Schema) DisplayName() string {
	if s.Title != "" {
		return s.Title
	}
	return s.Kind
}

// SchemaProvider exposes the declared schema of each entity kind.
type SchemaProvider interface {
	Schema(kind string) (Schema, error)
}

type Registry struct {
	schemas map[string]Schema
}

var _ SchemaProvider = (*Registry)(nil)

func NewRegistry(schemas ...Schema) *Registry {
	registry := &Registry{schemas: make(map[string]Schema, len(schemas))}
	for _, schema := range schemas {
		registry.schemas[schema.Kind] = schema
	}
	return registry
}

func (r *Registry) Schema(kind string) (Schema, error) {
	if r == nil {
		return Schema{}, faults.NewTypedError(faults.InternalError, "schema registry is not configured", nil)
	}
	schema, ok := r.schemas[strings.TrimSpace(kind)]
	if !ok {
		return Schema{}, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("unknown entity kind %q (known: %s)", kind, strings.Join(r.Kinds(), ", ")),
			nil,
		)
	}
	return schema, nil
}

func (r *Registry) Kinds() []string {
	if r == nil {
		return nil
	}
	kinds := make([]string, 0, len(r.schemas))
	for kind := range r.schemas {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func singular(name string) string {
	switch {
	case strings.HasSuffix(name, "ies"):
		return strings.TrimSuffix(name, "ies") + "y"
	case strings.HasSuffix(name, "s"):
		return strings.TrimSuffix(name, "s")
	default:
		return name
	}
}
