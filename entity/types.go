package entity

import "strings"

// Value is a field value: a scalar (string, bool, int64, float64), a Ref,
// a []Ref, a nested map/list of scalars, or nil.
type Value = any

type Fields map[string]Value

// Entity is a remote resource instance of a given kind.
type Entity struct {
	Kind   string `json:"kind" yaml:"kind"`
	ID     int64  `json:"id" yaml:"id"`
	Fields Fields `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Ref points at another entity by its server-assigned id.
type Ref struct {
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

func (e Entity) Ref() Ref {
	return Ref{Kind: e.Kind, ID: e.ID, Name: e.Name()}
}

func (e Entity) Get(name string) (Value, bool) {
	if e.Fields == nil {
		return nil, false
	}
	value, ok := e.Fields[name]
	return value, ok
}

// Name returns the entity's "name" field, falling back to "version" for
// kinds identified by version only.
func (e Entity) Name() string {
	for _, key := range []string{"name", "version"} {
		if value, ok := e.Get(key); ok {
			if text, ok := value.(string); ok && strings.TrimSpace(text) != "" {
				return text
			}
		}
	}
	return ""
}

func (e Entity) Clone() Entity {
	cloned := e
	cloned.Fields = e.Fields.Clone()
	return cloned
}

func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	cloned := make(Fields, len(f))
	for key, value := range f {
		if refs, ok := value.([]Ref); ok {
			value = append([]Ref{}, refs...)
		}
		cloned[key] = value
	}
	return cloned
}
