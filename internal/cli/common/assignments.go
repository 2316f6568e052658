package common

import (
	"strings"

	"github.com/crmarques/cement/yamlutil"
)

// Assignment is one key=value flag value.
type Assignment struct {
	Key   string
	Value string
}

func ParseAssignment(raw string) (Assignment, error) {
	pieces := strings.SplitN(raw, "=", 2)
	if len(pieces) != 2 {
		return Assignment{}, ValidationError("invalid assignment "+raw+": expected key=value", nil)
	}
	key := strings.TrimSpace(pieces[0])
	if key == "" {
		return Assignment{}, ValidationError("invalid assignment "+raw+": key must not be empty", nil)
	}
	return Assignment{Key: key, Value: strings.TrimSpace(pieces[1])}, nil
}

func ParseAssignments(values []string) ([]Assignment, error) {
	assignments := make([]Assignment, 0, len(values))
	for _, raw := range values {
		assignment, err := ParseAssignment(raw)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}
	return assignments, nil
}

// TypedValue decodes the value as a YAML scalar.
func (a Assignment) TypedValue() any {
	return yamlutil.DecodeScalar(a.Value)
}

// Names splits a comma separated list, dropping empty items.
func (a Assignment) Names() []string {
	if strings.TrimSpace(a.Value) == "" {
		return []string{}
	}
	parts := strings.Split(a.Value, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}
