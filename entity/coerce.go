package entity

import (
	"fmt"

	"github.com/crmarques/cement/faults"
)

// NormalizeDesired normalizes fields and shapes each declared field by its
// type: bare ids become Ref values of the field target, and lists of ids
// become []Ref. Scalars supplied for references, and references supplied
// for scalars, are rejected. Undeclared fields are kept as normalized.
func (s Schema) NormalizeDesired(fields Fields) (Fields, error) {
	normalized, err := NormalizeFields(fields)
	if err != nil {
		return nil, err
	}
	for name, value := range normalized {
		field, ok := s.Field(name)
		if !ok || value == nil {
			continue
		}
		coerced, err := coerceField(field, value)
		if err != nil {
			return nil, &faults.TypedError{
				Category: faults.ValidationError,
				Kind:     s.Kind,
				Message:  fmt.Sprintf("field %q of %s: %v", name, s.DisplayName(), err),
			}
		}
		normalized[name] = coerced
	}
	return normalized, nil
}

func coerceField(field Field, value Value) (Value, error) {
	switch field.Type {
	case Reference:
		return coerceRef(field.Target, value)
	case ReferenceList:
		switch typed := value.(type) {
		case []Ref:
			refs := make([]Ref, len(typed))
			for idx, ref := range typed {
				refs[idx] = withTarget(field.Target, ref)
			}
			return refs, nil
		case []any:
			refs := make([]Ref, len(typed))
			for idx, item := range typed {
				ref, err := coerceRef(field.Target, item)
				if err != nil {
					return nil, err
				}
				refs[idx] = ref
			}
			return refs, nil
		default:
			return nil, fmt.Errorf("expected a list of %s references, got %T", field.Target, value)
		}
	default:
		switch value.(type) {
		case Ref, []Ref:
			return nil, fmt.Errorf("expected a scalar value, got a reference")
		}
		return value, nil
	}
}

func coerceRef(target string, value Value) (Ref, error) {
	switch typed := value.(type) {
	case Ref:
		return withTarget(target, typed), nil
	case int64:
		if typed <= 0 {
			return Ref{}, fmt.Errorf("%d is not a valid %s id", typed, target)
		}
		return Ref{Kind: target, ID: typed}, nil
	default:
		return Ref{}, fmt.Errorf("expected a %s reference or id, got %T", target, value)
	}
}

func withTarget(target string, ref Ref) Ref {
	if ref.Kind == "" {
		ref.Kind = target
	}
	return ref
}
