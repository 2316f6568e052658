package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"

	"github.com/crmarques/cement/faults"
)

// Normalize converts a desired or decoded value into the canonical shapes
// used for comparison: int64 for integers, float64 for floats, Ref for
// single references and []Ref for reference lists.
func Normalize(value Value) (Value, error) {
	return normalizeValue(value)
}

// NormalizeFields normalizes every value of a desired field map.
func NormalizeFields(fields Fields) (Fields, error) {
	normalized := make(Fields, len(fields))
	for key, value := range fields {
		item, err := normalizeValue(value)
		if err != nil {
			return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("field %q is invalid", key), err)
		}
		normalized[key] = item
	}
	return normalized, nil
}

func normalizeValue(value any) (any, error) {
	switch typed := value.(type) {
	case nil, bool, string:
		return typed, nil
	case Ref:
		return typed, nil
	case *Ref:
		if typed == nil {
			return nil, nil
		}
		return *typed, nil
	case Entity:
		return typed.Ref(), nil
	case *Entity:
		if typed == nil {
			return nil, nil
		}
		return typed.Ref(), nil
	case []Ref:
		return append([]Ref{}, typed...), nil
	case []Entity:
		refs := make([]Ref, len(typed))
		for idx, item := range typed {
			refs[idx] = item.Ref()
		}
		return refs, nil
	case float32:
		return normalizeFloat(float64(typed))
	case float64:
		return normalizeFloat(typed)
	case int:
		return int64(typed), nil
	case int8:
		return int64(typed), nil
	case int16:
		return int64(typed), nil
	case int32:
		return int64(typed), nil
	case int64:
		return typed, nil
	case uint:
		return normalizeUint(uint64(typed))
	case uint8:
		return normalizeUint(uint64(typed))
	case uint16:
		return normalizeUint(uint64(typed))
	case uint32:
		return normalizeUint(uint64(typed))
	case uint64:
		return normalizeUint(typed)
	case json.Number:
		return normalizeJSONNumber(typed)
	case []any:
		return normalizeSlice(typed)
	case map[string]any:
		return normalizeStringMap(typed)
	case Fields:
		return normalizeStringMap(map[string]any(typed))
	}

	return normalizeReflectValue(value)
}

func normalizeFloat(value float64) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, faults.NewTypedError(faults.ValidationError, "value contains non-finite float", nil)
	}
	return value, nil
}

func normalizeUint(value uint64) (int64, error) {
	if value > math.MaxInt64 {
		return 0, faults.NewTypedError(faults.ValidationError, "value contains integer out of range", nil)
	}
	return int64(value), nil
}

func normalizeJSONNumber(value json.Number) (any, error) {
	if asInt, err := value.Int64(); err == nil {
		return asInt, nil
	}
	if asBig, ok := new(big.Int).SetString(value.String(), 10); ok {
		if asBig.IsInt64() {
			return asBig.Int64(), nil
		}
		return nil, faults.NewTypedError(faults.ValidationError, "value contains integer out of range", nil)
	}

	asFloat, err := value.Float64()
	if err != nil {
		return nil, faults.NewTypedError(faults.ValidationError, "value contains invalid number", err)
	}
	return normalizeFloat(asFloat)
}

// normalizeSlice folds a list made only of references into []Ref.
func normalizeSlice(values []any) (any, error) {
	normalized := make([]any, len(values))
	refs := make([]Ref, 0, len(values))
	for idx, item := range values {
		itemValue, err := normalizeValue(item)
		if err != nil {
			return nil, err
		}
		normalized[idx] = itemValue
		if ref, ok := itemValue.(Ref); ok {
			refs = append(refs, ref)
		}
	}
	if len(values) > 0 && len(refs) == len(values) {
		return refs, nil
	}
	return normalized, nil
}

func normalizeStringMap(values map[string]any) (map[string]any, error) {
	normalized := make(map[string]any, len(values))
	for key, value := range values {
		itemValue, err := normalizeValue(value)
		if err != nil {
			return nil, err
		}
		normalized[key] = itemValue
	}
	return normalized, nil
}

func normalizeReflectValue(value any) (any, error) {
	reflectValue := reflect.ValueOf(value)
	switch reflectValue.Kind() {
	case reflect.Map:
		if reflectValue.Type().Key().Kind() != reflect.String {
			return nil, faults.NewTypedError(faults.ValidationError, "map keys must be strings", nil)
		}
		normalized := make(map[string]any, reflectValue.Len())
		iter := reflectValue.MapRange()
		for iter.Next() {
			result, err := normalizeValue(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			normalized[iter.Key().String()] = result
		}
		return normalized, nil
	case reflect.Slice, reflect.Array:
		items := make([]any, reflectValue.Len())
		for idx := range items {
			items[idx] = reflectValue.Index(idx).Interface()
		}
		return normalizeSlice(items)
	default:
		return nil, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("unsupported value type %T", value),
			nil,
		)
	}
}
