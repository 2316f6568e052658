package entity

import (
	"reflect"
	"sort"
)

// SameEntity reports whether two references point at the same remote entity.
// Only ids take part; names and kinds loaded alongside are ignored.
func SameEntity(a Ref, b Ref) bool {
	return a.ID == b.ID
}

// SameEntities compares two reference lists as sets of ids.
func SameEntities(a []Ref, b []Ref) bool {
	if len(a) != len(b) {
		return false
	}
	left := refIDs(a)
	right := refIDs(b)
	for idx := range left {
		if left[idx] != right[idx] {
			return false
		}
	}
	return true
}

// ValuesEqual compares by identity when both sides are references and by
// value otherwise.
func ValuesEqual(a Value, b Value) bool {
	if leftRef, ok := asRef(a); ok {
		if rightRef, ok := asRef(b); ok {
			return SameEntity(leftRef, rightRef)
		}
		return false
	}
	if leftRefs, ok := a.([]Ref); ok {
		if rightRefs, ok := b.([]Ref); ok {
			return SameEntities(leftRefs, rightRefs)
		}
		return len(leftRefs) == 0 && isEmptyList(b)
	}
	if rightRefs, ok := b.([]Ref); ok {
		return len(rightRefs) == 0 && isEmptyList(a)
	}

	if leftNumber, ok := asFloat(a); ok {
		if rightNumber, ok := asFloat(b); ok {
			return leftNumber == rightNumber
		}
		return false
	}

	left, err := Normalize(a)
	if err != nil {
		return reflect.DeepEqual(a, b)
	}
	right, err := Normalize(b)
	if err != nil {
		return reflect.DeepEqual(a, b)
	}
	return reflect.DeepEqual(left, right)
}

func asRef(value Value) (Ref, bool) {
	switch typed := value.(type) {
	case Ref:
		return typed, true
	case *Ref:
		if typed == nil {
			return Ref{}, false
		}
		return *typed, true
	case Entity:
		return typed.Ref(), true
	default:
		return Ref{}, false
	}
}

func asFloat(value Value) (float64, bool) {
	switch typed := value.(type) {
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case float32:
		return float64(typed), true
	case float64:
		return typed, true
	default:
		return 0, false
	}
}

func isEmptyList(value Value) bool {
	if value == nil {
		return false
	}
	list, ok := value.([]any)
	return ok && len(list) == 0
}

func refIDs(refs []Ref) []int64 {
	ids := make([]int64, len(refs))
	for idx, ref := range refs {
		ids[idx] = ref.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
