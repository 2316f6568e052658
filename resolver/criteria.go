package resolver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/server"
)

// Criterion is one exact-match clause of a search expression.
type Criterion struct {
	Field string
	Value string
}

// Criteria is an ordered conjunction of exact-match clauses.
type Criteria []Criterion

func Where(field string, value any) Criteria {
	return Criteria{{Field: field, Value: formatValue(value)}}
}

func (c Criteria) And(field string, value any) Criteria {
	next := make(Criteria, len(c), len(c)+1)
	copy(next, c)
	return append(next, Criterion{Field: field, Value: formatValue(value)})
}

// Expression serializes the criteria as comma-joined key="value" clauses.
func (c Criteria) Expression() string {
	clauses := make([]string, len(c))
	for idx, item := range c {
		clauses[idx] = fmt.Sprintf("%s=%q", item.Field, item.Value)
	}
	return strings.Join(clauses, ",")
}

// Scope holds parent-scoping parameters sent next to the search expression.
type Scope []server.Param

func ScopedBy(key string, ref entity.Ref) Scope {
	return Scope{{Key: key, Value: strconv.FormatInt(ref.ID, 10)}}
}

func (s Scope) And(key string, ref entity.Ref) Scope {
	next := make(Scope, len(s), len(s)+1)
	copy(next, s)
	return append(next, server.Param{Key: key, Value: strconv.FormatInt(ref.ID, 10)})
}

func describe(criteria Criteria, scope Scope) string {
	parts := make([]string, 0, len(criteria)+len(scope))
	if expression := criteria.Expression(); expression != "" {
		parts = append(parts, expression)
	}
	for _, param := range scope {
		parts = append(parts, fmt.Sprintf("%s=%s", param.Key, param.Value))
	}
	if len(parts) == 0 {
		return "<any>"
	}
	return strings.Join(parts, " ")
}

func formatValue(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case entity.Ref:
		return strconv.FormatInt(typed.ID, 10)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return fmt.Sprint(typed)
	}
}
