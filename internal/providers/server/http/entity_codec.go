package http

import (
	"fmt"

	"github.com/crmarques/cement/entity"
)

// encodePayload wraps the wire form of item under the schema payload key.
// A nil fields slice sends every declared field present on item.
func encodePayload(schema entity.Schema, item entity.Entity, fields []string) (map[string]any, error) {
	if schema.ReadOnly() {
		return nil, validationError(fmt.Sprintf("%s entities are read-only", schema.DisplayName()), nil)
	}

	if fields == nil {
		fields = make([]string, 0, len(schema.Fields))
		for _, field := range schema.Fields {
			if _, ok := item.Get(field.Name); ok {
				fields = append(fields, field.Name)
			}
		}
	}

	body := make(map[string]any, len(fields))
	for _, name := range fields {
		field, ok := schema.Field(name)
		if !ok {
			return nil, validationError(fmt.Sprintf("%s does not declare field %q", schema.DisplayName(), name), nil)
		}
		value, _ := item.Get(name)
		wire, err := encodeValue(field, value)
		if err != nil {
			return nil, err
		}
		body[field.WireName()] = wire
	}
	return map[string]any{schema.PayloadKey: body}, nil
}

func encodeValue(field entity.Field, value entity.Value) (any, error) {
	normalized, err := entity.Normalize(value)
	if err != nil {
		return nil, validationError(fmt.Sprintf("field %q is invalid", field.Name), err)
	}

	switch field.Type {
	case entity.Reference:
		switch typed := normalized.(type) {
		case nil:
			return nil, nil
		case entity.Ref:
			return typed.ID, nil
		}
	case entity.ReferenceList:
		switch typed := normalized.(type) {
		case nil:
			return []int64{}, nil
		case []entity.Ref:
			ids := make([]int64, len(typed))
			for idx, ref := range typed {
				ids[idx] = ref.ID
			}
			return ids, nil
		case []any:
			if len(typed) == 0 {
				return []int64{}, nil
			}
		}
	default:
		return normalized, nil
	}
	return nil, validationError(fmt.Sprintf("field %q expects a %s, got %T", field.Name, field.Type, value), nil)
}

// decodeEntity maps a normalized record onto the declared fields. References
// are read from the embedded object when present and from the id attribute
// otherwise.
func decodeEntity(schema entity.Schema, record map[string]any) (entity.Entity, error) {
	id, err := recordID(record)
	if err != nil {
		return entity.Entity{}, err
	}

	result := entity.Entity{Kind: schema.Kind, ID: id, Fields: entity.Fields{}}
	for _, field := range schema.Fields {
		value, ok, err := decodeField(field, record)
		if err != nil {
			return entity.Entity{}, err
		}
		if ok {
			result.Fields[field.Name] = value
		}
	}
	return result, nil
}

func decodeField(field entity.Field, record map[string]any) (entity.Value, bool, error) {
	switch field.Type {
	case entity.Reference:
		if embedded, ok := record[field.Name]; ok {
			if embedded == nil {
				return nil, true, nil
			}
			if object, ok := embedded.(map[string]any); ok {
				ref, err := decodeRef(field.Target, object)
				return ref, err == nil, err
			}
		}
		raw, ok := record[field.WireName()]
		if !ok {
			return nil, false, nil
		}
		if raw == nil {
			return nil, true, nil
		}
		id, ok := raw.(int64)
		if !ok {
			return nil, false, connectionError(fmt.Sprintf("attribute %q is not an id", field.WireName()), nil)
		}
		return entity.Ref{Kind: field.Target, ID: id}, true, nil

	case entity.ReferenceList:
		if embedded, ok := record[field.Name].([]any); ok {
			refs := make([]entity.Ref, 0, len(embedded))
			for _, item := range embedded {
				object, ok := item.(map[string]any)
				if !ok {
					return nil, false, connectionError(fmt.Sprintf("attribute %q must list objects", field.Name), nil)
				}
				ref, err := decodeRef(field.Target, object)
				if err != nil {
					return nil, false, err
				}
				refs = append(refs, ref)
			}
			return refs, true, nil
		}
		raw, ok := record[field.WireName()]
		if !ok {
			return nil, false, nil
		}
		items, _ := raw.([]any)
		refs := make([]entity.Ref, 0, len(items))
		for _, item := range items {
			id, ok := item.(int64)
			if !ok {
				return nil, false, connectionError(fmt.Sprintf("attribute %q must list ids", field.WireName()), nil)
			}
			refs = append(refs, entity.Ref{Kind: field.Target, ID: id})
		}
		return refs, true, nil

	default:
		value, ok := record[field.WireName()]
		return value, ok, nil
	}
}

func decodeRef(kind string, object map[string]any) (entity.Ref, error) {
	id, err := recordID(object)
	if err != nil {
		return entity.Ref{}, err
	}
	name, _ := object["name"].(string)
	return entity.Ref{Kind: kind, ID: id, Name: name}, nil
}

func recordID(record map[string]any) (int64, error) {
	id, ok := record["id"].(int64)
	if !ok {
		return 0, connectionError(fmt.Sprintf("record has no numeric id (got %v)", record["id"]), nil)
	}
	return id, nil
}
