package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/faults"
	"github.com/crmarques/cement/resolver"
)

const organizationField = "organization"

// DesiredSpec collects the flag and file input describing one entity.
type DesiredSpec struct {
	Kind         string
	Fields       entity.Fields
	Sets         []Assignment
	Refs         []Assignment
	RefLists     []Assignment
	Organization string
}

// Target is a desired state with its references resolved, plus the scope
// to look the current entity up in.
type Target struct {
	Schema  entity.Schema
	Desired entity.Fields
	Scope   resolver.Scope
}

// ResolveTarget merges the spec into desired fields and resolves named
// references through the session resolver. Kinds declaring an organization
// reference get the spec organization, and lookups of referenced kinds are
// scoped to it.
func ResolveTarget(ctx context.Context, session Session, spec DesiredSpec) (Target, error) {
	schema, err := session.Schemas.Schema(spec.Kind)
	if err != nil {
		return Target{}, err
	}

	desired := spec.Fields.Clone()
	for _, assignment := range spec.Sets {
		field, ok := schema.Field(assignment.Key)
		if !ok {
			return Target{}, unknownField(schema, assignment.Key)
		}
		if field.IsReference() {
			return Target{}, ValidationError(fmt.Sprintf("%s field %q is a %s: set it with --ref or --refs", schema.DisplayName(), field.Name, field.Type), nil)
		}
		desired[assignment.Key] = assignment.TypedValue()
	}

	organizations := &organizationScope{session: session, name: strings.TrimSpace(spec.Organization)}
	if organizationScoped(schema) {
		ref, err := organizations.ref(ctx)
		if err != nil {
			return Target{}, err
		}
		if ref != nil {
			desired[organizationField] = *ref
		}
	}

	for _, assignment := range spec.Refs {
		field, err := referenceField(schema, assignment.Key, entity.Reference)
		if err != nil {
			return Target{}, err
		}
		if assignment.Value == "" {
			desired[field.Name] = nil
			continue
		}
		scope, err := organizations.scopeFor(ctx, field.Target)
		if err != nil {
			return Target{}, err
		}
		found, err := session.Resolver.FindOne(ctx, field.Target, resolver.Where("name", assignment.Value), scope, true)
		if err != nil {
			return Target{}, err
		}
		desired[field.Name] = found.Ref()
	}

	for _, assignment := range spec.RefLists {
		field, err := referenceField(schema, assignment.Key, entity.ReferenceList)
		if err != nil {
			return Target{}, err
		}
		scope, err := organizations.scopeFor(ctx, field.Target)
		if err != nil {
			return Target{}, err
		}
		found, err := session.Resolver.FindManyByNames(ctx, field.Target, assignment.Names(), scope)
		if err != nil {
			return Target{}, err
		}
		refs := make([]entity.Ref, len(found))
		for idx, item := range found {
			refs[idx] = item.Ref()
		}
		desired[field.Name] = refs
	}

	desired, err = schema.NormalizeDesired(desired)
	if err != nil {
		return Target{}, err
	}
	return Target{Schema: schema, Desired: desired, Scope: parentScope(schema, desired)}, nil
}

// parentScope scopes the lookup of the entity itself by each required
// reference it carries, such as organization_id or product_id.
func parentScope(schema entity.Schema, desired entity.Fields) resolver.Scope {
	var scope resolver.Scope
	for _, field := range schema.Fields {
		if field.Type != entity.Reference || field.Nullable {
			continue
		}
		if ref, ok := desired[field.Name].(entity.Ref); ok && ref.ID != 0 {
			scope = scope.And(field.WireName(), ref)
		}
	}
	return scope
}

// FindCurrent looks the existing entity up by its name, or version for kinds
// identified by version. A missing entity is not an error; several matches
// are.
func FindCurrent(ctx context.Context, session Session, target Target) (*entity.Entity, error) {
	for _, key := range []string{"name", "version"} {
		value, ok := target.Desired[key]
		if !ok || value == nil {
			continue
		}
		found, err := session.Resolver.FindByCriteria(ctx, target.Schema.Kind, resolver.Where(key, value), target.Scope)
		if err != nil {
			return nil, err
		}
		switch len(found) {
		case 0:
			return nil, nil
		case 1:
			return &found[0], nil
		default:
			return nil, &faults.TypedError{
				Category: faults.AmbiguousMatchError,
				Kind:     target.Schema.Kind,
				Message:  fmt.Sprintf("expected at most one %s with %s %v, found %d", target.Schema.DisplayName(), key, value, len(found)),
			}
		}
	}
	return nil, ValidationError(fmt.Sprintf("%s desired state must set name", target.Schema.DisplayName()), nil)
}

// organizationScope resolves the named organization on first use only.
type organizationScope struct {
	session  Session
	name     string
	resolved *entity.Ref
}

func (o *organizationScope) ref(ctx context.Context) (*entity.Ref, error) {
	if o.name == "" {
		return nil, nil
	}
	if o.resolved == nil {
		found, err := o.session.Resolver.FindOrganization(ctx, o.name, true)
		if err != nil {
			return nil, err
		}
		ref := found.Ref()
		o.resolved = &ref
	}
	return o.resolved, nil
}

func (o *organizationScope) scopeFor(ctx context.Context, kind string) (resolver.Scope, error) {
	schema, err := o.session.Schemas.Schema(kind)
	if err != nil || !organizationScoped(schema) {
		return nil, nil
	}
	ref, err := o.ref(ctx)
	if err != nil || ref == nil {
		return nil, err
	}
	return resolver.ScopedBy("organization_id", *ref), nil
}

func organizationScoped(schema entity.Schema) bool {
	field, ok := schema.Field(organizationField)
	return ok && field.Type == entity.Reference
}

func referenceField(schema entity.Schema, name string, fieldType entity.FieldType) (entity.Field, error) {
	field, ok := schema.Field(name)
	if !ok {
		return entity.Field{}, unknownField(schema, name)
	}
	if field.Type != fieldType {
		return entity.Field{}, ValidationError(fmt.Sprintf("%s field %q is a %s, not a %s", schema.DisplayName(), name, field.Type, fieldType), nil)
	}
	return field, nil
}

func unknownField(schema entity.Schema, name string) error {
	return ValidationError(fmt.Sprintf("%s does not declare field %q (fields: %s)", schema.DisplayName(), name, strings.Join(schema.FieldNames(), ", ")), nil)
}
