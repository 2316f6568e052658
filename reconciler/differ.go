package reconciler

import (
	"context"
	"fmt"

	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/faults"
	"github.com/crmarques/cement/server"
)

// Change records one staged field value.
type Change struct {
	Field string       `json:"field" yaml:"field"`
	From  entity.Value `json:"from" yaml:"from"`
	To    entity.Value `json:"to" yaml:"to"`
}

// Diff is the outcome of comparing desired fields against a fresh read.
// Entity carries the staged values; nothing is persisted.
type Diff struct {
	Fields  []string
	Changes []Change
	Entity  entity.Entity
}

func (d Diff) Changed() bool {
	return len(d.Fields) > 0
}

// Differ computes field-level differences per entity kind.
type Differ struct {
	server  server.EntityServer
	schemas entity.SchemaProvider
}

func NewDiffer(srv server.EntityServer, schemas entity.SchemaProvider) *Differ {
	return &Differ{server: srv, schemas: schemas}
}

// Diff re-reads current and stages every supplied field whose value
// differs. Fields missing from desired are left untouched; fields supplied
// as nil are cleared.
func (d *Differ) Diff(ctx context.Context, current entity.Entity, desired entity.Fields) (Diff, error) {
	return d.diff(ctx, current, desired, false)
}

// DiffReplace behaves like Diff but treats desired as the complete field
// set: declared fields it does not supply are cleared when non-nil.
func (d *Differ) DiffReplace(ctx context.Context, current entity.Entity, desired entity.Fields) (Diff, error) {
	return d.diff(ctx, current, desired, true)
}

func (d *Differ) diff(ctx context.Context, current entity.Entity, desired entity.Fields, replace bool) (Diff, error) {
	if d == nil || d.server == nil || d.schemas == nil {
		return Diff{}, faults.NewTypedError(faults.InternalError, "differ is not configured", nil)
	}
	schema, err := d.schemas.Schema(current.Kind)
	if err != nil {
		return Diff{}, err
	}
	normalized, err := schema.NormalizeDesired(desired)
	if err != nil {
		return Diff{}, err
	}

	fresh, err := d.server.Read(ctx, schema, current.ID)
	if err != nil {
		return Diff{}, err
	}
	fresh.Kind = schema.Kind
	fresh.ID = current.ID

	return stage(schema, fresh, normalized, replace)
}

func stage(schema entity.Schema, fresh entity.Entity, desired entity.Fields, replace bool) (Diff, error) {
	result := Diff{Entity: fresh.Clone()}
	for _, field := range schema.Fields {
		if field.WriteOnly {
			continue
		}

		wanted, supplied := desired[field.Name]
		if !supplied && !replace {
			continue
		}
		if !supplied {
			wanted = nil
		}

		existing, _ := fresh.Get(field.Name)
		if wanted == nil {
			if isNil(existing) {
				continue
			}
			if !field.Nullable {
				if !supplied {
					continue
				}
				return Diff{}, &faults.TypedError{
					Category: faults.ValidationError,
					Kind:     schema.Kind,
					Message:  fmt.Sprintf("field %q of %s cannot be cleared", field.Name, schema.DisplayName()),
				}
			}
		} else if entity.ValuesEqual(existing, wanted) {
			continue
		}

		result.Entity.Fields[field.Name] = wanted
		result.Fields = append(result.Fields, field.Name)
		result.Changes = append(result.Changes, Change{Field: field.Name, From: existing, To: wanted})
	}
	return result, nil
}

func isNil(value entity.Value) bool {
	if value == nil {
		return true
	}
	if refs, ok := value.([]entity.Ref); ok {
		return refs == nil
	}
	return false
}
