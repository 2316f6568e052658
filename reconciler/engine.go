package reconciler

import (
	"context"
	"fmt"

	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/faults"
	"github.com/crmarques/cement/server"
)

// Outcome reports what a reconcile decided and, outside dry runs, did.
type Outcome struct {
	Changed bool           `json:"changed" yaml:"changed"`
	Action  Action         `json:"action" yaml:"action"`
	Fields  []string       `json:"fields,omitempty" yaml:"fields,omitempty"`
	Changes []Change       `json:"changes,omitempty" yaml:"changes,omitempty"`
	Entity  *entity.Entity `json:"entity,omitempty" yaml:"entity,omitempty"`
	DryRun  bool           `json:"dryRun" yaml:"dryRun"`
}

// Observer is notified once per reconcile.
type Observer interface {
	ObserveReconcile(kind string, outcome Outcome, err error)
}

// Engine converges one entity at a time towards its desired state.
type Engine struct {
	server   server.EntityServer
	schemas  entity.SchemaProvider
	differ   *Differ
	replace  bool
	observer Observer
}

type EngineOption func(*Engine)

// WithFieldReplace makes updates clear declared fields the desired state
// leaves out.
func WithFieldReplace(enabled bool) EngineOption {
	return func(e *Engine) {
		e.replace = enabled
	}
}

func WithObserver(observer Observer) EngineOption {
	return func(e *Engine) {
		e.observer = observer
	}
}

func NewEngine(srv server.EntityServer, schemas entity.SchemaProvider, opts ...EngineOption) *Engine {
	e := &Engine{
		server:  srv,
		schemas: schemas,
		differ:  NewDiffer(srv, schemas),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Reconcile decides between create, update, delete and no-op from the
// presence of current and intent. A dry run takes the same decision but
// issues no mutating call.
func (e *Engine) Reconcile(
	ctx context.Context,
	kind string,
	desired entity.Fields,
	current *entity.Entity,
	intent Intent,
	dryRun bool,
) (Outcome, error) {
	outcome, err := e.reconcile(ctx, kind, desired, current, intent, dryRun)
	outcome.DryRun = dryRun
	if e.observer != nil {
		e.observer.ObserveReconcile(kind, outcome, err)
	}
	return outcome, err
}

func (e *Engine) reconcile(
	ctx context.Context,
	kind string,
	desired entity.Fields,
	current *entity.Entity,
	intent Intent,
	dryRun bool,
) (Outcome, error) {
	if e == nil || e.server == nil || e.schemas == nil {
		return Outcome{Action: ActionNone}, faults.NewTypedError(faults.InternalError, "engine is not configured", nil)
	}
	intent, err := ParseIntent(string(intent))
	if err != nil {
		return Outcome{Action: ActionNone}, err
	}
	schema, err := e.schemas.Schema(kind)
	if err != nil {
		return Outcome{Action: ActionNone}, err
	}

	switch {
	case current == nil && intent == IntentAbsent:
		return Outcome{Action: ActionNone}, nil
	case current == nil:
		return e.create(ctx, schema, desired, dryRun)
	case intent == IntentPresent:
		existing := current.Clone()
		return Outcome{Action: ActionNone, Entity: &existing}, nil
	case intent == IntentLatest:
		return e.update(ctx, schema, *current, desired, dryRun)
	case intent == IntentAbsent:
		return e.delete(ctx, schema, *current, dryRun)
	default:
		return Outcome{Action: ActionNone}, faults.NewTypedError(faults.InternalError, fmt.Sprintf("unhandled state %q", intent), nil)
	}
}

func (e *Engine) create(ctx context.Context, schema entity.Schema, desired entity.Fields, dryRun bool) (Outcome, error) {
	if err := requireWritable(schema); err != nil {
		return Outcome{Action: ActionNone}, err
	}
	fields, err := schema.NormalizeDesired(desired)
	if err != nil {
		return Outcome{Action: ActionNone}, err
	}

	staged := entity.Entity{Kind: schema.Kind, Fields: entity.Fields{}}
	names := make([]string, 0, len(schema.Fields))
	for _, field := range schema.Fields {
		if value, ok := fields[field.Name]; ok {
			staged.Fields[field.Name] = value
			names = append(names, field.Name)
		}
	}

	outcome := Outcome{Changed: true, Action: ActionCreate, Fields: names, Entity: &staged}
	if dryRun {
		return outcome, nil
	}

	created, err := e.server.Create(ctx, schema, staged)
	if err != nil {
		return Outcome{Action: ActionCreate}, faults.NewMutationError(faults.CreateError, schema.Kind, err)
	}
	created.Kind = schema.Kind
	outcome.Entity = &created
	return outcome, nil
}

func (e *Engine) update(ctx context.Context, schema entity.Schema, current entity.Entity, desired entity.Fields, dryRun bool) (Outcome, error) {
	current.Kind = schema.Kind

	var diff Diff
	var err error
	if e.replace {
		diff, err = e.differ.DiffReplace(ctx, current, desired)
	} else {
		diff, err = e.differ.Diff(ctx, current, desired)
	}
	if err != nil {
		if faults.IsCategory(err, faults.ValidationError) {
			return Outcome{Action: ActionNone}, err
		}
		return Outcome{Action: ActionUpdate}, faults.NewMutationError(faults.UpdateError, schema.Kind, err)
	}

	if !diff.Changed() {
		fresh := diff.Entity
		return Outcome{Action: ActionNone, Entity: &fresh}, nil
	}
	if err := requireWritable(schema); err != nil {
		return Outcome{Action: ActionNone}, err
	}

	staged := diff.Entity
	outcome := Outcome{Changed: true, Action: ActionUpdate, Fields: diff.Fields, Changes: diff.Changes, Entity: &staged}
	if dryRun {
		return outcome, nil
	}

	updated, err := e.server.Update(ctx, schema, staged, diff.Fields)
	if err != nil {
		return Outcome{Action: ActionUpdate}, faults.NewMutationError(faults.UpdateError, schema.Kind, err)
	}
	updated.Kind = schema.Kind
	if updated.ID == 0 {
		updated.ID = current.ID
	}
	outcome.Entity = &updated
	return outcome, nil
}

func (e *Engine) delete(ctx context.Context, schema entity.Schema, current entity.Entity, dryRun bool) (Outcome, error) {
	if err := requireWritable(schema); err != nil {
		return Outcome{Action: ActionNone}, err
	}
	current.Kind = schema.Kind

	deleted := current.Clone()
	outcome := Outcome{Changed: true, Action: ActionDelete, Entity: &deleted}
	if dryRun {
		return outcome, nil
	}

	if err := e.server.Delete(ctx, schema, current); err != nil {
		return Outcome{Action: ActionDelete}, faults.NewMutationError(faults.DeleteError, schema.Kind, err)
	}
	return outcome, nil
}

func requireWritable(schema entity.Schema) error {
	if !schema.ReadOnly() {
		return nil
	}
	return &faults.TypedError{
		Category: faults.ValidationError,
		Kind:     schema.Kind,
		Message:  fmt.Sprintf("%s entities are read-only", schema.DisplayName()),
	}
}
