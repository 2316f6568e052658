package resolver

import (
	"context"
	"fmt"

	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/faults"
	"github.com/crmarques/cement/server"
)

const DefaultPageSize = 100

// Resolver looks remote entities up by natural-key criteria.
type Resolver struct {
	server   server.EntityServer
	schemas  entity.SchemaProvider
	pageSize int
}

type Option func(*Resolver)

func WithPageSize(size int) Option {
	return func(r *Resolver) {
		if size > 0 {
			r.pageSize = size
		}
	}
}

func New(srv server.EntityServer, schemas entity.SchemaProvider, opts ...Option) *Resolver {
	r := &Resolver{
		server:   srv,
		schemas:  schemas,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// FindByCriteria returns every entity of kind matching criteria within
// scope, following pagination until the result set is exhausted.
func (r *Resolver) FindByCriteria(ctx context.Context, kind string, criteria Criteria, scope Scope) ([]entity.Entity, error) {
	if r == nil || r.server == nil {
		return nil, faults.NewTypedError(faults.InternalError, "resolver is not configured", nil)
	}
	schema, err := r.schemas.Schema(kind)
	if err != nil {
		return nil, err
	}

	query := server.SearchQuery{
		Search:  criteria.Expression(),
		Scope:   append([]server.Param{}, scope...),
		PerPage: r.pageSize,
	}

	var found []entity.Entity
	for page := 1; ; page++ {
		query.Page = page
		result, err := r.server.Search(ctx, schema, query)
		if err != nil {
			return nil, err
		}
		found = append(found, result.Results...)

		if lastPage(result, len(found), r.pageSize) {
			return found, nil
		}
	}
}

func lastPage(result server.SearchPage, collected int, requested int) bool {
	if len(result.Results) == 0 {
		return true
	}
	perPage := result.PerPage
	if perPage <= 0 {
		perPage = requested
	}
	if len(result.Results) < perPage {
		return true
	}
	expected := result.Subtotal
	if expected <= 0 {
		expected = result.Total
	}
	return expected > 0 && collected >= expected
}

// FindOne expects exactly one match. With required unset, zero or many
// matches yield a nil entity and no error.
func (r *Resolver) FindOne(ctx context.Context, kind string, criteria Criteria, scope Scope, required bool) (*entity.Entity, error) {
	return r.findOne(ctx, lookup{
		kind:     kind,
		criteria: criteria,
		scope:    scope,
		required: required,
	})
}

// FindManyByNames resolves each name independently and stops at the first
// one that cannot be found.
func (r *Resolver) FindManyByNames(ctx context.Context, kind string, names []string, scope Scope) ([]entity.Entity, error) {
	found := make([]entity.Entity, 0, len(names))
	for _, name := range names {
		item, err := r.FindOne(ctx, kind, Where("name", name), scope, true)
		if err != nil {
			if faults.IsCategory(err, faults.NotFoundError) || faults.IsCategory(err, faults.AmbiguousMatchError) {
				category, _ := faults.CategoryOf(err)
				return nil, &faults.TypedError{
					Category: category,
					Kind:     kind,
					Message:  fmt.Sprintf("could not find the %s %s", r.title(kind), name),
					Cause:    err,
				}
			}
			return nil, err
		}
		found = append(found, *item)
	}
	return found, nil
}

type lookup struct {
	kind        string
	criteria    Criteria
	scope       Scope
	required    bool
	description string
}

func (r *Resolver) findOne(ctx context.Context, request lookup) (*entity.Entity, error) {
	found, err := r.FindByCriteria(ctx, request.kind, request.criteria, request.scope)
	if err != nil {
		return nil, err
	}
	if len(found) == 1 {
		item := found[0]
		return &item, nil
	}
	if !request.required {
		return nil, nil
	}

	description := request.description
	if description == "" {
		description = fmt.Sprintf("%s matching %s", r.title(request.kind), describe(request.criteria, request.scope))
	}
	if len(found) == 0 {
		return nil, &faults.TypedError{
			Category: faults.NotFoundError,
			Kind:     request.kind,
			Message:  "no " + description + " found",
		}
	}
	return nil, &faults.TypedError{
		Category: faults.AmbiguousMatchError,
		Kind:     request.kind,
		Message:  fmt.Sprintf("expected exactly one %s, found %d", description, len(found)),
	}
}

func (r *Resolver) title(kind string) string {
	if r != nil && r.schemas != nil {
		if schema, err := r.schemas.Schema(kind); err == nil {
			return schema.DisplayName()
		}
	}
	return kind
}
