package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/faults"
)

func (r *Resolver) FindOrganization(ctx context.Context, name string, required bool) (*entity.Entity, error) {
	return r.findNamed(ctx, entity.KindOrganization, name, nil, required)
}

func (r *Resolver) FindLocation(ctx context.Context, name string, required bool) (*entity.Entity, error) {
	return r.findNamed(ctx, entity.KindLocation, name, nil, required)
}

func (r *Resolver) FindComputeResource(ctx context.Context, name string, required bool) (*entity.Entity, error) {
	return r.findNamed(ctx, entity.KindComputeResource, name, nil, required)
}

func (r *Resolver) FindTemplateKind(ctx context.Context, name string, required bool) (*entity.Entity, error) {
	return r.findNamed(ctx, entity.KindTemplateKind, name, nil, required)
}

func (r *Resolver) FindCommonParameter(ctx context.Context, name string, required bool) (*entity.Entity, error) {
	return r.findNamed(ctx, entity.KindCommonParameter, name, nil, required)
}

func (r *Resolver) FindContentView(ctx context.Context, name string, organization entity.Ref, required bool) (*entity.Entity, error) {
	return r.findNamed(ctx, entity.KindContentView, name, ScopedBy("organization_id", organization), required)
}

func (r *Resolver) FindLifecycleEnvironment(ctx context.Context, name string, organization entity.Ref, required bool) (*entity.Entity, error) {
	return r.findNamed(ctx, entity.KindLifecycleEnvironment, name, ScopedBy("organization_id", organization), required)
}

// FindProduct scopes by organization only; the product's sync plan never
// takes part in the query.
func (r *Resolver) FindProduct(ctx context.Context, name string, organization entity.Ref, required bool) (*entity.Entity, error) {
	return r.findNamed(ctx, entity.KindProduct, name, ScopedBy("organization_id", organization), required)
}

func (r *Resolver) FindRepository(ctx context.Context, name string, product entity.Ref) (*entity.Entity, error) {
	return r.findNamed(ctx, entity.KindRepository, name, ScopedBy("product_id", product), true)
}

func (r *Resolver) FindRepositories(ctx context.Context, names []string, product entity.Ref) ([]entity.Entity, error) {
	repositories := make([]entity.Entity, 0, len(names))
	for _, name := range names {
		repository, err := r.FindRepository(ctx, name, product)
		if err != nil {
			return nil, err
		}
		repositories = append(repositories, *repository)
	}
	return repositories, nil
}

func (r *Resolver) FindRepositorySet(ctx context.Context, name string, product entity.Ref, required bool) (*entity.Entity, error) {
	return r.findNamed(ctx, entity.KindRepositorySet, name, ScopedBy("product_id", product), required)
}

// VersionScope selects a content view version either by the lifecycle
// environment it is promoted to or by its version number. Exactly one of
// the two must be set.
type VersionScope struct {
	Environment *entity.Ref
	Version     string
}

func (s VersionScope) validate() error {
	hasEnvironment := s.Environment != nil
	hasVersion := strings.TrimSpace(s.Version) != ""
	if hasEnvironment == hasVersion {
		return faults.NewTypedError(
			faults.ValidationError,
			"content view version lookup requires exactly one of environment or version",
			nil,
		)
	}
	return nil
}

func (r *Resolver) FindContentViewVersion(ctx context.Context, contentView entity.Ref, scope VersionScope, required bool) (*entity.Entity, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}

	request := lookup{
		kind:     entity.KindContentViewVersion,
		scope:    ScopedBy("content_view_id", contentView),
		required: required,
	}
	if scope.Environment != nil {
		request.scope = request.scope.And("environment_id", *scope.Environment)
		request.description = fmt.Sprintf(
			"content view version on content view %s promoted to environment %s",
			displayRef(contentView),
			displayRef(*scope.Environment),
		)
	} else {
		request.criteria = Where("version", strings.TrimSpace(scope.Version))
		request.description = fmt.Sprintf(
			"content view version on content view %s for version %s",
			displayRef(contentView),
			strings.TrimSpace(scope.Version),
		)
	}

	return r.findOne(ctx, request)
}

func (r *Resolver) findNamed(ctx context.Context, kind string, name string, scope Scope, required bool) (*entity.Entity, error) {
	return r.findOne(ctx, lookup{
		kind:        kind,
		criteria:    Where("name", name),
		scope:       scope,
		required:    required,
		description: fmt.Sprintf("%s %q", r.title(kind), name),
	})
}

func displayRef(ref entity.Ref) string {
	if ref.Name != "" {
		return fmt.Sprintf("%q", ref.Name)
	}
	return fmt.Sprintf("#%d", ref.ID)
}
