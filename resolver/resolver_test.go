package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/faults"
	"github.com/crmarques/cement/internal/providers/server/memory"
	"github.com/crmarques/cement/server"
)

type recordingServer struct {
	*memory.Server
	queries []server.SearchQuery
}

func (r *recordingServer) Search(ctx context.Context, schema entity.Schema, query server.SearchQuery) (server.SearchPage, error) {
	r.queries = append(r.queries, query)
	return r.Server.Search(ctx, schema, query)
}

func newFixture(t *testing.T, opts ...Option) (*Resolver, *recordingServer) {
	t.Helper()
	srv := &recordingServer{Server: memory.New()}
	return New(srv, entity.DefaultRegistry(), opts...), srv
}

func seedOrganization(srv *recordingServer, name string) entity.Entity {
	return srv.Seed(entity.Entity{Kind: entity.KindOrganization, Fields: entity.Fields{"name": name}})
}

func TestCriteriaExpression(t *testing.T) {
	t.Parallel()

	criteria := Where("name", "Default Organization").And("version", 2)
	if got := criteria.Expression(); got != `name="Default Organization",version="2"` {
		t.Fatalf("unexpected expression %q", got)
	}
	if got := Criteria(nil).Expression(); got != "" {
		t.Fatalf("expected empty expression, got %q", got)
	}

	scope := ScopedBy("organization_id", entity.Ref{ID: 3}).And("product_id", entity.Ref{ID: 9})
	if len(scope) != 2 || scope[0].Value != "3" || scope[1].Key != "product_id" || scope[1].Value != "9" {
		t.Fatalf("unexpected scope %#v", scope)
	}
}

func TestFindOneCardinality(t *testing.T) {
	t.Parallel()

	t.Run("single_match_resolves_regardless_of_required", func(t *testing.T) {
		t.Parallel()
		resolver, srv := newFixture(t)
		seeded := seedOrganization(srv, "acme")

		for _, required := range []bool{true, false} {
			found, err := resolver.FindOrganization(context.Background(), "acme", required)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if found == nil || found.ID != seeded.ID {
				t.Fatalf("expected organization %d, got %#v", seeded.ID, found)
			}
		}
	})

	t.Run("no_match_required_is_not_found", func(t *testing.T) {
		t.Parallel()
		resolver, _ := newFixture(t)

		_, err := resolver.FindOrganization(context.Background(), "missing", true)
		if !faults.IsCategory(err, faults.NotFoundError) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
		if !strings.Contains(err.Error(), `"missing"`) {
			t.Fatalf("expected error to name the criteria, got %q", err.Error())
		}
		var typed *faults.TypedError
		if !errors.As(err, &typed) || typed.Kind != entity.KindOrganization {
			t.Fatalf("expected kind on error, got %#v", err)
		}
	})

	t.Run("no_match_optional_is_nil", func(t *testing.T) {
		t.Parallel()
		resolver, _ := newFixture(t)

		found, err := resolver.FindOrganization(context.Background(), "missing", false)
		if err != nil || found != nil {
			t.Fatalf("expected nil result without error, got %#v %v", found, err)
		}
	})

	t.Run("many_matches_required_is_ambiguous", func(t *testing.T) {
		t.Parallel()
		resolver, srv := newFixture(t)
		seedOrganization(srv, "twin")
		seedOrganization(srv, "twin")

		_, err := resolver.FindOrganization(context.Background(), "twin", true)
		if !faults.IsCategory(err, faults.AmbiguousMatchError) {
			t.Fatalf("expected AmbiguousMatchError, got %v", err)
		}
		if !strings.Contains(err.Error(), "found 2") {
			t.Fatalf("expected match count in error, got %q", err.Error())
		}
	})

	t.Run("many_matches_optional_is_nil", func(t *testing.T) {
		t.Parallel()
		resolver, srv := newFixture(t)
		seedOrganization(srv, "twin")
		seedOrganization(srv, "twin")

		found, err := resolver.FindOrganization(context.Background(), "twin", false)
		if err != nil || found != nil {
			t.Fatalf("expected nil result without error, got %#v %v", found, err)
		}
	})
}

func TestFindByCriteriaFollowsPagination(t *testing.T) {
	t.Parallel()

	resolver, srv := newFixture(t, WithPageSize(2))
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		srv.Seed(entity.Entity{Kind: entity.KindLocation, Fields: entity.Fields{"name": name, "description": "dc"}})
	}

	found, err := resolver.FindByCriteria(context.Background(), entity.KindLocation, Where("description", "dc"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 5 {
		t.Fatalf("expected 5 locations across pages, got %d", len(found))
	}
	if len(srv.queries) != 3 {
		t.Fatalf("expected 3 page requests, got %d", len(srv.queries))
	}
	for idx, query := range srv.queries {
		if query.Page != idx+1 || query.PerPage != 2 {
			t.Fatalf("unexpected page request %d: %#v", idx, query)
		}
	}
}

func TestFindManyByNamesFailsFast(t *testing.T) {
	t.Parallel()

	resolver, srv := newFixture(t)
	product := srv.Seed(entity.Entity{Kind: entity.KindProduct, Fields: entity.Fields{"name": "base"}})
	scope := ScopedBy("product_id", product.Ref())
	for _, name := range []string{"os", "appstream"} {
		srv.Seed(entity.Entity{Kind: entity.KindRepository, Fields: entity.Fields{"name": name, "product": product.Ref()}})
	}

	found, err := resolver.FindManyByNames(context.Background(), entity.KindRepository, []string{"os", "appstream"}, scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 2 || found[0].Name() != "os" || found[1].Name() != "appstream" {
		t.Fatalf("expected repositories in input order, got %#v", found)
	}

	srv.queries = nil
	_, err = resolver.FindManyByNames(context.Background(), entity.KindRepository, []string{"os", "missing", "appstream"}, scope)
	if !faults.IsCategory(err, faults.NotFoundError) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if !strings.Contains(err.Error(), "could not find the repository missing") {
		t.Fatalf("expected error to name the failing name, got %q", err.Error())
	}
	if len(srv.queries) != 2 {
		t.Fatalf("expected lookups to stop at the first failure, got %d searches", len(srv.queries))
	}
}

func TestFindRepositoryIsScopedToProduct(t *testing.T) {
	t.Parallel()

	resolver, srv := newFixture(t)
	first := srv.Seed(entity.Entity{Kind: entity.KindProduct, Fields: entity.Fields{"name": "first"}})
	second := srv.Seed(entity.Entity{Kind: entity.KindProduct, Fields: entity.Fields{"name": "second"}})
	srv.Seed(entity.Entity{Kind: entity.KindRepository, Fields: entity.Fields{"name": "os", "product": first.Ref()}})
	want := srv.Seed(entity.Entity{Kind: entity.KindRepository, Fields: entity.Fields{"name": "os", "product": second.Ref()}})

	found, err := resolver.FindRepository(context.Background(), "os", second.Ref())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.ID != want.ID {
		t.Fatalf("expected repository %d, got %d", want.ID, found.ID)
	}

	query := srv.queries[len(srv.queries)-1]
	if query.Search != `name="os"` {
		t.Fatalf("scope leaked into search expression: %q", query.Search)
	}
	if len(query.Scope) != 1 || query.Scope[0].Key != "product_id" {
		t.Fatalf("expected product scope, got %#v", query.Scope)
	}
}

func TestFindContentViewVersion(t *testing.T) {
	t.Parallel()

	resolver, srv := newFixture(t)
	contentView := srv.Seed(entity.Entity{Kind: entity.KindContentView, Fields: entity.Fields{"name": "base"}})
	library := srv.Seed(entity.Entity{Kind: entity.KindLifecycleEnvironment, Fields: entity.Fields{"name": "Library"}})
	production := srv.Seed(entity.Entity{Kind: entity.KindLifecycleEnvironment, Fields: entity.Fields{"name": "Production"}})
	v1 := srv.Seed(entity.Entity{Kind: entity.KindContentViewVersion, Fields: entity.Fields{
		"content_view": contentView.Ref(),
		"version":      "1.0",
		"environments": []entity.Ref{production.Ref()},
	}})
	v2 := srv.Seed(entity.Entity{Kind: entity.KindContentViewVersion, Fields: entity.Fields{
		"content_view": contentView.Ref(),
		"version":      "2.0",
		"environments": []entity.Ref{library.Ref()},
	}})

	t.Run("by_environment", func(t *testing.T) {
		environment := production.Ref()
		found, err := resolver.FindContentViewVersion(context.Background(), contentView.Ref(), VersionScope{Environment: &environment}, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found.ID != v1.ID {
			t.Fatalf("expected version %d, got %d", v1.ID, found.ID)
		}
		query := srv.queries[len(srv.queries)-1]
		if query.Search != "" {
			t.Fatalf("expected no search expression, got %q", query.Search)
		}
		if len(query.Scope) != 2 || query.Scope[0].Key != "content_view_id" || query.Scope[1].Key != "environment_id" {
			t.Fatalf("unexpected scope %#v", query.Scope)
		}
	})

	t.Run("by_version", func(t *testing.T) {
		found, err := resolver.FindContentViewVersion(context.Background(), contentView.Ref(), VersionScope{Version: "2.0"}, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found.ID != v2.ID {
			t.Fatalf("expected version %d, got %d", v2.ID, found.ID)
		}
		query := srv.queries[len(srv.queries)-1]
		if query.Search != `version="2.0"` {
			t.Fatalf("unexpected search expression %q", query.Search)
		}
		if len(query.Scope) != 1 || query.Scope[0].Key != "content_view_id" {
			t.Fatalf("unexpected scope %#v", query.Scope)
		}
	})

	t.Run("requires_exactly_one_selector", func(t *testing.T) {
		environment := library.Ref()
		for _, scope := range []VersionScope{{}, {Environment: &environment, Version: "1.0"}} {
			_, err := resolver.FindContentViewVersion(context.Background(), contentView.Ref(), scope, true)
			if !faults.IsCategory(err, faults.ValidationError) {
				t.Fatalf("expected ValidationError for %#v, got %v", scope, err)
			}
		}
	})
}

func TestSubscriptionManifest(t *testing.T) {
	t.Parallel()

	resolver, srv := newFixture(t)
	organization := seedOrganization(srv, "acme")
	bare := seedOrganization(srv, "bare")
	srv.SetRaw(entity.KindOrganization, organization.ID, map[string]any{
		"owner_details": map[string]any{
			"upstreamConsumer": map[string]any{"name": "acme-satellite", "uuid": "abc"},
		},
	})

	consumer, err := resolver.SubscriptionManifest(context.Background(), organization.Ref())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if consumer["name"] != "acme-satellite" {
		t.Fatalf("unexpected upstream consumer %#v", consumer)
	}

	consumer, err = resolver.SubscriptionManifest(context.Background(), bare.Ref())
	if err != nil || consumer != nil {
		t.Fatalf("expected no manifest, got %#v %v", consumer, err)
	}
}

func TestUnknownKindIsValidationError(t *testing.T) {
	t.Parallel()

	resolver, _ := newFixture(t)
	_, err := resolver.FindByCriteria(context.Background(), "widget", Where("name", "x"), nil)
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
