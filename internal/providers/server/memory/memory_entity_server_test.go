package memory

import (
	"context"
	"testing"

	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/faults"
	"github.com/crmarques/cement/server"
)

func TestSearchMatchesCriteriaAndScope(t *testing.T) {
	t.Parallel()

	srv := New()
	registry := entity.DefaultRegistry()
	schema, _ := registry.Schema(entity.KindContentView)
	first := srv.Seed(entity.Entity{Kind: entity.KindOrganization, Fields: entity.Fields{"name": "first"}})
	second := srv.Seed(entity.Entity{Kind: entity.KindOrganization, Fields: entity.Fields{"name": "second"}})
	srv.Seed(entity.Entity{Kind: entity.KindContentView, Fields: entity.Fields{"name": "base", "organization": first.Ref()}})
	want := srv.Seed(entity.Entity{Kind: entity.KindContentView, Fields: entity.Fields{"name": "base", "organization": second.Ref()}})

	page, err := srv.Search(context.Background(), schema, server.SearchQuery{
		Search: `name="base"`,
		Scope:  []server.Param{{Key: "organization_id", Value: "2"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Results) != 1 || page.Results[0].ID != want.ID {
		t.Fatalf("unexpected results %#v", page.Results)
	}
	if page.Subtotal != 1 || page.Total != 2 {
		t.Fatalf("unexpected totals %d/%d", page.Subtotal, page.Total)
	}
}

func TestParseExpression(t *testing.T) {
	t.Parallel()

	params, err := parseExpression(`name="a, \"b\"",version="2"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(params) != 2 || params[0].Value != `a, "b"` || params[1].Key != "version" {
		t.Fatalf("unexpected params %#v", params)
	}

	if _, err := parseExpression(`name=unquoted`); !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestReadDropsWriteOnlyFields(t *testing.T) {
	t.Parallel()

	srv := New()
	schema, _ := entity.DefaultRegistry().Schema(entity.KindComputeResource)
	created, err := srv.Create(context.Background(), schema, entity.Entity{Fields: entity.Fields{
		"name":     "vmware",
		"password": "secret",
		"colour":   "blue",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := created.Fields["password"]; ok {
		t.Fatal("expected password to be hidden")
	}
	if _, ok := created.Fields["colour"]; ok {
		t.Fatal("expected undeclared field to be dropped")
	}
	stored, _ := srv.Get(entity.KindComputeResource, created.ID)
	if stored.Fields["password"] != "secret" {
		t.Fatalf("expected password to be stored, got %#v", stored.Fields)
	}
}

func TestMissingEntityIsNotFound(t *testing.T) {
	t.Parallel()

	srv := New()
	schema, _ := entity.DefaultRegistry().Schema(entity.KindLocation)
	if _, err := srv.Read(context.Background(), schema, 42); !faults.IsCategory(err, faults.NotFoundError) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if err := srv.Delete(context.Background(), schema, entity.Entity{ID: 42}); !faults.IsCategory(err, faults.NotFoundError) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
