package server

import (
	"context"

	"github.com/crmarques/cement/entity"
)

// EntityServer is the transport/session collaborator consumed by the
// resolver and the convergence engine. Every call blocks until the remote
// request, and any server-side task it triggers, has finished.
type EntityServer interface {
	Search(ctx context.Context, schema entity.Schema, query SearchQuery) (SearchPage, error)
	Read(ctx context.Context, schema entity.Schema, id int64) (entity.Entity, error)
	Create(ctx context.Context, schema entity.Schema, item entity.Entity) (entity.Entity, error)
	// Update persists only the named fields of item.
	Update(ctx context.Context, schema entity.Schema, item entity.Entity, fields []string) (entity.Entity, error)
	Delete(ctx context.Context, schema entity.Schema, item entity.Entity) error
	Ping(ctx context.Context) (Status, error)
}

// RawReader is an optional capability returning the undecoded record of an
// entity, for attributes outside the declared schema.
type RawReader interface {
	ReadRaw(ctx context.Context, schema entity.Schema, id int64) (map[string]any, error)
}

// SearchQuery is one page request. Search carries the conjunctive equality
// expression; Scope carries parent-scoping query parameters.
type SearchQuery struct {
	Search  string
	Scope   []Param
	Page    int
	PerPage int
}

type Param struct {
	Key   string
	Value string
}

type SearchPage struct {
	Results  []entity.Entity
	Total    int
	Subtotal int
	Page     int
	PerPage  int
}

type Status struct {
	Version string         `json:"version" yaml:"version"`
	Result  string         `json:"result,omitempty" yaml:"result,omitempty"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}
