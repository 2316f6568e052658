package core

import (
	"github.com/crmarques/cement/config"
	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/internal/metrics"
	"github.com/crmarques/cement/reconciler"
	"github.com/crmarques/cement/resolver"
	"github.com/crmarques/cement/server"
)

// CementContext holds the collaborators built for one resolved context.
// It is assembled once per process and never reconfigured.
type CementContext struct {
	Name     string
	Contexts config.ContextService
	Schemas  *entity.Registry
	Server   server.EntityServer
	Resolver *resolver.Resolver
	Engine   *reconciler.Engine
	Differ   *reconciler.Differ
	Metrics  *metrics.Recorder

	// Organization is the default organization of the resolved context.
	Organization string
}

type BootstrapConfig struct {
	ContextCatalogPath string
	UserAgent          string
	// Metrics receives request and reconcile observations when set.
	Metrics *metrics.Recorder
	// PasswordPrompt supplies a basic-auth password the context leaves empty.
	PasswordPrompt func(resolved config.Context) (string, error)
	// FieldReplace makes updates clear declared fields missing from the
	// desired state.
	FieldReplace bool
}
