package core

import (
	"context"
	"strings"

	"github.com/crmarques/cement/config"
	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/faults"
	configfile "github.com/crmarques/cement/internal/providers/config/file"
	httpserver "github.com/crmarques/cement/internal/providers/server/http"
	"github.com/crmarques/cement/reconciler"
	"github.com/crmarques/cement/resolver"
	"github.com/crmarques/cement/server"
)

func NewContextService(opts BootstrapConfig) config.ContextService {
	return configfile.NewFileContextService(opts.ContextCatalogPath)
}

// NewCementContext resolves the selected context and builds the HTTP gateway,
// the resolver and the convergence engine on top of it.
func NewCementContext(ctx context.Context, opts BootstrapConfig, selection config.ContextSelection) (CementContext, error) {
	contextService := NewContextService(opts)
	resolved, err := contextService.ResolveContext(ctx, selection)
	if err != nil {
		return CementContext{}, err
	}

	if err := promptForPassword(&resolved, opts.PasswordPrompt); err != nil {
		return CementContext{}, err
	}

	gatewayOptions := []httpserver.GatewayOption{httpserver.WithUserAgent(opts.UserAgent)}
	if opts.Metrics != nil {
		gatewayOptions = append(gatewayOptions, httpserver.WithRequestRecorder(opts.Metrics))
	}
	gateway, err := httpserver.NewEntityServerGateway(*resolved.Server, gatewayOptions...)
	if err != nil {
		return CementContext{}, err
	}

	cementContext := Assemble(gateway, entity.DefaultRegistry(), *resolved.Server, opts)
	cementContext.Name = resolved.Name
	cementContext.Contexts = contextService
	return cementContext, nil
}

// Assemble wires the resolver and engine around an already built server.
func Assemble(srv server.EntityServer, schemas *entity.Registry, serverConfig config.Server, opts BootstrapConfig) CementContext {
	engineOptions := []reconciler.EngineOption{reconciler.WithFieldReplace(opts.FieldReplace)}
	if opts.Metrics != nil {
		engineOptions = append(engineOptions, reconciler.WithObserver(opts.Metrics))
	}

	return CementContext{
		Schemas:  schemas,
		Server:   srv,
		Resolver: resolver.New(srv, schemas, resolver.WithPageSize(serverConfig.EffectivePageSize())),
		Engine:   reconciler.NewEngine(srv, schemas, engineOptions...),
		Differ:   reconciler.NewDiffer(srv, schemas),
		Metrics:  opts.Metrics,

		Organization: serverConfig.Organization,
	}
}

func promptForPassword(resolved *config.Context, prompt func(config.Context) (string, error)) error {
	if resolved.Server == nil {
		return faults.NewTypedError(faults.ValidationError, "context server is required", nil)
	}
	auth := resolved.Server.Auth
	if prompt == nil || auth == nil || auth.BasicAuth == nil || auth.BasicAuth.Password != "" {
		return nil
	}

	password, err := prompt(*resolved)
	if err != nil {
		return faults.NewTypedError(faults.AuthError, "failed to read password", err)
	}
	if strings.TrimSpace(password) == "" {
		return faults.NewTypedError(faults.AuthError, "server.auth.basic-auth.password is required", nil)
	}

	serverCopy := *resolved.Server
	authCopy := *auth
	basic := *auth.BasicAuth
	basic.Password = password
	authCopy.BasicAuth = &basic
	serverCopy.Auth = &authCopy
	resolved.Server = &serverCopy
	return nil
}
