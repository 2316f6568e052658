package common

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/crmarques/cement/config"
	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/reconciler"
	"github.com/crmarques/cement/resolver"
	"github.com/crmarques/cement/server"
)

// Session is the set of collaborators bound to one resolved context.
type Session struct {
	Name     string
	Schemas  *entity.Registry
	Server   server.EntityServer
	Resolver *resolver.Resolver
	Engine   *reconciler.Engine
	Differ   *reconciler.Differ

	// Organization is the context's default organization name.
	Organization string
}

type ConnectOptions struct {
	Selection      config.ContextSelection
	FieldReplace   bool
	PasswordPrompt func(resolved config.Context) (string, error)
}

type Connector func(ctx context.Context, opts ConnectOptions) (Session, error)

type MetricsWriter interface {
	WriteTextfile(path string) error
}

type CommandDependencies struct {
	Contexts config.ContextService
	Connect  Connector
	Metrics  MetricsWriter
}

func RequireContexts(deps CommandDependencies) (config.ContextService, error) {
	if deps.Contexts == nil {
		return nil, ValidationError("context service is not configured", nil)
	}
	return deps.Contexts, nil
}

// OpenSession connects to the context selected by --context. A missing
// basic-auth password is prompted for when stdin is a terminal.
func OpenSession(command *cobra.Command, deps CommandDependencies, globalFlags *GlobalFlags, fieldReplace bool) (Session, error) {
	if deps.Connect == nil {
		return Session{}, ValidationError("server connection is not configured", nil)
	}

	opts := ConnectOptions{FieldReplace: fieldReplace}
	if globalFlags != nil {
		opts.Selection.Name = globalFlags.Context
	}
	if IsInteractiveTerminal(command) {
		opts.PasswordPrompt = func(resolved config.Context) (string, error) {
			username := ""
			if resolved.Server != nil && resolved.Server.Auth != nil && resolved.Server.Auth.BasicAuth != nil {
				username = resolved.Server.Auth.BasicAuth.Username
			}
			return PromptPassword(command, "Password for "+username+"@"+resolved.Name+": ")
		}
	}
	return deps.Connect(command.Context(), opts)
}
