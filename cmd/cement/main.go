package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/crmarques/cement/core"
	"github.com/crmarques/cement/internal/cli"
)

const tracingShutdownTimeout = 5 * time.Second

func main() {
	ctx := context.Background()

	shutdown, err := core.StartTracing(ctx, cli.BuildVersion())
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCodeForError(err))
	}

	bootstrap := core.BootstrapConfig{
		UserAgent: "cement/" + cli.BuildVersion(),
		Metrics:   core.NewMetricsRecorder(),
	}
	deps := cli.Dependencies{
		Contexts: core.NewContextService(bootstrap),
		Connect:  connector(bootstrap),
		Metrics:  bootstrap.Metrics,
	}

	err = cli.Execute(deps)

	shutdownCtx, cancel := context.WithTimeout(ctx, tracingShutdownTimeout)
	_ = shutdown(shutdownCtx)
	cancel()

	if err != nil {
		os.Exit(cli.ExitCodeForError(err))
	}
}

// connector defers context resolution and gateway construction until a
// command needs the server.
func connector(bootstrap core.BootstrapConfig) cli.Connector {
	return func(ctx context.Context, opts cli.ConnectOptions) (cli.Session, error) {
		cfg := bootstrap
		cfg.FieldReplace = opts.FieldReplace
		cfg.PasswordPrompt = opts.PasswordPrompt

		cementContext, err := core.NewCementContext(ctx, cfg, opts.Selection)
		if err != nil {
			return cli.Session{}, err
		}
		return sessionFromContext(cementContext), nil
	}
}

func sessionFromContext(cementContext core.CementContext) cli.Session {
	return cli.Session{
		Name:         cementContext.Name,
		Schemas:      cementContext.Schemas,
		Server:       cementContext.Server,
		Resolver:     cementContext.Resolver,
		Engine:       cementContext.Engine,
		Differ:       cementContext.Differ,
		Organization: cementContext.Organization,
	}
}
