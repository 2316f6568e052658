package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	configdomain "github.com/crmarques/cement/config"
	"github.com/crmarques/cement/internal/cli/common"
	"github.com/crmarques/cement/yamlutil"
)

const redactedValue = "<redacted>"

func NewCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "config",
		Short: "Manage contexts",
		Args:  cobra.NoArgs,
	}

	command.AddCommand(
		newAddCommand(deps),
		newDeleteCommand(deps),
		newListCommand(deps, globalFlags),
		newUseCommand(deps),
		newCurrentCommand(deps, globalFlags),
		newShowCommand(deps, globalFlags),
		newResolveCommand(deps, globalFlags),
		newValidateCommand(deps),
	)
	return command
}

func newAddCommand(deps common.CommandDependencies) *cobra.Command {
	var file string
	var setCurrent bool

	command := &cobra.Command{
		Use:   "add",
		Short: "Add a context from a YAML document",
		Example: "  cement config add -f lab.yaml --set-current\n" +
			"  cat lab.yaml | cement config add -f -",
		Args: cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}
			cfg, err := decodeContext(command, file)
			if err != nil {
				return err
			}
			if err := contexts.Create(command.Context(), cfg); err != nil {
				return err
			}
			if setCurrent {
				return contexts.SetCurrent(command.Context(), cfg.Name)
			}
			return nil
		},
	}

	command.Flags().StringVarP(&file, "file", "f", "", "context file path (use '-' for stdin)")
	command.Flags().BoolVar(&setCurrent, "set-current", false, "make the added context current")
	_ = command.MarkFlagRequired("file")
	return command
}

func newDeleteCommand(deps common.CommandDependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}
			return contexts.Delete(command.Context(), args[0])
		},
	}
}

func newListCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List contexts",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}
			items, err := contexts.List(command.Context())
			if err != nil {
				return err
			}
			redacted := make([]configdomain.Context, len(items))
			for idx, item := range items {
				redacted[idx] = redactContext(item)
			}
			return common.WriteOutput(command, globalFlags.Output, redacted, func(w io.Writer, value []configdomain.Context) error {
				for _, item := range value {
					if _, err := fmt.Fprintln(w, item.Name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newUseCommand(deps common.CommandDependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Set the current context",
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}
			return contexts.SetCurrent(command.Context(), args[0])
		},
	}
}

func newCurrentCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Print the current context",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}
			current, err := contexts.GetCurrent(command.Context())
			if err != nil {
				return err
			}
			return common.WriteOutput(command, globalFlags.Output, redactContext(current), func(w io.Writer, value configdomain.Context) error {
				_, err := fmt.Fprintln(w, value.Name)
				return err
			})
		},
	}
}

func newShowCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var showSecrets bool

	command := &cobra.Command{
		Use:   "show",
		Short: "Show the context selected by --context, or the current one",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}
			shown, err := contexts.ResolveContext(command.Context(), configdomain.ContextSelection{Name: globalFlags.Context})
			if err != nil {
				return err
			}
			if !showSecrets {
				shown = redactContext(shown)
			}
			return common.WriteOutput(command, common.OutputYAML, shown, nil)
		},
	}
	command.Flags().BoolVar(&showSecrets, "show-secrets", false, "print passwords and tokens")
	return command
}

func newResolveCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var overrides []string

	command := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the selected context with environment and explicit overrides",
		Example: "  cement config resolve\n" +
			"  cement config resolve --set server.url=https://foreman.lab.example.com",
		Args: cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}
			assignments, err := common.ParseAssignments(overrides)
			if err != nil {
				return err
			}
			overridesMap := make(map[string]string, len(assignments))
			for _, assignment := range assignments {
				overridesMap[assignment.Key] = assignment.Value
			}

			resolved, err := contexts.ResolveContext(command.Context(), configdomain.ContextSelection{
				Name:      globalFlags.Context,
				Overrides: overridesMap,
			})
			if err != nil {
				return err
			}
			return common.WriteOutput(command, common.OutputYAML, redactContext(resolved), nil)
		},
	}
	command.Flags().StringArrayVar(&overrides, "set", nil, "override key=value, for example server.url=https://foreman.example.com (repeatable)")
	return command
}

func newValidateCommand(deps common.CommandDependencies) *cobra.Command {
	var file string

	command := &cobra.Command{
		Use:   "validate",
		Short: "Validate a context YAML document",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}
			cfg, err := decodeContext(command, file)
			if err != nil {
				return err
			}
			if err := contexts.Validate(command.Context(), cfg); err != nil {
				return err
			}
			_, err = fmt.Fprintf(command.OutOrStdout(), "context %q is valid\n", cfg.Name)
			return err
		},
	}
	command.Flags().StringVarP(&file, "file", "f", "", "context file path (use '-' for stdin)")
	_ = command.MarkFlagRequired("file")
	return command
}

func decodeContext(command *cobra.Command, path string) (configdomain.Context, error) {
	data, err := common.ReadFile(command, path)
	if err != nil {
		return configdomain.Context{}, err
	}
	var cfg configdomain.Context
	if err := yamlutil.DecodeStrict(data, &cfg); err != nil {
		return configdomain.Context{}, common.ValidationError("invalid context yaml", err)
	}
	cfg.Name = strings.TrimSpace(cfg.Name)
	return cfg, nil
}

// redactContext returns a copy with credentials replaced.
func redactContext(cfg configdomain.Context) configdomain.Context {
	if cfg.Server == nil || cfg.Server.Auth == nil {
		return cfg
	}
	server := *cfg.Server
	auth := *cfg.Server.Auth
	if auth.BasicAuth != nil && auth.BasicAuth.Password != "" {
		basic := *auth.BasicAuth
		basic.Password = redactedValue
		auth.BasicAuth = &basic
	}
	if auth.BearerToken != nil && auth.BearerToken.Token != "" {
		bearer := *auth.BearerToken
		bearer.Token = redactedValue
		auth.BearerToken = &bearer
	}
	server.Auth = &auth
	cfg.Server = &server
	return cfg
}
