package organization

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crmarques/cement/internal/cli/common"
)

func NewCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "organization",
		Short: "Inspect Katello organizations",
		Args:  cobra.NoArgs,
	}
	command.AddCommand(newManifestCommand(deps, globalFlags))
	return command
}

func newManifestCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "manifest <name>",
		Short: "Show the subscription manifest of an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			session, err := common.OpenSession(command, deps, globalFlags, false)
			if err != nil {
				return err
			}
			organization, err := session.Resolver.FindOrganization(command.Context(), args[0], true)
			if err != nil {
				return err
			}
			manifest, err := session.Resolver.SubscriptionManifest(command.Context(), organization.Ref())
			if err != nil {
				return err
			}
			if len(manifest) == 0 {
				_, err := fmt.Fprintf(command.ErrOrStderr(), "organization %q has no subscription manifest\n", organization.Name())
				return err
			}
			return common.WriteOutput[map[string]any](command, globalFlags.Output, manifest, nil)
		},
	}
}

