package entity

import (
	"github.com/spf13/cobra"

	"github.com/crmarques/cement/internal/cli/common"
)

func newEnsureCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var lookup criteriaFlags
	var state stateFlags
	var ensure common.EnsureFlags

	command := &cobra.Command{
		Use:   "ensure <kind>",
		Short: "Converge one entity to a desired state",
		Example: "  cement entity ensure location --set name=dc1 --state present\n" +
			"  cement entity ensure content-view --organization ACME --set name=Base --refs repositories=BaseOS,AppStream --state latest\n" +
			"  cement entity ensure compute-resource -f vmware.yaml --state latest --check",
		Args: cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			session, err := common.OpenSession(command, deps, globalFlags, ensure.Replace)
			if err != nil {
				return err
			}
			spec, err := desiredSpec(command, args[0], lookup, state, session)
			if err != nil {
				return err
			}
			target, err := common.ResolveTarget(command.Context(), session, spec)
			if err != nil {
				return err
			}

			outcome, err := common.Converge(command.Context(), session, target, ensure)
			if err != nil {
				return err
			}
			return common.WriteOutcome(command, globalFlags.Output, outcome)
		},
	}

	bindCriteriaFlags(command, &lookup)
	bindStateFlags(command, &state)
	common.BindEnsureFlags(command, &ensure)
	return command
}
