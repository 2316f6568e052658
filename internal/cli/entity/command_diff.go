package entity

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/crmarques/cement/faults"
	"github.com/crmarques/cement/internal/cli/common"
	"github.com/crmarques/cement/reconciler"
)

type diffView struct {
	Changed bool                `json:"changed" yaml:"changed"`
	ID      int64               `json:"id" yaml:"id"`
	Fields  []string            `json:"fields,omitempty" yaml:"fields,omitempty"`
	Changes []reconciler.Change `json:"changes,omitempty" yaml:"changes,omitempty"`
}

func newDiffCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var lookup criteriaFlags
	var state stateFlags
	var replace bool

	command := &cobra.Command{
		Use:   "diff <kind>",
		Short: "Show the fields an update would change",
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			session, err := common.OpenSession(command, deps, globalFlags, replace)
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
			current, err := common.FindCurrent(command.Context(), session, target)
			if err != nil {
				return err
			}
			if current == nil {
				return &faults.TypedError{
					Category: faults.NotFoundError,
					Kind:     target.Schema.Kind,
					Message:  fmt.Sprintf("%s does not exist", target.Schema.DisplayName()),
				}
			}

			differ := session.Differ.Diff
			if replace {
				differ = session.Differ.DiffReplace
			}
			diff, err := differ(command.Context(), *current, target.Desired)
			if err != nil {
				return err
			}

			view := diffView{Changed: diff.Changed(), ID: current.ID, Fields: diff.Fields, Changes: diff.Changes}
			return common.WriteOutput(command, globalFlags.Output, view, func(w io.Writer, value diffView) error {
				if !value.Changed {
					_, err := fmt.Fprintln(w, "no changes")
					return err
				}
				for _, change := range value.Changes {
					if _, err := fmt.Fprintf(w, "%s: %s -> %s\n", change.Field, common.FormatValue(change.From), common.FormatValue(change.To)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	bindCriteriaFlags(command, &lookup)
	bindStateFlags(command, &state)
	command.Flags().BoolVar(&replace, "replace", false, "clear declared fields the desired state leaves out")
	return command
}
