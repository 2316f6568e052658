package entity

import (
	"github.com/spf13/cobra"

	"github.com/crmarques/cement/internal/cli/common"
)

func NewCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "entity",
		Short: "Find, inspect and converge Foreman entities",
		Args:  cobra.NoArgs,
	}

	command.AddCommand(
		newKindsCommand(globalFlags),
		newFindCommand(deps, globalFlags),
		newGetCommand(deps, globalFlags),
		newDiffCommand(deps, globalFlags),
		newEnsureCommand(deps, globalFlags),
	)
	return command
}

// criteriaFlags bind the lookup flags shared by find, diff and ensure.
type criteriaFlags struct {
	where        []string
	scope        []string
	organization string
}

func bindCriteriaFlags(command *cobra.Command, flags *criteriaFlags) {
	command.Flags().StringArrayVar(&flags.where, "where", nil, "equality criterion field=value (repeatable)")
	command.Flags().StringArrayVar(&flags.scope, "scope", nil, "parent scope parameter key=id, for example product_id=3 (repeatable)")
	command.Flags().StringVar(&flags.organization, "organization", "", "organization name scoping the lookup (defaults to the context organization)")
}

// stateFlags bind the desired-state flags shared by diff and ensure.
type stateFlags struct {
	file string
	set  []string
	ref  []string
	refs []string
}

func bindStateFlags(command *cobra.Command, flags *stateFlags) {
	command.Flags().StringVarP(&flags.file, "file", "f", "", "desired fields as a YAML or JSON mapping (use '-' for stdin)")
	command.Flags().StringArrayVar(&flags.set, "set", nil, "desired scalar field=value (repeatable)")
	command.Flags().StringArrayVar(&flags.ref, "ref", nil, "desired reference field=name; an empty name clears it (repeatable)")
	command.Flags().StringArrayVar(&flags.refs, "refs", nil, "desired reference list field=name1,name2 (repeatable)")
}

func organizationName(flags criteriaFlags, session common.Session) string {
	if flags.organization != "" {
		return flags.organization
	}
	return session.Organization
}

func desiredSpec(command *cobra.Command, kind string, lookup criteriaFlags, state stateFlags, session common.Session) (common.DesiredSpec, error) {
	fields, err := common.ReadDesiredFields(command, state.file)
	if err != nil {
		return common.DesiredSpec{}, err
	}
	where, err := common.ParseAssignments(lookup.where)
	if err != nil {
		return common.DesiredSpec{}, err
	}
	sets, err := common.ParseAssignments(state.set)
	if err != nil {
		return common.DesiredSpec{}, err
	}
	refs, err := common.ParseAssignments(state.ref)
	if err != nil {
		return common.DesiredSpec{}, err
	}
	refLists, err := common.ParseAssignments(state.refs)
	if err != nil {
		return common.DesiredSpec{}, err
	}

	return common.DesiredSpec{
		Kind:         kind,
		Fields:       fields,
		Sets:         append(where, sets...),
		Refs:         refs,
		RefLists:     refLists,
		Organization: organizationName(lookup, session),
	}, nil
}
