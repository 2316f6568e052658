package entity

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/internal/cli/common"
	"github.com/crmarques/cement/resolver"
)

func newFindCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var lookup criteriaFlags
	var one bool

	command := &cobra.Command{
		Use:   "find <kind>",
		Short: "Find entities matching equality criteria",
		Example: "  cement entity find location --where name=dc1\n" +
			"  cement entity find content-view --organization ACME --where name=Base --one",
		Args: cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			session, err := common.OpenSession(command, deps, globalFlags, false)
			if err != nil {
				return err
			}

			criteria, scope, err := lookupCriteria(command, session, args[0], lookup)
			if err != nil {
				return err
			}

			if one {
				found, err := session.Resolver.FindOne(command.Context(), args[0], criteria, scope, true)
				if err != nil {
					return err
				}
				return common.WriteOutput(command, globalFlags.Output, found, func(w io.Writer, item *entity.Entity) error {
					return renderEntities(w, []entity.Entity{*item})
				})
			}

			found, err := session.Resolver.FindByCriteria(command.Context(), args[0], criteria, scope)
			if err != nil {
				return err
			}
			return common.WriteOutput(command, globalFlags.Output, found, renderEntities)
		},
	}

	bindCriteriaFlags(command, &lookup)
	command.Flags().BoolVar(&one, "one", false, "require exactly one match")
	return command
}

// lookupCriteria turns --where, --scope and --organization into resolver
// criteria for kind.
func lookupCriteria(command *cobra.Command, session common.Session, kind string, lookup criteriaFlags) (resolver.Criteria, resolver.Scope, error) {
	where, err := common.ParseAssignments(lookup.where)
	if err != nil {
		return nil, nil, err
	}
	scopeParams, err := common.ParseAssignments(lookup.scope)
	if err != nil {
		return nil, nil, err
	}

	target, err := common.ResolveTarget(command.Context(), session, common.DesiredSpec{
		Kind:         kind,
		Organization: organizationName(lookup, session),
	})
	if err != nil {
		return nil, nil, err
	}

	var criteria resolver.Criteria
	for _, assignment := range where {
		criteria = criteria.And(assignment.Key, assignment.TypedValue())
	}

	scope := target.Scope
	for _, param := range scopeParams {
		id, err := strconv.ParseInt(param.Value, 10, 64)
		if err != nil {
			return nil, nil, common.ValidationError(fmt.Sprintf("scope %s must be a numeric id", param.Key), err)
		}
		scope = scope.And(param.Key, entity.Ref{ID: id})
	}
	return criteria, scope, nil
}

func renderEntities(w io.Writer, items []entity.Entity) error {
	for _, item := range items {
		if _, err := fmt.Fprintf(w, "%d\t%s\n", item.ID, item.Name()); err != nil {
			return err
		}
	}
	return nil
}
