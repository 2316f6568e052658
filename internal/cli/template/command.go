package template

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/internal/cli/common"
	"github.com/crmarques/cement/resolver"
	"github.com/crmarques/cement/template"
)

func NewCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "template",
		Short: "Parse and apply provisioning templates",
		Args:  cobra.NoArgs,
	}
	command.AddCommand(
		newParseCommand(globalFlags),
		newApplyCommand(deps, globalFlags),
	)
	return command
}

func newParseCommand(globalFlags *common.GlobalFlags) *cobra.Command {
	var withBody bool

	command := &cobra.Command{
		Use:   "parse <file>",
		Short: "Print the metadata header of a template file",
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			metadata, err := readMetadata(command, args[0])
			if err != nil {
				return err
			}
			if !withBody {
				delete(metadata, template.TemplateKey)
			}
			return common.WriteOutput[map[string]any](command, globalFlags.Output, metadata, nil)
		},
	}
	command.Flags().BoolVar(&withBody, "with-body", false, "include the full template text")
	return command
}

func newApplyCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var ensure common.EnsureFlags
	var organization string

	command := &cobra.Command{
		Use:   "apply <file>",
		Short: "Converge a provisioning template from its file",
		Example: "  cement template apply kickstart.erb --state latest\n" +
			"  cement template apply kickstart.erb --state latest --check",
		Args: cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			metadata, err := readMetadata(command, args[0])
			if err != nil {
				return err
			}
			provisioning, err := template.Desired(metadata)
			if err != nil {
				return err
			}

			session, err := common.OpenSession(command, deps, globalFlags, ensure.Replace)
			if err != nil {
				return err
			}
			target, err := resolveProvisioning(command, session, provisioning, organization)
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

	common.BindEnsureFlags(command, &ensure)
	command.Flags().StringVar(&organization, "organization", "", "organization scoping Katello lookups (defaults to the context organization)")
	return command
}

func readMetadata(command *cobra.Command, path string) (map[string]any, error) {
	if strings.TrimSpace(path) != "-" {
		return template.ParseFile(path)
	}
	data, err := common.ReadFile(command, path)
	if err != nil {
		return nil, err
	}
	return template.Parse(string(data))
}

// resolveProvisioning turns parsed metadata into a provisioning template
// target. Operating systems are matched by title, the form Foreman shows
// them in.
func resolveProvisioning(command *cobra.Command, session common.Session, provisioning template.Provisioning, organization string) (common.Target, error) {
	if organization == "" {
		organization = session.Organization
	}

	spec := common.DesiredSpec{
		Kind:         entity.KindProvisioningTemplate,
		Fields:       provisioning.Fields,
		Organization: organization,
	}
	if provisioning.Kind != "" {
		spec.Refs = append(spec.Refs, common.Assignment{Key: "template_kind", Value: provisioning.Kind})
	}
	if provisioning.Locations != nil {
		spec.RefLists = append(spec.RefLists, common.Assignment{Key: "locations", Value: strings.Join(provisioning.Locations, ",")})
	}
	if provisioning.Organizations != nil {
		spec.RefLists = append(spec.RefLists, common.Assignment{Key: "organizations", Value: strings.Join(provisioning.Organizations, ",")})
	}

	target, err := common.ResolveTarget(command.Context(), session, spec)
	if err != nil {
		return common.Target{}, err
	}

	if provisioning.OSes != nil {
		systems := make([]entity.Ref, 0, len(provisioning.OSes))
		for _, title := range provisioning.OSes {
			found, err := session.Resolver.FindOne(command.Context(), entity.KindOperatingSystem, resolver.Where("title", title), nil, true)
			if err != nil {
				return common.Target{}, err
			}
			systems = append(systems, found.Ref())
		}
		target.Desired["operatingsystems"] = systems
	}
	return target, nil
}
