package entity

const (
	KindOrganization         = "organization"
	KindLocation             = "location"
	KindComputeResource      = "compute-resource"
	KindContentView          = "content-view"
	KindContentViewVersion   = "content-view-version"
	KindLifecycleEnvironment = "lifecycle-environment"
	KindProduct              = "product"
	KindRepository           = "repository"
	KindRepositorySet        = "repository-set"
	KindTemplateKind         = "template-kind"
	KindCommonParameter      = "common-parameter"
	KindProvisioningTemplate = "provisioning-template"
	KindOperatingSystem      = "operating-system"
	KindSyncPlan             = "sync-plan"
	KindGPGKey               = "gpg-key"
)

const defaultResultsSelector = ".results[]"

func scalar(name string) Field {
	return Field{Name: name, Type: Scalar, Nullable: true}
}

func ref(name string, target string) Field {
	return Field{Name: name, Type: Reference, Target: target, Nullable: true}
}

func refs(name string, target string) Field {
	return Field{Name: name, Type: ReferenceList, Target: target, Nullable: true}
}

func writeOnly(field Field) Field {
	field.WriteOnly = true
	return field
}

func required(field Field) Field {
	field.Nullable = false
	return field
}

// DefaultRegistry returns the static schema table for the Foreman and
// Katello entity kinds managed by cement.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Schema{
			Kind:       KindOrganization,
			Title:      "organization",
			Endpoint:   "/katello/api/organizations",
			PayloadKey: "organization",
			Fields: []Field{
				required(scalar("name")),
				scalar("label"),
				scalar("title"),
				scalar("description"),
			},
		},
		Schema{
			Kind:       KindLocation,
			Title:      "location",
			Endpoint:   "/api/locations",
			PayloadKey: "location",
			Fields: []Field{
				required(scalar("name")),
				scalar("title"),
				scalar("description"),
				ref("parent", KindLocation),
			},
		},
		Schema{
			Kind:       KindComputeResource,
			Title:      "compute resource",
			Endpoint:   "/api/compute_resources",
			PayloadKey: "compute_resource",
			Fields: []Field{
				required(scalar("name")),
				scalar("description"),
				required(scalar("provider")),
				scalar("url"),
				scalar("user"),
				writeOnly(scalar("password")),
				scalar("datacenter"),
				scalar("set_console_password"),
				refs("locations", KindLocation),
				refs("organizations", KindOrganization),
			},
		},
		Schema{
			Kind:       KindContentView,
			Title:      "content view",
			Endpoint:   "/katello/api/content_views",
			PayloadKey: "content_view",
			Fields: []Field{
				required(scalar("name")),
				scalar("label"),
				scalar("description"),
				required(ref("organization", KindOrganization)),
				scalar("composite"),
				scalar("auto_publish"),
				scalar("solve_dependencies"),
				refs("repositories", KindRepository),
			},
		},
		Schema{
			Kind:       KindContentViewVersion,
			Title:      "content view version",
			Endpoint:   "/katello/api/content_view_versions",
			PayloadKey: "content_view_version",
			Fields: []Field{
				required(ref("content_view", KindContentView)),
				scalar("version"),
				scalar("description"),
				refs("environments", KindLifecycleEnvironment),
			},
		},
		Schema{
			Kind:       KindLifecycleEnvironment,
			Title:      "lifecycle environment",
			Endpoint:   "/katello/api/environments",
			PayloadKey: "environment",
			Fields: []Field{
				required(scalar("name")),
				scalar("label"),
				scalar("description"),
				required(ref("organization", KindOrganization)),
				ref("prior", KindLifecycleEnvironment),
			},
		},
		Schema{
			Kind:       KindProduct,
			Title:      "product",
			Endpoint:   "/katello/api/products",
			PayloadKey: "product",
			Fields: []Field{
				required(scalar("name")),
				scalar("label"),
				scalar("description"),
				required(ref("organization", KindOrganization)),
				ref("sync_plan", KindSyncPlan),
				ref("gpg_key", KindGPGKey),
			},
		},
		Schema{
			Kind:       KindRepository,
			Title:      "repository",
			Endpoint:   "/katello/api/repositories",
			PayloadKey: "repository",
			Fields: []Field{
				required(scalar("name")),
				scalar("label"),
				required(ref("product", KindProduct)),
				scalar("content_type"),
				scalar("url"),
				scalar("download_policy"),
				scalar("mirror_on_sync"),
				scalar("unprotected"),
				scalar("checksum_type"),
			},
		},
		Schema{
			Kind:     KindRepositorySet,
			Title:    "repository set",
			Endpoint: "/katello/api/repository_sets",
			Fields: []Field{
				scalar("name"),
				ref("product", KindProduct),
			},
		},
		Schema{
			Kind:     KindTemplateKind,
			Title:    "template kind",
			Endpoint: "/api/template_kinds",
			Fields: []Field{
				scalar("name"),
			},
		},
		Schema{
			Kind:       KindCommonParameter,
			Title:      "common parameter",
			Endpoint:   "/api/common_parameters",
			PayloadKey: "common_parameter",
			Fields: []Field{
				required(scalar("name")),
				scalar("value"),
				scalar("parameter_type"),
				scalar("hidden_value"),
			},
		},
		Schema{
			Kind:       KindProvisioningTemplate,
			Title:      "provisioning template",
			Endpoint:   "/api/provisioning_templates",
			PayloadKey: "provisioning_template",
			Fields: []Field{
				required(scalar("name")),
				scalar("template"),
				scalar("snippet"),
				scalar("locked"),
				scalar("description"),
				writeOnly(scalar("audit_comment")),
				ref("template_kind", KindTemplateKind),
				refs("operatingsystems", KindOperatingSystem),
				refs("locations", KindLocation),
				refs("organizations", KindOrganization),
			},
		},
		Schema{
			Kind:     KindOperatingSystem,
			Title:    "operating system",
			Endpoint: "/api/operatingsystems",
			Fields: []Field{
				scalar("name"),
				scalar("title"),
				scalar("major"),
				scalar("minor"),
			},
		},
	)
}

// ResultsSelectorOrDefault returns the schema's jq selector for search pages.
func (s Schema) ResultsSelectorOrDefault() string {
	if s.ResultsSelector != "" {
		return s.ResultsSelector
	}
	return defaultResultsSelector
}
