package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/faults"
	"github.com/crmarques/cement/internal/cli/commandmeta"
	"github.com/crmarques/cement/internal/cli/testkit"
	configfile "github.com/crmarques/cement/internal/providers/config/file"
	"github.com/crmarques/cement/internal/providers/server/memory"
	"github.com/crmarques/cement/reconciler"
	"github.com/crmarques/cement/resolver"
)

func memoryDeps(srv *memory.Server, organization string) Dependencies {
	return Dependencies{
		Connect: func(_ context.Context, opts ConnectOptions) (Session, error) {
			registry := entity.DefaultRegistry()
			return Session{
				Name:         "lab",
				Schemas:      registry,
				Server:       srv,
				Resolver:     resolver.New(srv, registry),
				Engine:       reconciler.NewEngine(srv, registry, reconciler.WithFieldReplace(opts.FieldReplace)),
				Differ:       reconciler.NewDiffer(srv, registry),
				Organization: organization,
			}, nil
		},
	}
}

func decodeJSON(t *testing.T, output string) map[string]any {
	t.Helper()
	var decoded map[string]any
	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}
	return decoded
}

func TestRequiredCommandPathsRegistered(t *testing.T) {
	t.Parallel()

	requiredPaths := []string{
		"config",
		"config add",
		"config delete",
		"config list",
		"config use",
		"config current",
		"config show",
		"config resolve",
		"config validate",
		"entity",
		"entity kinds",
		"entity find",
		"entity get",
		"entity diff",
		"entity ensure",
		"organization",
		"organization manifest",
		"ping",
		"template",
		"template parse",
		"template apply",
		"completion",
		"completion bash",
		"version",
	}

	registered := map[string]bool{}
	for _, path := range testkit.RegisteredPaths(NewRootCommand(Dependencies{}), nil) {
		registered[testkit.JoinPath(path)] = true
	}
	for _, path := range requiredPaths {
		if !registered[path] {
			t.Fatalf("expected command path %q to be registered", path)
		}
	}
}

func TestServerCommandsRequireConnection(t *testing.T) {
	t.Parallel()

	for _, path := range testkit.RegisteredPaths(NewRootCommand(Dependencies{}), []string{"cement"}) {
		joined := testkit.JoinPath(path)
		wantsServer := strings.HasPrefix(joined, "cement entity ") && joined != "cement entity kinds" ||
			strings.HasPrefix(joined, "cement organization ") ||
			joined == "cement ping" ||
			joined == "cement template apply"
		if got := commandmeta.RequiresContextBootstrapPath(joined); got != wantsServer {
			t.Fatalf("RequiresContextBootstrapPath(%q) = %t, want %t", joined, got, wantsServer)
		}
	}

	_, err := testkit.ExecuteCommandForTest(NewRootCommand(Dependencies{}), "", "ping")
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected ValidationError without a connector, got %v", err)
	}
}

func TestEntityKindsNeedsNoServer(t *testing.T) {
	t.Parallel()

	output, err := testkit.ExecuteCommandForTest(NewRootCommand(Dependencies{}), "", "entity", "kinds")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "provisioning-template") || !strings.Contains(output, "template-kind") {
		t.Fatalf("unexpected kinds output %q", output)
	}
	if !strings.Contains(output, "(read-only)") {
		t.Fatalf("expected read-only kinds to be marked, got %q", output)
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	output, err := testkit.ExecuteCommandForTest(NewRootCommand(memoryDeps(memory.New(), "")), "", "ping")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output != "lab: Foreman 3.9.0 (ok)\n" {
		t.Fatalf("unexpected ping output %q", output)
	}
}

func TestEnsureCreatesMissingEntity(t *testing.T) {
	t.Parallel()

	srv := memory.New()
	output, err := testkit.ExecuteCommandForTest(
		NewRootCommand(memoryDeps(srv, "")),
		"",
		"entity", "ensure", "location", "--set", "name=dc1", "--set", "description=Main site", "-o", "json",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outcome := decodeJSON(t, output)
	if outcome["changed"] != true || outcome["action"] != "create" || outcome["dryRun"] != false {
		t.Fatalf("unexpected outcome %#v", outcome)
	}
	stored, ok := srv.Get(entity.KindLocation, 1)
	if !ok || stored.Fields["name"] != "dc1" || stored.Fields["description"] != "Main site" {
		t.Fatalf("unexpected stored location %#v", stored)
	}
}

func TestEnsureLatestUpdatesOnlyChangedFields(t *testing.T) {
	t.Parallel()

	srv := memory.New()
	srv.Seed(entity.Entity{Kind: entity.KindLocation, Fields: entity.Fields{"name": "dc1", "description": "Old"}})

	output, err := testkit.ExecuteCommandForTest(
		NewRootCommand(memoryDeps(srv, "")),
		"",
		"entity", "ensure", "location", "--where", "name=dc1", "--set", "description=New", "--state", "latest",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(output, "changed=true action=update") || !strings.Contains(output, `description: "Old" -> "New"`) {
		t.Fatalf("unexpected output %q", output)
	}

	updates := srv.UpdatedFields()
	if len(updates) != 1 || len(updates[0]) != 1 || updates[0][0] != "description" {
		t.Fatalf("expected a single description update, got %#v", updates)
	}
}

func TestEnsurePresentLeavesExistingEntity(t *testing.T) {
	t.Parallel()

	srv := memory.New()
	srv.Seed(entity.Entity{Kind: entity.KindLocation, Fields: entity.Fields{"name": "dc1", "description": "Old"}})

	output, err := testkit.ExecuteCommandForTest(
		NewRootCommand(memoryDeps(srv, "")),
		"",
		"entity", "ensure", "location", "--set", "name=dc1", "--set", "description=New",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(output, "changed=false action=none") {
		t.Fatalf("unexpected output %q", output)
	}
	if calls := srv.Calls(); calls.Mutations() != 0 || calls.Read != 0 {
		t.Fatalf("expected no read or mutation, got %#v", calls)
	}
}

func TestEnsureCheckDoesNotMutate(t *testing.T) {
	t.Parallel()

	srv := memory.New()
	output, err := testkit.ExecuteCommandForTest(
		NewRootCommand(memoryDeps(srv, "")),
		"",
		"entity", "ensure", "location", "--set", "name=dc1", "--check", "-o", "json",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outcome := decodeJSON(t, output)
	if outcome["changed"] != true || outcome["action"] != "create" || outcome["dryRun"] != true {
		t.Fatalf("unexpected outcome %#v", outcome)
	}
	if calls := srv.Calls(); calls.Mutations() != 0 {
		t.Fatalf("expected no mutation in check mode, got %#v", calls)
	}
}

func TestEnsureAbsentDeletes(t *testing.T) {
	t.Parallel()

	srv := memory.New()
	seeded := srv.Seed(entity.Entity{Kind: entity.KindLocation, Fields: entity.Fields{"name": "dc1"}})

	if _, err := testkit.ExecuteCommandForTest(
		NewRootCommand(memoryDeps(srv, "")),
		"",
		"entity", "ensure", "location", "--set", "name=dc1", "--state", "absent",
	); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := srv.Get(entity.KindLocation, seeded.ID); ok {
		t.Fatal("expected location to be deleted")
	}
}

func TestEnsureResolvesScopedReferences(t *testing.T) {
	t.Parallel()

	srv := memory.New()
	organization := srv.Seed(entity.Entity{Kind: entity.KindOrganization, Fields: entity.Fields{"name": "ACME"}})
	repository := srv.Seed(entity.Entity{Kind: entity.KindRepository, Fields: entity.Fields{"name": "BaseOS"}})

	_, err := testkit.ExecuteCommandForTest(
		NewRootCommand(memoryDeps(srv, "ACME")),
		"",
		"entity", "ensure", "content-view", "--set", "name=Base", "--refs", "repositories=BaseOS",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, ok := srv.Get(entity.KindContentView, repository.ID+1)
	if !ok {
		t.Fatal("expected content view to be created")
	}
	if ref, _ := stored.Fields["organization"].(entity.Ref); ref.ID != organization.ID {
		t.Fatalf("expected organization %d, got %#v", organization.ID, stored.Fields["organization"])
	}
	refs, _ := stored.Fields["repositories"].([]entity.Ref)
	if len(refs) != 1 || refs[0].ID != repository.ID {
		t.Fatalf("unexpected repositories %#v", stored.Fields["repositories"])
	}
}

func TestEnsureRejectsUnknownFieldAndState(t *testing.T) {
	t.Parallel()

	root := NewRootCommand(memoryDeps(memory.New(), ""))
	_, err := testkit.ExecuteCommandForTest(root, "", "entity", "ensure", "location", "--set", "colour=blue")
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	root = NewRootCommand(memoryDeps(memory.New(), ""))
	_, err = testkit.ExecuteCommandForTest(root, "", "entity", "ensure", "location", "--set", "name=dc1", "--state", "gone")
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestEnsureReadsDesiredFile(t *testing.T) {
	t.Parallel()

	srv := memory.New()
	_, err := testkit.ExecuteCommandForTest(
		NewRootCommand(memoryDeps(srv, "")),
		"name: vmware\nprovider: Vmware\npassword: secret\n",
		"entity", "ensure", "compute-resource", "-f", "-",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, ok := srv.Get(entity.KindComputeResource, 1)
	if !ok || stored.Fields["provider"] != "Vmware" || stored.Fields["password"] != "secret" {
		t.Fatalf("unexpected stored compute resource %#v", stored)
	}
}

func TestFindOneReportsAmbiguity(t *testing.T) {
	t.Parallel()

	srv := memory.New()
	srv.Seed(entity.Entity{Kind: entity.KindLocation, Fields: entity.Fields{"name": "dc1"}})
	srv.Seed(entity.Entity{Kind: entity.KindLocation, Fields: entity.Fields{"name": "dc1"}})

	output, err := testkit.ExecuteCommandForTest(NewRootCommand(memoryDeps(srv, "")), "", "entity", "find", "location", "--where", "name=dc1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output != "1\tdc1\n2\tdc1\n" {
		t.Fatalf("unexpected find output %q", output)
	}

	_, err = testkit.ExecuteCommandForTest(NewRootCommand(memoryDeps(srv, "")), "", "entity", "find", "location", "--where", "name=dc1", "--one")
	if got := ExitCodeForError(err); got != 7 {
		t.Fatalf("expected ambiguous exit code 7, got %d (%v)", got, err)
	}
}

func TestGetAndDiff(t *testing.T) {
	t.Parallel()

	srv := memory.New()
	seeded := srv.Seed(entity.Entity{Kind: entity.KindLocation, Fields: entity.Fields{"name": "dc1", "description": "old"}})

	output, err := testkit.ExecuteCommandForTest(NewRootCommand(memoryDeps(srv, "")), "", "entity", "get", "location", "1", "-o", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded := decodeJSON(t, output); decoded["id"] != float64(seeded.ID) || decoded["kind"] != entity.KindLocation {
		t.Fatalf("unexpected get output %#v", decoded)
	}

	output, err = testkit.ExecuteCommandForTest(
		NewRootCommand(memoryDeps(srv, "")),
		"",
		"entity", "diff", "location", "--set", "name=dc1", "--set", "description=new",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output != "description: \"old\" -> \"new\"\n" {
		t.Fatalf("unexpected diff output %q", output)
	}
	if calls := srv.Calls(); calls.Mutations() != 0 {
		t.Fatalf("diff must not mutate, got %#v", calls)
	}

	_, err = testkit.ExecuteCommandForTest(NewRootCommand(memoryDeps(srv, "")), "", "entity", "diff", "location", "--set", "name=dc9")
	if !faults.IsCategory(err, faults.NotFoundError) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestOrganizationManifest(t *testing.T) {
	t.Parallel()

	srv := memory.New()
	organization := srv.Seed(entity.Entity{Kind: entity.KindOrganization, Fields: entity.Fields{"name": "ACME"}})
	srv.SetRaw(entity.KindOrganization, organization.ID, map[string]any{
		"owner_details": map[string]any{
			"upstreamConsumer": map[string]any{"name": "satellite", "uuid": "c0ffee"},
		},
	})

	output, err := testkit.ExecuteCommandForTest(NewRootCommand(memoryDeps(srv, "")), "", "organization", "manifest", "ACME", "-o", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded := decodeJSON(t, output); decoded["uuid"] != "c0ffee" {
		t.Fatalf("unexpected manifest %#v", decoded)
	}
}

func TestTemplateParseAndApply(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "kickstart.erb")
	body := "<%#\nkind: provision\nname: Kickstart\noses:\n- CentOS 7\nlocations: [dc1]\n%>\ninstall\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write template: %v", err)
	}

	srv := memory.New()
	kind := srv.Seed(entity.Entity{Kind: entity.KindTemplateKind, Fields: entity.Fields{"name": "provision"}})
	system := srv.Seed(entity.Entity{Kind: entity.KindOperatingSystem, Fields: entity.Fields{"name": "CentOS", "title": "CentOS 7"}})
	location := srv.Seed(entity.Entity{Kind: entity.KindLocation, Fields: entity.Fields{"name": "dc1"}})

	output, err := testkit.ExecuteCommandForTest(NewRootCommand(memoryDeps(srv, "")), "", "template", "parse", path, "-o", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	metadata := decodeJSON(t, output)
	if metadata["name"] != "Kickstart" || metadata["template"] != nil {
		t.Fatalf("unexpected metadata %#v", metadata)
	}

	if _, err := testkit.ExecuteCommandForTest(NewRootCommand(memoryDeps(srv, "")), "", "template", "apply", path, "--state", "latest"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, ok := srv.Get(entity.KindProvisioningTemplate, location.ID+1)
	if !ok {
		t.Fatal("expected provisioning template to be created")
	}
	if stored.Fields["template"] != body {
		t.Fatalf("unexpected template body %#v", stored.Fields["template"])
	}
	if ref, _ := stored.Fields["template_kind"].(entity.Ref); ref.ID != kind.ID {
		t.Fatalf("unexpected template kind %#v", stored.Fields["template_kind"])
	}
	systems, _ := stored.Fields["operatingsystems"].([]entity.Ref)
	if len(systems) != 1 || systems[0].ID != system.ID {
		t.Fatalf("unexpected operating systems %#v", stored.Fields["operatingsystems"])
	}

	output, err = testkit.ExecuteCommandForTest(NewRootCommand(memoryDeps(srv, "")), "", "template", "apply", path, "--state", "latest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(output, "changed=false") {
		t.Fatalf("expected second apply to be a no-op, got %q", output)
	}
}

func TestTemplateApplyRejectsMalformedHeader(t *testing.T) {
	t.Parallel()

	_, err := testkit.ExecuteCommandForTest(NewRootCommand(memoryDeps(memory.New(), "")), "<%#\nname: [oops\n%>\n", "template", "apply", "-")
	if got := ExitCodeForError(err); got != 9 {
		t.Fatalf("expected template parse exit code 9, got %d (%v)", got, err)
	}
}

func TestConfigCommands(t *testing.T) {
	t.Parallel()

	noEnv := func(string) (string, bool) { return "", false }
	contexts := configfile.NewFileContextService(filepath.Join(t.TempDir(), "contexts.yaml"), configfile.WithEnvLookup(noEnv))
	deps := Dependencies{Contexts: contexts}

	contextYAML := "name: lab\nserver:\n  url: https://foreman.example.com\n  auth:\n    basic-auth:\n      username: admin\n      password: changeme\n"
	if _, err := testkit.ExecuteCommandForTest(NewRootCommand(deps), contextYAML, "config", "add", "-f", "-", "--set-current"); err != nil {
		t.Fatalf("add: %v", err)
	}

	output, err := testkit.ExecuteCommandForTest(NewRootCommand(deps), "", "config", "current")
	if err != nil || output != "lab\n" {
		t.Fatalf("unexpected current %q %v", output, err)
	}

	output, err = testkit.ExecuteCommandForTest(NewRootCommand(deps), "", "config", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if strings.Contains(output, "changeme") || !strings.Contains(output, "<redacted>") {
		t.Fatalf("expected password to be redacted, got %q", output)
	}

	output, err = testkit.ExecuteCommandForTest(NewRootCommand(deps), "", "config", "resolve", "--set", "server.url=https://other.example.com")
	if err != nil || !strings.Contains(output, "https://other.example.com") {
		t.Fatalf("unexpected resolve %q %v", output, err)
	}

	_, err = testkit.ExecuteCommandForTest(NewRootCommand(deps), "name: bad\ncolour: blue\n", "config", "validate", "-f", "-")
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	if _, err := testkit.ExecuteCommandForTest(NewRootCommand(deps), "", "config", "delete", "lab"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	output, err = testkit.ExecuteCommandForTest(NewRootCommand(deps), "", "config", "list")
	if err != nil || output != "" {
		t.Fatalf("expected no contexts, got %q %v", output, err)
	}
}

func TestInvalidGlobalFlags(t *testing.T) {
	t.Parallel()

	_, err := testkit.ExecuteCommandForTest(NewRootCommand(Dependencies{}), "", "version", "-o", "xml")
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	_, err = testkit.ExecuteCommandForTest(NewRootCommand(Dependencies{}), "", "version", "--log-format", "logfmt")
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
