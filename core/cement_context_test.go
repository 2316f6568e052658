package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/crmarques/cement/config"
	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/faults"
	"github.com/crmarques/cement/internal/metrics"
	"github.com/crmarques/cement/internal/providers/server/memory"
	"github.com/crmarques/cement/reconciler"
)

func writeContextCatalog(t *testing.T, serverURL string, password string) string {
	t.Helper()

	content := strings.Join([]string{
		"current-ctx: lab",
		"contexts:",
		"  - name: lab",
		"    server:",
		"      url: " + serverURL,
		"      page-size: 25",
		"      auth:",
		"        basic-auth:",
		"          username: admin",
		"          password: " + password,
		"",
	}, "\n")
	path := filepath.Join(t.TempDir(), "contexts.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestNewCementContextBuildsGateway(t *testing.T) {
	t.Parallel()

	var authorized atomic.Bool
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, password, ok := r.BasicAuth(); ok && password == "prompted" {
			authorized.Store(true)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"result": "ok", "version": "3.9.0"})
	}))
	t.Cleanup(remote.Close)

	recorder := metrics.New()
	cementContext, err := NewCementContext(context.Background(), BootstrapConfig{
		ContextCatalogPath: writeContextCatalog(t, remote.URL, `""`),
		UserAgent:          "cement/test",
		Metrics:            recorder,
		PasswordPrompt: func(resolved config.Context) (string, error) {
			if resolved.Name != "lab" {
				t.Errorf("unexpected context %q", resolved.Name)
			}
			return "prompted", nil
		},
	}, config.ContextSelection{})
	if err != nil {
		t.Fatalf("NewCementContext returned error: %v", err)
	}
	if cementContext.Name != "lab" || cementContext.Contexts == nil || cementContext.Engine == nil || cementContext.Resolver == nil {
		t.Fatalf("unexpected context %#v", cementContext)
	}

	status, err := cementContext.Server.Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
	if status.Version != "3.9.0" || !authorized.Load() {
		t.Fatalf("expected prompted password to be used, got %#v", status)
	}

	families, err := recorder.Gatherer().Gather()
	if err != nil || len(families) == 0 {
		t.Fatalf("expected request metrics, got %v %v", families, err)
	}
}

func TestNewCementContextPropagatesPromptFailure(t *testing.T) {
	t.Parallel()

	_, err := NewCementContext(context.Background(), BootstrapConfig{
		ContextCatalogPath: writeContextCatalog(t, "https://foreman.example.com", `""`),
		PasswordPrompt: func(config.Context) (string, error) {
			return "", errors.New("no terminal")
		},
	}, config.ContextSelection{})
	if !faults.IsCategory(err, faults.AuthError) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestNewCementContextUnknownContext(t *testing.T) {
	t.Parallel()

	_, err := NewCementContext(context.Background(), BootstrapConfig{
		ContextCatalogPath: writeContextCatalog(t, "https://foreman.example.com", "changeme"),
	}, config.ContextSelection{Name: "prod"})
	if !faults.IsCategory(err, faults.NotFoundError) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestAssembleWiresObserver(t *testing.T) {
	t.Parallel()

	recorder := metrics.New()
	srv := memory.New()
	cementContext := Assemble(srv, entity.DefaultRegistry(), config.Server{}, BootstrapConfig{Metrics: recorder})

	outcome, err := cementContext.Engine.Reconcile(
		context.Background(),
		entity.KindOrganization,
		entity.Fields{"name": "ACME"},
		nil,
		reconciler.IntentPresent,
		false,
	)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if outcome.Action != reconciler.ActionCreate {
		t.Fatalf("expected create, got %#v", outcome)
	}

	families, err := recorder.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, family := range families {
		if family.GetName() == "cement_reconcile_total" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected reconcile metric to be recorded")
	}
}
