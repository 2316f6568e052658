package telemetry

import (
	"context"
	"testing"
)

func TestEnabled(t *testing.T) {
	t.Parallel()

	env := func(values map[string]string) func(string) (string, bool) {
		return func(key string) (string, bool) {
			value, ok := values[key]
			return value, ok
		}
	}

	if Enabled(nil) {
		t.Fatal("expected nil lookup to disable tracing")
	}
	if Enabled(env(map[string]string{EndpointEnvVar: "  "})) {
		t.Fatal("expected blank endpoint to disable tracing")
	}
	if !Enabled(env(map[string]string{TracesEndpointEnvVar: "http://collector:4317"})) {
		t.Fatal("expected traces endpoint to enable tracing")
	}
}

func TestSetupTracingWithoutEndpointIsNoop(t *testing.T) {
	t.Parallel()

	shutdown, err := SetupTracing(context.Background(), "dev", func(string) (string, bool) { return "", false })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
}
