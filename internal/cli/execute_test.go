package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/crmarques/cement/faults"
)

type recordingMetrics struct {
	paths []string
	err   error
}

func (r *recordingMetrics) WriteTextfile(path string) error {
	r.paths = append(r.paths, path)
	return r.err
}

func TestShouldSuppressStatusMessage(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		args []string
		want bool
	}{
		{name: "default false", args: []string{"entity", "ensure", "location"}, want: false},
		{name: "long flag", args: []string{"--no-status", "entity", "ensure", "location"}, want: true},
		{name: "short flag", args: []string{"-n", "entity", "ensure", "location"}, want: true},
		{name: "flag after positionals", args: []string{"entity", "ensure", "location", "--no-status"}, want: true},
		{name: "explicit true", args: []string{"--no-status=true", "template", "apply", "a.erb"}, want: true},
		{name: "explicit false", args: []string{"--no-status=false", "template", "apply", "a.erb"}, want: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got := shouldSuppressStatusMessage(testCase.args)
			if got != testCase.want {
				t.Fatalf("shouldSuppressStatusMessage(%v) = %t, want %t", testCase.args, got, testCase.want)
			}
		})
	}
}

func TestExecutionStatusWriters(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()

		buffer := &bytes.Buffer{}
		writeExecutionOKStatus(buffer)
		if got, want := buffer.String(), "[OK] command executed successfully.\n"; got != want {
			t.Fatalf("writeExecutionOKStatus() = %q, want %q", got, want)
		}
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()

		buffer := &bytes.Buffer{}
		writeExecutionErrorStatus(buffer, errors.New("location not found"))
		if got, want := buffer.String(), "[ERROR] command execution failed: location not found.\n"; got != want {
			t.Fatalf("writeExecutionErrorStatus() = %q, want %q", got, want)
		}
	})
}

func TestCommandPathSupportsExecutionStatus(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		path string
		want bool
	}{
		{path: "cement entity ensure", want: true},
		{path: "cement template apply", want: true},
		{path: "cement entity find", want: false},
		{path: "cement entity diff", want: false},
		{path: "cement template parse", want: false},
		{path: "cement config list", want: false},
	}

	for _, testCase := range testCases {
		if got := commandPathSupportsExecutionStatus(testCase.path); got != testCase.want {
			t.Fatalf("commandPathSupportsExecutionStatus(%q) = %t, want %t", testCase.path, got, testCase.want)
		}
	}
}

func TestExitCodeForError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		err  error
		want int
	}{
		{err: nil, want: 0},
		{err: errors.New("plain"), want: 1},
		{err: faults.NewTypedError(faults.ValidationError, "x", nil), want: 2},
		{err: faults.NewTypedError(faults.NotFoundError, "x", nil), want: 3},
		{err: faults.NewTypedError(faults.AuthError, "x", nil), want: 4},
		{err: faults.NewTypedError(faults.ConflictError, "x", nil), want: 5},
		{err: faults.NewTypedError(faults.ConnectionError, "x", nil), want: 6},
		{err: faults.NewTypedError(faults.AmbiguousMatchError, "x", nil), want: 7},
		{err: faults.NewTypedError(faults.UpdateError, "x", nil), want: 8},
		{err: faults.NewTypedError(faults.TemplateParseError, "x", nil), want: 9},
		{err: faults.NewTypedError(faults.InternalError, "x", nil), want: 1},
		{err: fmt.Errorf("wrapped: %w", faults.NewTypedError(faults.NotFoundError, "x", nil)), want: 3},
	}

	for _, testCase := range testCases {
		if got := ExitCodeForError(testCase.err); got != testCase.want {
			t.Fatalf("ExitCodeForError(%v) = %d, want %d", testCase.err, got, testCase.want)
		}
	}
}

func TestExecuteWritesMetricsFile(t *testing.T) {
	t.Parallel()

	metrics := &recordingMetrics{}
	if err := execute(Dependencies{Metrics: metrics}, []string{"--metrics-file", "/tmp/cement.prom", "entity", "kinds", "-n"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metrics.paths) != 1 || metrics.paths[0] != "/tmp/cement.prom" {
		t.Fatalf("unexpected metrics writes %#v", metrics.paths)
	}

	silent := &recordingMetrics{}
	if err := execute(Dependencies{Metrics: silent}, []string{"entity", "kinds"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(silent.paths) != 0 {
		t.Fatalf("expected no metrics write without --metrics-file, got %#v", silent.paths)
	}

	failing := &recordingMetrics{err: faults.NewTypedError(faults.InternalError, "disk full", nil)}
	err := execute(Dependencies{Metrics: failing}, []string{"--metrics-file", "/tmp/cement.prom", "entity", "kinds"})
	if !faults.IsCategory(err, faults.InternalError) {
		t.Fatalf("expected the metrics failure to surface, got %v", err)
	}
}
