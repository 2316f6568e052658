package core

import (
	"context"
	"os"

	"github.com/crmarques/cement/internal/metrics"
	"github.com/crmarques/cement/internal/telemetry"
)

func NewMetricsRecorder() *metrics.Recorder {
	return metrics.New()
}

// StartTracing installs the OTLP tracer provider when the standard
// OTEL_EXPORTER_OTLP_* environment selects an endpoint. The returned
// function flushes pending spans.
func StartTracing(ctx context.Context, version string) (func(context.Context) error, error) {
	shutdown, err := telemetry.SetupTracing(ctx, version, os.LookupEnv)
	return shutdown, err
}
