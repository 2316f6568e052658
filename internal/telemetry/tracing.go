package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/crmarques/cement/faults"
)

const (
	EndpointEnvVar       = "OTEL_EXPORTER_OTLP_ENDPOINT"
	TracesEndpointEnvVar = "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"
	serviceName          = "cement"
)

type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Enabled reports whether an OTLP endpoint is configured.
func Enabled(lookupEnv func(string) (string, bool)) bool {
	if lookupEnv == nil {
		return false
	}
	for _, key := range []string{TracesEndpointEnvVar, EndpointEnvVar} {
		if value, ok := lookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return true
		}
	}
	return false
}

// SetupTracing installs a global OTLP/gRPC tracer provider when an endpoint
// is configured. The exporter reads the standard OTEL_EXPORTER_OTLP_*
// variables itself. Without an endpoint the global provider stays a no-op.
func SetupTracing(ctx context.Context, version string, lookupEnv func(string) (string, bool)) (ShutdownFunc, error) {
	if !Enabled(lookupEnv) {
		return noopShutdown, nil
	}

	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return noopShutdown, faults.NewTypedError(faults.ValidationError, "failed to configure OTLP trace exporter", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", version),
		)),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
