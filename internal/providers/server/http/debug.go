package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/crmarques/cement/config"
	"github.com/crmarques/cement/debugctx"
)

var tracer = otel.Tracer("cement.server.http")

type tlsDebugInfo struct {
	enabled            bool
	insecureSkipVerify bool
	caCertFile         string
	clientCertFile     string
}

func newTLSDebugInfo(settings *config.TLS) tlsDebugInfo {
	if settings == nil {
		return tlsDebugInfo{}
	}
	return tlsDebugInfo{
		enabled:            true,
		insecureSkipVerify: settings.InsecureSkipVerify,
		caCertFile:         strings.TrimSpace(settings.CACertFile),
		clientCertFile:     strings.TrimSpace(settings.ClientCertFile),
	}
}

// doRequest sends the request inside a client span, logs it at debug level
// and reports it to the request recorder. Transport failures are reported
// with status 0.
func (g *EntityServerGateway) doRequest(ctx context.Context, purpose string, request *http.Request) (*http.Response, error) {
	logger := debugctx.Logger(ctx)
	target := redactURLForDebug(request.URL)

	ctx, span := tracer.Start(ctx, "foreman."+purpose,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", request.Method),
			attribute.String("url.full", target),
			attribute.String("cement.request_id", request.Header.Get("X-Request-Id")),
		),
	)
	defer span.End()
	request = request.WithContext(ctx)
	logger.Debug().
		Str("purpose", purpose).
		Str("method", request.Method).
		Str("url", target).
		Str("request_id", request.Header.Get("X-Request-Id")).
		Bool("tls", g.tlsDebug.enabled).
		Bool("tls_insecure_skip_verify", g.tlsDebug.insecureSkipVerify).
		Str("tls_ca_cert_file", g.tlsDebug.caCertFile).
		Str("tls_client_cert_file", g.tlsDebug.clientCertFile).
		Msg("http request")

	started := time.Now()
	response, err := g.client.Do(request)
	elapsed := time.Since(started)
	if err != nil {
		logger.Debug().Err(err).Str("purpose", purpose).Str("method", request.Method).Str("url", target).Msg("http request failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		g.record(request.Method, purpose, 0, elapsed)
		return nil, err
	}

	logger.Debug().
		Str("purpose", purpose).
		Str("method", request.Method).
		Str("url", target).
		Int("status", response.StatusCode).
		Dur("elapsed", elapsed).
		Msg("http response")
	span.SetAttributes(attribute.Int("http.response.status_code", response.StatusCode))
	if response.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(response.StatusCode))
	}
	g.record(request.Method, purpose, response.StatusCode, elapsed)
	return response, nil
}

func (g *EntityServerGateway) record(method string, purpose string, statusCode int, elapsed time.Duration) {
	if g.recorder != nil {
		g.recorder.ObserveRequest(method, purpose, statusCode, elapsed)
	}
}

// redactURLForDebug drops credentials and the search expression.
func redactURLForDebug(value *url.URL) string {
	if value == nil {
		return ""
	}

	cloned := *value
	cloned.User = nil
	query := cloned.Query()
	if query.Has("search") {
		query.Set("search", "<redacted>")
		cloned.RawQuery = query.Encode()
	}
	return cloned.String()
}
