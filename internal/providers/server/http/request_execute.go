package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const maxResponseBytes = 8 << 20

type requestSpec struct {
	purpose string
	method  string
	path    string
	query   url.Values
	body    any
}

type remoteResponse struct {
	statusCode int
	body       []byte
}

func (g *EntityServerGateway) execute(ctx context.Context, spec requestSpec) (remoteResponse, error) {
	if g == nil || g.client == nil {
		return remoteResponse{}, internalError("entity server gateway is not configured", nil)
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return remoteResponse{}, connectionError("request rate limiter aborted", err)
		}
	}

	request, err := g.newRequest(ctx, spec)
	if err != nil {
		return remoteResponse{}, err
	}

	response, err := g.doRequest(ctx, spec.purpose, request)
	if err != nil {
		return remoteResponse{}, connectionError("remote request failed", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return remoteResponse{}, connectionError("failed to read remote response body", err)
	}

	if response.StatusCode >= http.StatusBadRequest {
		return remoteResponse{}, classifyStatusError(response.StatusCode, body)
	}

	return remoteResponse{statusCode: response.StatusCode, body: body}, nil
}

func (g *EntityServerGateway) newRequest(ctx context.Context, spec requestSpec) (*http.Request, error) {
	targetURL, err := g.resolveRequestURL(spec.path, spec.query)
	if err != nil {
		return nil, err
	}

	requestBody, err := encodeRequestBody(spec.body)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if len(requestBody) > 0 {
		bodyReader = bytes.NewReader(requestBody)
	}

	request, err := http.NewRequestWithContext(ctx, spec.method, targetURL, bodyReader)
	if err != nil {
		return nil, internalError("failed to create remote request", err)
	}

	request.Header.Set("Accept", defaultMediaType)
	if len(requestBody) > 0 {
		request.Header.Set("Content-Type", defaultMediaType)
	}
	request.Header.Set("X-Request-Id", uuid.NewString())
	if g.userAgent != "" {
		request.Header.Set("User-Agent", g.userAgent)
	}

	g.applyAuth(request)
	return request, nil
}

func (g *EntityServerGateway) resolveRequestURL(requestPath string, query url.Values) (string, error) {
	if parsed, err := url.Parse(requestPath); err != nil || parsed.Scheme != "" {
		return "", validationError("request path must be relative to server.url", err)
	}

	target := *g.baseURL
	target.Path = joinBaseAndRequestPath(g.baseURL.Path, requestPath)
	target.RawQuery = query.Encode()
	return target.String(), nil
}

func joinBaseAndRequestPath(basePath string, requestPath string) string {
	return strings.TrimSuffix(basePath, "/") + "/" + strings.TrimPrefix(requestPath, "/")
}
