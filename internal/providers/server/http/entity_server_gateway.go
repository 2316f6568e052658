package http

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/crmarques/cement/config"
	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/internal/providers/shared/tlsconfig"
	"github.com/crmarques/cement/server"
)

const (
	defaultHTTPTimeout      = 60 * time.Second
	defaultTaskPollInterval = 2 * time.Second
	defaultMediaType        = "application/json"
	statusPath              = "/api/status"
	tasksPath               = "/foreman_tasks/api/tasks"
)

var _ server.EntityServer = (*EntityServerGateway)(nil)
var _ server.RawReader = (*EntityServerGateway)(nil)

// RequestRecorder observes every completed remote request.
type RequestRecorder interface {
	ObserveRequest(method string, purpose string, statusCode int, duration time.Duration)
}

// EntityServerGateway talks to the Foreman REST API. One gateway is built per
// process from the resolved server configuration and never reconfigured.
type EntityServerGateway struct {
	baseURL      *url.URL
	auth         authConfig
	client       *http.Client
	limiter      *rate.Limiter
	taskTimeout  time.Duration
	pollInterval time.Duration
	minVersion   *semver.Version
	userAgent    string
	recorder     RequestRecorder
	tlsDebug     tlsDebugInfo
}

type GatewayOption func(*EntityServerGateway)

func WithTaskPollInterval(interval time.Duration) GatewayOption {
	return func(g *EntityServerGateway) {
		if interval > 0 {
			g.pollInterval = interval
		}
	}
}

func WithRequestRecorder(recorder RequestRecorder) GatewayOption {
	return func(g *EntityServerGateway) {
		g.recorder = recorder
	}
}

func WithUserAgent(userAgent string) GatewayOption {
	return func(g *EntityServerGateway) {
		g.userAgent = strings.TrimSpace(userAgent)
	}
}

func NewEntityServerGateway(cfg config.Server, opts ...GatewayOption) (*EntityServerGateway, error) {
	baseURL, err := parseBaseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	auth, err := buildAuthConfig(cfg.Auth)
	if err != nil {
		return nil, err
	}

	tlsConfig, err := buildTLSConfig(cfg.TLS)
	if err != nil {
		return nil, err
	}

	taskTimeout, err := cfg.TaskTimeoutDuration()
	if err != nil || taskTimeout <= 0 {
		return nil, validationError("server.task-timeout must be a positive duration", err)
	}

	var minVersion *semver.Version
	if strings.TrimSpace(cfg.MinVersion) != "" {
		minVersion, err = semver.NewVersion(cfg.MinVersion)
		if err != nil {
			return nil, validationError("server.min-version is invalid", err)
		}
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, internalError("failed to create session cookie jar", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig

	gateway := &EntityServerGateway{
		baseURL: baseURL,
		auth:    auth,
		client: &http.Client{
			Timeout:   defaultHTTPTimeout,
			Transport: transport,
			Jar:       jar,
		},
		taskTimeout:  taskTimeout,
		pollInterval: defaultTaskPollInterval,
		minVersion:   minVersion,
		tlsDebug:     newTLSDebugInfo(cfg.TLS),
	}
	if cfg.RequestsPerSecond > 0 {
		gateway.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(gateway)
		}
	}
	return gateway, nil
}

func (g *EntityServerGateway) Search(ctx context.Context, schema entity.Schema, query server.SearchQuery) (server.SearchPage, error) {
	values := url.Values{}
	if strings.TrimSpace(query.Search) != "" {
		values.Set("search", query.Search)
	}
	for _, param := range query.Scope {
		values.Set(param.Key, param.Value)
	}
	if query.Page > 0 {
		values.Set("page", strconv.Itoa(query.Page))
	}
	if query.PerPage > 0 {
		values.Set("per_page", strconv.Itoa(query.PerPage))
	}

	response, err := g.execute(ctx, requestSpec{
		purpose: "search",
		method:  http.MethodGet,
		path:    schema.Endpoint,
		query:   values,
	})
	if err != nil {
		return server.SearchPage{}, err
	}
	return g.decodeSearchPage(ctx, schema, response.body)
}

func (g *EntityServerGateway) Read(ctx context.Context, schema entity.Schema, id int64) (entity.Entity, error) {
	record, err := g.ReadRaw(ctx, schema, id)
	if err != nil {
		return entity.Entity{}, err
	}
	return decodeEntity(schema, record)
}

func (g *EntityServerGateway) ReadRaw(ctx context.Context, schema entity.Schema, id int64) (map[string]any, error) {
	response, err := g.execute(ctx, requestSpec{
		purpose: "read",
		method:  http.MethodGet,
		path:    memberPath(schema, id),
	})
	if err != nil {
		return nil, err
	}
	return decodeRecord(response.body)
}

func (g *EntityServerGateway) Create(ctx context.Context, schema entity.Schema, item entity.Entity) (entity.Entity, error) {
	payload, err := encodePayload(schema, item, nil)
	if err != nil {
		return entity.Entity{}, err
	}

	response, err := g.execute(ctx, requestSpec{
		purpose: "create",
		method:  http.MethodPost,
		path:    schema.Endpoint,
		body:    payload,
	})
	if err != nil {
		return entity.Entity{}, err
	}

	record, task, err := g.settle(ctx, response)
	if err != nil {
		return entity.Entity{}, err
	}
	if task != nil {
		if id, ok := task.subjectID(schema); ok {
			return g.Read(ctx, schema, id)
		}
		created := item.Clone()
		created.Kind = schema.Kind
		return created, nil
	}
	return decodeEntity(schema, record)
}

// Update sends only the named fields.
func (g *EntityServerGateway) Update(ctx context.Context, schema entity.Schema, item entity.Entity, fields []string) (entity.Entity, error) {
	payload, err := encodePayload(schema, item, fields)
	if err != nil {
		return entity.Entity{}, err
	}

	response, err := g.execute(ctx, requestSpec{
		purpose: "update",
		method:  http.MethodPut,
		path:    memberPath(schema, item.ID),
		body:    payload,
	})
	if err != nil {
		return entity.Entity{}, err
	}

	record, task, err := g.settle(ctx, response)
	if err != nil {
		return entity.Entity{}, err
	}
	if task != nil {
		return g.Read(ctx, schema, item.ID)
	}
	updated, err := decodeEntity(schema, record)
	if err != nil {
		return entity.Entity{}, err
	}
	if updated.ID == 0 {
		updated.ID = item.ID
	}
	return updated, nil
}

func (g *EntityServerGateway) Delete(ctx context.Context, schema entity.Schema, item entity.Entity) error {
	response, err := g.execute(ctx, requestSpec{
		purpose: "delete",
		method:  http.MethodDelete,
		path:    memberPath(schema, item.ID),
	})
	if err != nil {
		return err
	}
	_, _, err = g.settle(ctx, response)
	return err
}

func memberPath(schema entity.Schema, id int64) string {
	return strings.TrimSuffix(schema.Endpoint, "/") + "/" + strconv.FormatInt(id, 10)
}

func parseBaseURL(raw string) (*url.URL, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, validationError("server.url is required", nil)
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return nil, validationError("server.url is invalid", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, validationError("server.url must use http or https", nil)
	}
	if parsed.Host == "" {
		return nil, validationError("server.url host is required", nil)
	}

	if parsed.Path == "" {
		parsed.Path = "/"
	}
	return parsed, nil
}

func buildTLSConfig(tlsSettings *config.TLS) (*tls.Config, error) {
	return tlsconfig.BuildTLSConfig(tlsSettings, "server")
}
