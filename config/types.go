package config

import (
	"strconv"
	"strings"
	"time"
)

type ContextSelection struct {
	Name      string
	Overrides map[string]string
}

const (
	ContextFileEnvVar         = "CEMENT_CONTEXTS_FILE"
	DefaultContextCatalogPath = "~/.cement/contexts.yaml"
	DefaultTaskTimeout        = 10 * time.Minute
	DefaultPageSize           = 100
)

// Environment variables overriding the selected context.
const (
	ServerURLEnvVar   = "CEMENT_SERVER_URL"
	UsernameEnvVar    = "CEMENT_USERNAME"
	PasswordEnvVar    = "CEMENT_PASSWORD"
	VerifySSLEnvVar   = "CEMENT_VERIFY_SSL"
	TaskTimeoutEnvVar = "CEMENT_TASK_TIMEOUT"
)

// Override keys accepted by ContextSelection.Overrides.
const (
	OverrideServerURL    = "server.url"
	OverrideUsername     = "server.auth.basic-auth.username"
	OverridePassword     = "server.auth.basic-auth.password"
	OverrideVerifySSL    = "server.tls.verify"
	OverrideTaskTimeout  = "server.task-timeout"
	OverrideOrganization = "server.organization"
)

type ContextCatalog struct {
	Contexts   []Context `yaml:"contexts"`
	CurrentCtx string    `yaml:"current-ctx"`
}

type Context struct {
	Name   string  `yaml:"name"`
	Server *Server `yaml:"server,omitempty"`
}

// Server is the connection configuration of one Foreman instance. It is
// resolved once per process and read by every remote call afterwards.
type Server struct {
	URL  string `yaml:"url"`
	Auth *Auth  `yaml:"auth,omitempty"`
	TLS  *TLS   `yaml:"tls,omitempty"`
	// TaskTimeout bounds the wait for asynchronous tasks triggered by a
	// mutation: a Go duration string or a number of seconds.
	TaskTimeout       string  `yaml:"task-timeout,omitempty"`
	PageSize          int     `yaml:"page-size,omitempty"`
	RequestsPerSecond float64 `yaml:"requests-per-second,omitempty"`
	MinVersion        string  `yaml:"min-version,omitempty"`
	// Organization is the default organization for scoped commands.
	Organization string `yaml:"organization,omitempty"`
}

func (s Server) TaskTimeoutDuration() (time.Duration, error) {
	value := strings.TrimSpace(s.TaskTimeout)
	if value == "" {
		return DefaultTaskTimeout, nil
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return time.ParseDuration(value)
}

func (s Server) EffectivePageSize() int {
	if s.PageSize <= 0 {
		return DefaultPageSize
	}
	return s.PageSize
}

type Auth struct {
	BasicAuth   *BasicAuth       `yaml:"basic-auth,omitempty"`
	BearerToken *BearerTokenAuth `yaml:"bearer-token,omitempty"`
}

type BasicAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password,omitempty"`
}

type BearerTokenAuth struct {
	Token string `yaml:"token"`
}

type TLS struct {
	CACertFile         string `yaml:"ca-cert-file,omitempty"`
	ClientCertFile     string `yaml:"client-cert-file,omitempty"`
	ClientKeyFile      string `yaml:"client-key-file,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecure-skip-verify,omitempty"`
}
