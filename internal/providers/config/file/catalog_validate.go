package file

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/crmarques/cement/config"
)

func validateCatalog(contextCatalog config.ContextCatalog) error {
	if len(contextCatalog.Contexts) == 0 {
		if contextCatalog.CurrentCtx != "" {
			return validationError("current-ctx must be empty when contexts list is empty", nil)
		}
		return nil
	}

	seen := map[string]struct{}{}
	for _, item := range contextCatalog.Contexts {
		if item.Name == "" {
			return validationError("context name must not be empty", nil)
		}
		if _, exists := seen[item.Name]; exists {
			return validationError(fmt.Sprintf("duplicate context name %q", item.Name), nil)
		}
		seen[item.Name] = struct{}{}

		if err := validateConfig(item); err != nil {
			return err
		}
	}

	if contextCatalog.CurrentCtx == "" {
		return validationError("current-ctx must be set when contexts are defined", nil)
	}
	if _, exists := seen[contextCatalog.CurrentCtx]; !exists {
		return validationError(fmt.Sprintf("current-ctx %q does not match any context", contextCatalog.CurrentCtx), nil)
	}

	return nil
}

func validateConfig(cfg config.Context) error {
	if cfg.Name == "" {
		return validationError("context name must not be empty", nil)
	}
	return validateServer(cfg.Server)
}

func validateServer(server *config.Server) error {
	if server == nil {
		return validationError("server is required", nil)
	}

	parsed, err := url.Parse(strings.TrimSpace(server.URL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return validationError("server.url must be an absolute http(s) url", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return validationError("server.url must use http or https", nil)
	}

	if server.Auth != nil {
		if countSet(server.Auth.BasicAuth != nil, server.Auth.BearerToken != nil) != 1 {
			return validationError("server.auth must define exactly one of basic-auth, bearer-token", nil)
		}
		if server.Auth.BasicAuth != nil && strings.TrimSpace(server.Auth.BasicAuth.Username) == "" {
			return validationError("server.auth.basic-auth.username is required", nil)
		}
		if server.Auth.BearerToken != nil && strings.TrimSpace(server.Auth.BearerToken.Token) == "" {
			return validationError("server.auth.bearer-token.token is required", nil)
		}
	}

	if timeout, err := server.TaskTimeoutDuration(); err != nil || timeout <= 0 {
		return validationError(fmt.Sprintf("server.task-timeout %q must be a positive duration", server.TaskTimeout), err)
	}
	if server.PageSize < 0 {
		return validationError("server.page-size must not be negative", nil)
	}
	if server.RequestsPerSecond < 0 {
		return validationError("server.requests-per-second must not be negative", nil)
	}
	if server.MinVersion != "" {
		if _, err := semver.NewVersion(server.MinVersion); err != nil {
			return validationError(fmt.Sprintf("server.min-version %q is not a valid version", server.MinVersion), err)
		}
	}

	return nil
}

// envOverrides maps the CEMENT_* environment variables onto override keys.
func envOverrides(lookup func(string) (string, bool)) map[string]string {
	overrides := map[string]string{}
	for envVar, key := range map[string]string{
		config.ServerURLEnvVar:   config.OverrideServerURL,
		config.UsernameEnvVar:    config.OverrideUsername,
		config.PasswordEnvVar:    config.OverridePassword,
		config.VerifySSLEnvVar:   config.OverrideVerifySSL,
		config.TaskTimeoutEnvVar: config.OverrideTaskTimeout,
	} {
		if value, ok := lookup(envVar); ok && value != "" {
			overrides[key] = value
		}
	}
	return overrides
}

func applyOverrides(cfg config.Context, overrides map[string]string) (config.Context, error) {
	for _, key := range sortedOverrideKeys(overrides) {
		value := overrides[key]
		if cfg.Server == nil {
			cfg.Server = &config.Server{}
		}
		server := cfg.Server

		switch key {
		case config.OverrideServerURL:
			server.URL = value
		case config.OverrideUsername, config.OverridePassword:
			if server.Auth == nil {
				server.Auth = &config.Auth{}
			}
			if server.Auth.BearerToken != nil {
				return config.Context{}, validationError(fmt.Sprintf("override %s conflicts with server.auth.bearer-token", key), nil)
			}
			if server.Auth.BasicAuth == nil {
				server.Auth.BasicAuth = &config.BasicAuth{}
			}
			if key == config.OverrideUsername {
				server.Auth.BasicAuth.Username = value
			} else {
				server.Auth.BasicAuth.Password = value
			}
		case config.OverrideVerifySSL:
			verify, err := strconv.ParseBool(value)
			if err != nil {
				return config.Context{}, validationError(fmt.Sprintf("override %s must be a boolean", key), err)
			}
			if server.TLS == nil {
				server.TLS = &config.TLS{}
			}
			server.TLS.InsecureSkipVerify = !verify
		case config.OverrideTaskTimeout:
			server.TaskTimeout = value
		case config.OverrideOrganization:
			server.Organization = value
		default:
			return config.Context{}, unknownOverrideError(key)
		}
	}

	return cfg, nil
}

func sortedOverrideKeys(overrides map[string]string) []string {
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func countSet(values ...bool) int {
	count := 0
	for _, value := range values {
		if value {
			count++
		}
	}
	return count
}

func unknownOverrideError(key string) error {
	return validationError(fmt.Sprintf("unknown override key %q", key), nil)
}
