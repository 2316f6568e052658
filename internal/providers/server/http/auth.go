package http

import (
	"net/http"
	"strings"

	"github.com/crmarques/cement/config"
)

type authMode int

const (
	authModeUnknown authMode = iota
	authModeBasic
	authModeBearer
)

type authConfig struct {
	mode        authMode
	basicAuth   config.BasicAuth
	bearerToken config.BearerTokenAuth
}

func buildAuthConfig(cfg *config.Auth) (authConfig, error) {
	if cfg == nil {
		return authConfig{}, authError("server.auth is required", nil)
	}
	if (cfg.BasicAuth != nil) == (cfg.BearerToken != nil) {
		return authConfig{}, validationError("server.auth must define exactly one of basic-auth, bearer-token", nil)
	}

	if cfg.BearerToken != nil {
		bearer := *cfg.BearerToken
		if strings.TrimSpace(bearer.Token) == "" {
			return authConfig{}, authError("server.auth.bearer-token.token is required", nil)
		}
		return authConfig{mode: authModeBearer, bearerToken: bearer}, nil
	}

	basic := *cfg.BasicAuth
	if basic.Username == "" || basic.Password == "" {
		return authConfig{}, authError("server.auth.basic-auth requires username and password", nil)
	}
	return authConfig{mode: authModeBasic, basicAuth: basic}, nil
}

func (g *EntityServerGateway) applyAuth(request *http.Request) {
	switch g.auth.mode {
	case authModeBasic:
		request.SetBasicAuth(g.auth.basicAuth.Username, g.auth.basicAuth.Password)
	case authModeBearer:
		request.Header.Set("Authorization", "Bearer "+g.auth.bearerToken.Token)
	}
}
