package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/crmarques/cement/server"
)

// Ping reads the server status and enforces server.min-version when set.
func (g *EntityServerGateway) Ping(ctx context.Context) (server.Status, error) {
	response, err := g.execute(ctx, requestSpec{
		purpose: "ping",
		method:  http.MethodGet,
		path:    statusPath,
	})
	if err != nil {
		return server.Status{}, err
	}

	record, err := decodeRecord(response.body)
	if err != nil {
		return server.Status{}, err
	}

	status := server.Status{Details: map[string]any{}}
	for key, value := range record {
		switch key {
		case "version":
			status.Version, _ = value.(string)
		case "result":
			status.Result, _ = value.(string)
		default:
			status.Details[key] = value
		}
	}
	if len(status.Details) == 0 {
		status.Details = nil
	}

	if err := g.checkVersion(status.Version); err != nil {
		return status, err
	}
	return status, nil
}

func (g *EntityServerGateway) checkVersion(reported string) error {
	if g.minVersion == nil {
		return nil
	}
	if strings.TrimSpace(reported) == "" {
		return connectionError("server status does not report a version", nil)
	}

	version, err := semver.NewVersion(reported)
	if err != nil {
		return connectionError(fmt.Sprintf("server version %q is not a semantic version", reported), err)
	}
	// Development builds such as 3.9.0-develop count as their release.
	if release, err := version.SetPrerelease(""); err == nil {
		version = &release
	}
	if version.LessThan(g.minVersion) {
		return validationError(fmt.Sprintf("server version %s is older than required %s", version, g.minVersion), nil)
	}
	return nil
}
