package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/crmarques/cement/config"
	"github.com/crmarques/cement/faults"
	"github.com/crmarques/cement/internal/providers/shared/fsutil"
	"github.com/crmarques/cement/yamlutil"
)

var _ config.ContextService = (*FileContextService)(nil)

// EnvContextName names the context synthesized from environment variables
// when the catalog defines none.
const EnvContextName = "env"

type FileContextService struct {
	contextCatalogPath string
	lookupEnv          func(string) (string, bool)
}

type Option func(*FileContextService)

// WithEnvLookup replaces os.LookupEnv when reading environment overrides.
func WithEnvLookup(lookup func(string) (string, bool)) Option {
	return func(m *FileContextService) {
		if lookup != nil {
			m.lookupEnv = lookup
		}
	}
}

func NewFileContextService(path string, opts ...Option) *FileContextService {
	service := &FileContextService{
		contextCatalogPath: path,
		lookupEnv:          os.LookupEnv,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (m *FileContextService) Create(_ context.Context, cfg config.Context) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	contextCatalog, err := m.loadCatalog()
	if err != nil {
		return err
	}

	if idx := findContextIndex(contextCatalog.Contexts, cfg.Name); idx >= 0 {
		return validationError(fmt.Sprintf("context %q already exists", cfg.Name), nil)
	}

	contextCatalog.Contexts = append(contextCatalog.Contexts, cfg)
	if contextCatalog.CurrentCtx == "" {
		contextCatalog.CurrentCtx = cfg.Name
	}

	return m.saveCatalog(contextCatalog)
}

func (m *FileContextService) Delete(_ context.Context, name string) error {
	contextCatalog, err := m.loadCatalog()
	if err != nil {
		return err
	}

	idx := findContextIndex(contextCatalog.Contexts, name)
	if idx < 0 {
		return notFoundError(fmt.Sprintf("context %q not found", name))
	}

	contextCatalog.Contexts = append(contextCatalog.Contexts[:idx], contextCatalog.Contexts[idx+1:]...)
	if contextCatalog.CurrentCtx == name {
		if len(contextCatalog.Contexts) == 0 {
			contextCatalog.CurrentCtx = ""
		} else {
			contextCatalog.CurrentCtx = contextCatalog.Contexts[0].Name
		}
	}

	return m.saveCatalog(contextCatalog)
}

func (m *FileContextService) List(_ context.Context) ([]config.Context, error) {
	contextCatalog, err := m.loadCatalog()
	if err != nil {
		return nil, err
	}

	contexts := make([]config.Context, len(contextCatalog.Contexts))
	copy(contexts, contextCatalog.Contexts)
	return contexts, nil
}

func (m *FileContextService) SetCurrent(_ context.Context, name string) error {
	contextCatalog, err := m.loadCatalog()
	if err != nil {
		return err
	}

	if findContextIndex(contextCatalog.Contexts, name) < 0 {
		return notFoundError(fmt.Sprintf("context %q not found", name))
	}

	contextCatalog.CurrentCtx = name
	return m.saveCatalog(contextCatalog)
}

func (m *FileContextService) GetCurrent(_ context.Context) (config.Context, error) {
	contextCatalog, err := m.loadCatalog()
	if err != nil {
		return config.Context{}, err
	}
	if contextCatalog.CurrentCtx == "" {
		return config.Context{}, notFoundError("current context not set")
	}

	idx := findContextIndex(contextCatalog.Contexts, contextCatalog.CurrentCtx)
	if idx < 0 {
		return config.Context{}, notFoundError(fmt.Sprintf("current context %q not found", contextCatalog.CurrentCtx))
	}

	return contextCatalog.Contexts[idx], nil
}

// ResolveContext picks the named or current context and layers the
// environment and then the explicit selection overrides on top of it.
// Without any catalog entry, a context is built from the environment
// alone when CEMENT_SERVER_URL is set.
func (m *FileContextService) ResolveContext(_ context.Context, selection config.ContextSelection) (config.Context, error) {
	contextCatalog, err := m.loadCatalog()
	if err != nil {
		return config.Context{}, err
	}

	var selected config.Context
	effectiveName := selection.Name
	if effectiveName == "" {
		effectiveName = contextCatalog.CurrentCtx
	}
	switch {
	case effectiveName != "":
		idx := findContextIndex(contextCatalog.Contexts, effectiveName)
		if idx < 0 {
			return config.Context{}, notFoundError(fmt.Sprintf("context %q not found", effectiveName))
		}
		selected = cloneContext(contextCatalog.Contexts[idx])
	case m.hasEnv(config.ServerURLEnvVar):
		selected = config.Context{Name: EnvContextName, Server: &config.Server{}}
	default:
		return config.Context{}, notFoundError("current context not set")
	}

	resolved, err := applyOverrides(selected, envOverrides(m.lookupEnv))
	if err != nil {
		return config.Context{}, err
	}
	resolved, err = applyOverrides(resolved, selection.Overrides)
	if err != nil {
		return config.Context{}, err
	}
	if err := validateConfig(resolved); err != nil {
		return config.Context{}, err
	}

	return resolved, nil
}

func (m *FileContextService) Validate(_ context.Context, cfg config.Context) error {
	return validateConfig(cfg)
}

func (m *FileContextService) hasEnv(key string) bool {
	value, ok := m.lookupEnv(key)
	return ok && value != ""
}

func (m *FileContextService) saveCatalog(contextCatalog config.ContextCatalog) error {
	if err := validateCatalog(contextCatalog); err != nil {
		return err
	}

	resolvedPath, err := m.resolveCatalogPath()
	if err != nil {
		return err
	}

	encoded, err := encodeCatalog(contextCatalog)
	if err != nil {
		return internalError("failed to encode context catalog", err)
	}

	if err := fsutil.WriteFileAtomic(resolvedPath, encoded, 0o600); err != nil {
		return internalError("failed to write context catalog", err)
	}
	return nil
}

// loadCatalog treats a missing or blank catalog file as an empty catalog.
func (m *FileContextService) loadCatalog() (config.ContextCatalog, error) {
	resolvedPath, err := m.resolveCatalogPath()
	if err != nil {
		return config.ContextCatalog{}, err
	}

	data, err := os.ReadFile(resolvedPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return config.ContextCatalog{}, nil
	case err != nil:
		return config.ContextCatalog{}, internalError(fmt.Sprintf("failed to read context catalog %s", resolvedPath), err)
	}

	contextCatalog, err := decodeCatalog(data)
	if err != nil {
		return config.ContextCatalog{}, err
	}
	if err := validateCatalog(contextCatalog); err != nil {
		return config.ContextCatalog{}, err
	}
	return contextCatalog, nil
}

// resolveCatalogPath picks the explicit path, then CEMENT_CONTEXTS_FILE, then
// the default under the home directory. Relative paths are taken from home.
func (m *FileContextService) resolveCatalogPath() (string, error) {
	path := strings.TrimSpace(m.contextCatalogPath)
	if path == "" {
		if value, ok := m.lookupEnv(config.ContextFileEnvVar); ok {
			path = strings.TrimSpace(value)
		}
	}
	if path == "" {
		path = config.DefaultContextCatalogPath
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", internalError("failed to resolve user home directory", err)
	}
	relative := path
	if relative == "~" || strings.HasPrefix(relative, "~/") {
		relative = strings.TrimPrefix(strings.TrimPrefix(relative, "~"), "/")
	}
	if filepath.Clean(relative) == "." {
		return "", validationError(fmt.Sprintf("context catalog path %q does not name a file", path), nil)
	}
	return filepath.Join(homeDir, relative), nil
}

func decodeCatalog(data []byte) (config.ContextCatalog, error) {
	var contextCatalog config.ContextCatalog
	if strings.TrimSpace(string(data)) == "" {
		return contextCatalog, nil
	}
	if err := yamlutil.DecodeStrict(data, &contextCatalog); err != nil {
		return config.ContextCatalog{}, validationError("invalid context catalog yaml", err)
	}
	return contextCatalog, nil
}

func encodeCatalog(contextCatalog config.ContextCatalog) ([]byte, error) {
	return yamlutil.MarshalWithIndent(contextCatalog, 2)
}

func findContextIndex(contexts []config.Context, name string) int {
	for idx, item := range contexts {
		if item.Name == name {
			return idx
		}
	}
	return -1
}

func cloneContext(cfg config.Context) config.Context {
	if cfg.Server == nil {
		return cfg
	}
	server := *cfg.Server
	if server.Auth != nil {
		auth := *server.Auth
		if auth.BasicAuth != nil {
			basic := *auth.BasicAuth
			auth.BasicAuth = &basic
		}
		if auth.BearerToken != nil {
			bearer := *auth.BearerToken
			auth.BearerToken = &bearer
		}
		server.Auth = &auth
	}
	if server.TLS != nil {
		tls := *server.TLS
		server.TLS = &tls
	}
	cfg.Server = &server
	return cfg
}

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}

func notFoundError(message string) error {
	return faults.NewTypedError(faults.NotFoundError, message, nil)
}

func internalError(message string, cause error) error {
	return faults.NewTypedError(faults.InternalError, message, cause)
}
