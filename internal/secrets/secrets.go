// Package secrets resolves store and broker credentials that should not live
// in flowgraph.yaml.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/efebarandurmaz/flowgraph/internal/config"
)

// Key names a secret.
type Key string

const (
	KeyGraphPassword          Key = "graph_password"
	KeyStorageAccessKeyID     Key = "storage_access_key_id"
	KeyStorageSecretAccessKey Key = "storage_secret_access_key"
	KeyPublishURL             Key = "publish_url"
)

// ErrNotFound is returned when no provider holds the key.
var ErrNotFound = errors.New("secret not found")

// Provider is a read-only secret backend.
type Provider interface {
	Name() string
	Get(ctx context.Context, key Key) (string, error)
}

// Manager looks keys up in the primary provider, then in the environment.
// Hits are cached for the life of the manager.
type Manager struct {
	primary  Provider
	fallback Provider

	mu    sync.RWMutex
	cache map[Key]string
}

// NewManager builds a manager from the secrets section. "env" (the default)
// reads FLOWGRAPH_<KEY>; "file" reads a YAML or JSON map and falls back to env.
func NewManager(cfg config.SecretsConfig) (*Manager, error) {
	env := NewEnvProvider(config.EnvPrefix + "_")
	m := &Manager{primary: env, cache: make(map[Key]string)}
	switch cfg.Provider {
	case "", "env":
	case "file":
		if cfg.File == "" {
			return nil, errors.New("secrets.file is required for the file provider")
		}
		fp, err := NewFileProvider(cfg.File)
		if err != nil {
			return nil, err
		}
		m.primary, m.fallback = fp, env
	default:
		return nil, fmt.Errorf("unknown secrets provider %q", cfg.Provider)
	}
	return m, nil
}

// Get returns the first non-empty value for key.
func (m *Manager) Get(ctx context.Context, key Key) (string, error) {
	m.mu.RLock()
	v, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return v, nil
	}
	for _, p := range []Provider{m.primary, m.fallback} {
		if p == nil {
			continue
		}
		if v, err := p.Get(ctx, key); err == nil && v != "" {
			m.mu.Lock()
			m.cache[key] = v
			m.mu.Unlock()
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Apply fills credentials that the configuration leaves empty. Values
// already set in the configuration win.
func (m *Manager) Apply(ctx context.Context, cfg *config.Config) {
	for key, field := range map[Key]*string{
		KeyGraphPassword:          &cfg.Graph.Password,
		KeyStorageAccessKeyID:     &cfg.Storage.AccessKeyID,
		KeyStorageSecretAccessKey: &cfg.Storage.SecretAccessKey,
		KeyPublishURL:             &cfg.Publish.URL,
	} {
		if *field != "" {
			continue
		}
		if v, err := m.Get(ctx, key); err == nil {
			*field = v
		}
	}
}

// EnvProvider reads <prefix><KEY>, then <KEY>.
type EnvProvider struct {
	prefix string
}

func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(_ context.Context, key Key) (string, error) {
	name := strings.ToUpper(string(key))
	if v := os.Getenv(p.prefix + name); v != "" {
		return v, nil
	}
	if v := os.Getenv(name); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s%s", ErrNotFound, p.prefix, name)
}

// FileProvider serves secrets from a flat YAML or JSON object, typically a
// mounted container secret. The file is read once.
type FileProvider struct {
	path   string
	values map[string]string
}

func NewFileProvider(path string) (*FileProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	values := make(map[string]string)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing secrets file %s: %w", path, err)
	}
	return &FileProvider{path: path, values: values}, nil
}

func (p *FileProvider) Name() string { return "file" }

func (p *FileProvider) Get(_ context.Context, key Key) (string, error) {
	if v, ok := p.values[string(key)]; ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s in %s", ErrNotFound, key, p.path)
}
