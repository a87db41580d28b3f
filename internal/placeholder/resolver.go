// Package placeholder resolves ${key} tokens in raw fact strings against
// configuration files found next to the scanned sources.
package placeholder

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/efebarandurmaz/flowgraph/internal/facts"
)

var pattern = regexp.MustCompile(`\$\{([^}]+)\}`)

var nilWarning sync.Once

// Extensions lists the config file types read by LoadDir.
var Extensions = []string{".properties", ".yaml", ".yml"}

// Resolver substitutes ${key} tokens. A Resolver without a store, including
// a nil *Resolver, returns every input unchanged.
type Resolver struct {
	v      *viper.Viper
	logger *slog.Logger
	once   sync.Once
}

// New wraps an existing viper instance. v may be nil.
func New(v *viper.Viper, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{v: v, logger: logger}
}

// FromMap builds a resolver over fixed values, mostly for tests.
func FromMap(values map[string]string, logger *slog.Logger) *Resolver {
	v := viper.New()
	for k, val := range values {
		v.Set(k, val)
	}
	return New(v, logger)
}

// LoadDir merges every config file under dir into one store. Files are read
// in lexical path order, so later files override earlier ones. It fails with
// ErrConfigurationUnavailable when dir cannot be walked; the returned
// resolver is still usable and leaves strings unchanged.
func LoadDir(dir string, logger *slog.Logger) (*Resolver, error) {
	if dir == "" {
		return New(nil, logger), fmt.Errorf("%w: no config directory", facts.ErrConfigurationUnavailable)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return New(nil, logger), fmt.Errorf("%w: %v", facts.ErrConfigurationUnavailable, err)
	}
	if !info.IsDir() {
		return New(nil, logger), fmt.Errorf("%w: %s is not a directory", facts.ErrConfigurationUnavailable, dir)
	}

	v := viper.New()
	r := New(v, logger)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !hasConfigExt(path) {
			return nil
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			r.logger.Warn("skipping unreadable config file", "file", path, "error", err)
		}
		return nil
	})
	if err != nil {
		return New(nil, logger), fmt.Errorf("%w: %v", facts.ErrConfigurationUnavailable, err)
	}
	r.logger.Debug("placeholder store loaded", "dir", dir, "keys", len(v.AllKeys()))
	return r, nil
}

func hasConfigExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Lookup returns the bound value of key.
func (r *Resolver) Lookup(key string) (string, bool) {
	if r == nil || r.v == nil || !r.v.IsSet(key) {
		return "", false
	}
	return r.v.GetString(key), true
}

// Resolve replaces each ${key} with its bound value. Unbound placeholders are
// kept as literal text, except that an input consisting of exactly one
// unbound placeholder resolves to "".
func (r *Resolver) Resolve(raw string) string {
	if raw == "" || !strings.Contains(raw, "${") {
		return raw
	}
	if r == nil || r.v == nil {
		r.unavailable()
		return raw
	}

	if m := pattern.FindStringSubmatchIndex(raw); m != nil && m[0] == 0 && m[1] == len(raw) {
		if val, ok := r.Lookup(raw[m[2]:m[3]]); ok {
			return val
		}
		return ""
	}
	return pattern.ReplaceAllStringFunc(raw, func(token string) string {
		if val, ok := r.Lookup(token[2 : len(token)-1]); ok {
			return val
		}
		return token
	})
}

// ResolveAll resolves each string, dropping those that resolve to "".
func (r *Resolver) ResolveAll(raw []string) []string {
	var out []string
	for _, s := range raw {
		if s = r.Resolve(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (r *Resolver) unavailable() {
	if r == nil {
		nilWarning.Do(func() {
			slog.Warn("placeholder store unavailable, leaving placeholders unresolved",
				"kind", "configuration_unavailable")
		})
		return
	}
	r.once.Do(func() {
		r.logger.Warn("placeholder store unavailable, leaving placeholders unresolved",
			"kind", "configuration_unavailable")
	})
}
