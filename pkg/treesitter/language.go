package treesitter

import (
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// LanguageFunc returns a grammar. Each grammar package exposes one.
type LanguageFunc func() *sitter.Language

var (
	mu       sync.RWMutex
	registry = map[string]LanguageFunc{
		"java": java.GetLanguage,
	}
)

// Register adds a grammar to the global registry, replacing any grammar
// registered under the same name.
func Register(name string, fn LanguageFunc) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = fn
}

// GetLanguage looks up a registered grammar by name.
func GetLanguage(name string) (LanguageFunc, bool) {
	mu.RLock()
	defer mu.RUnlock()
	fn, ok := registry[name]
	return fn, ok
}

// Languages returns the registered grammar names, sorted.
func Languages() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
