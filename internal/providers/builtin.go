package providers

import (
	"log/slog"

	"github.com/efebarandurmaz/flowgraph/internal/providers/factfile"
	"github.com/efebarandurmaz/flowgraph/internal/providers/java"
	"github.com/efebarandurmaz/flowgraph/internal/providers/javasrc"
	"github.com/efebarandurmaz/flowgraph/internal/providers/kafka"
	"github.com/efebarandurmaz/flowgraph/internal/providers/spring"
)

// Options configures the built-in providers.
type Options struct {
	// Workers bounds concurrent file parsing.
	Workers int
	// FactsFile enables the factfile provider when set.
	FactsFile string
	Logger    *slog.Logger
}

// Builtin returns the built-in providers in their fixed order: the Java base
// extractor, then Spring, Kafka and the optional facts file. The Java
// providers share one parsed view of the source tree.
func Builtin(opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loader := javasrc.NewLoader(opts.Workers, logger)

	r := NewRegistry()
	_ = r.Register(java.New(loader, logger))
	_ = r.Register(spring.New(loader, logger))
	_ = r.Register(kafka.New(loader, logger))
	if opts.FactsFile != "" {
		_ = r.Register(factfile.New(opts.FactsFile))
	}
	return r
}
