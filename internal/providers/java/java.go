// Package java is the base extractor: it reports every method declared in a
// Java source tree and the calls between them that resolve inside the tree.
package java

import (
	"context"
	"log/slog"

	"github.com/efebarandurmaz/flowgraph/internal/facts"
	"github.com/efebarandurmaz/flowgraph/internal/normalize"
	"github.com/efebarandurmaz/flowgraph/internal/placeholder"
	"github.com/efebarandurmaz/flowgraph/internal/providers/javasrc"
)

// Name is the provider identifier.
const Name = "java"

// Provider extracts methods and calls.
type Provider struct {
	loader *javasrc.Loader
	logger *slog.Logger
}

// New creates the provider. Providers sharing loader parse each tree once.
func New(loader *javasrc.Loader, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{loader: loader, logger: logger}
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Description() string {
	return "methods and resolvable in-tree calls from Java sources"
}

// ContributeFacts implements providers.Provider. Placeholders play no role
// in method or call facts.
func (p *Provider) ContributeFacts(ctx context.Context, sourceRoot string, _ *placeholder.Resolver) (*facts.RawFactSet, error) {
	proj, err := p.loader.Load(ctx, sourceRoot)
	if err != nil {
		return nil, err
	}

	fs := facts.New("")
	for _, t := range proj.Types() {
		module := normalize.DeriveModule(t.Package)
		file := proj.RelPath(t.File)
		for _, m := range t.Methods {
			fs.Methods = append(fs.Methods, facts.RawMethod{
				ClassName:   t.FQN(),
				MethodName:  m.Name,
				Signature:   m.Signature(),
				Visibility:  m.Visibility,
				PackageName: t.Package,
				ModuleName:  module,
				Origin:      facts.Origin{Provider: Name, File: file, Line: m.Line},
			})
		}
	}

	var dropped int
	for _, t := range proj.Types() {
		file := proj.RelPath(t.File)
		for _, m := range t.Methods {
			from := javasrc.MethodRef(t, m)
			for _, c := range m.Calls {
				target, callee, ok := proj.ResolveCall(t, m, c)
				if !ok {
					dropped++
					p.logger.Debug("call not resolved", "from", from, "call", c.Name, "receiver", c.Receiver, "file", file, "line", c.Line)
					continue
				}
				fs.Calls = append(fs.Calls, facts.RawCall{
					FromRef: from,
					ToRef:   javasrc.MethodRef(target, callee),
					Origin:  facts.Origin{Provider: Name, File: file, Line: c.Line},
				})
			}
		}
	}
	p.logger.Debug("java facts extracted", "methods", len(fs.Methods), "calls", len(fs.Calls), "unresolved", dropped)
	return fs, nil
}
