package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/efebarandurmaz/flowgraph/internal/facts"
	"github.com/efebarandurmaz/flowgraph/internal/observability"
	"github.com/efebarandurmaz/flowgraph/internal/placeholder"
)

// Registry stores providers in registration order.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
	byName    map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Provider)}
}

// Register appends p. Names must be unique.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[p.Name()]; dup {
		return fmt.Errorf("provider %q already registered", p.Name())
	}
	r.byName[p.Name()] = p
	r.providers = append(r.providers, p)
	return nil
}

func (r *Registry) Provider(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("no provider named %q", name)
	}
	return p, nil
}

// Providers returns the registered providers in order.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Names returns the provider names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.providers))
	for i, p := range r.providers {
		out[i] = p.Name()
	}
	return out
}

// Select returns a registry holding only the named providers, in the order
// the names are given. An empty list selects everything.
func (r *Registry) Select(names []string) (*Registry, error) {
	if len(names) == 0 {
		sub := NewRegistry()
		for _, p := range r.Providers() {
			_ = sub.Register(p)
		}
		return sub, nil
	}
	sub := NewRegistry()
	for _, name := range names {
		p, err := r.Provider(name)
		if err != nil {
			return nil, err
		}
		if err := sub.Register(p); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// Report is the outcome of one provider run.
type Report struct {
	Provider string        `json:"provider"`
	Facts    int           `json:"facts"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Collect runs every provider in order and merges their facts. A failing
// provider is logged and its facts discarded; the others still run.
// Collect stops early only when ctx is cancelled.
func (r *Registry) Collect(ctx context.Context, projectID, sourceRoot string, props *placeholder.Resolver, logger *slog.Logger) (*facts.RawFactSet, []Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	merged := facts.New(projectID)
	var reports []Report

	for _, p := range r.Providers() {
		if err := ctx.Err(); err != nil {
			return nil, reports, err
		}
		pctx, span := observability.StartProviderSpan(ctx, p.Name())
		start := time.Now()

		fs, err := p.ContributeFacts(pctx, sourceRoot, props)
		rep := Report{Provider: p.Name(), Duration: time.Since(start), Err: err}
		if err != nil {
			observability.RecordError(span, err)
			logger.Warn("provider failed, facts discarded", "provider", p.Name(), "error", err)
		} else {
			rep.Facts = fs.Count()
			merged.Merge(fs)
			logger.Info("provider finished", "provider", p.Name(), "facts", rep.Facts, "duration", rep.Duration)
		}
		observability.RecordProviderResult(span, rep.Facts, rep.Duration)
		span.End()
		reports = append(reports, rep)
	}
	return merged, reports, nil
}
