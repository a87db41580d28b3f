// Package providers composes fact providers: the Java base extractor and the
// enrichment providers run in a fixed, registered order.
package providers

import (
	"context"

	"github.com/efebarandurmaz/flowgraph/internal/facts"
	"github.com/efebarandurmaz/flowgraph/internal/placeholder"
)

// Provider contributes raw facts about a source tree.
type Provider interface {
	// Name returns the provider identifier (e.g. "spring").
	Name() string
	// ContributeFacts scans sourceRoot and returns the facts it found.
	// props resolves ${key} placeholders in string values; it may be nil.
	ContributeFacts(ctx context.Context, sourceRoot string, props *placeholder.Resolver) (*facts.RawFactSet, error)
}

// Describer is an optional interface for providers to explain what they
// contribute in `flowgraph providers` output.
type Describer interface {
	Description() string
}
