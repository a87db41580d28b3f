// Package graph persists unified graphs in a graph database.
package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/efebarandurmaz/flowgraph/internal/unified"
)

// Repository provides graph storage for unified graphs.
type Repository interface {
	// StoreGraph persists the entire graph under its id, replacing nodes and
	// relationships with the same ids.
	StoreGraph(ctx context.Context, g *unified.Graph) error
	// Callees returns the ids of the methods methodID calls, sorted.
	Callees(ctx context.Context, graphID, methodID string) ([]string, error)
	// Close releases resources.
	Close(ctx context.Context) error
}

// MemoryRepository keeps graphs in process. It backs tests and dry runs.
type MemoryRepository struct {
	mu     sync.RWMutex
	graphs map[string]*unified.Graph
}

// NewMemory creates an empty in-process repository.
func NewMemory() *MemoryRepository {
	return &MemoryRepository{graphs: make(map[string]*unified.Graph)}
}

func (r *MemoryRepository) StoreGraph(_ context.Context, g *unified.Graph) error {
	if g == nil {
		return fmt.Errorf("store graph: nil graph")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graphs[g.ID()] = g
	return nil
}

// Graph returns a stored graph.
func (r *MemoryRepository) Graph(graphID string) (*unified.Graph, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.graphs[graphID]
	return g, ok
}

func (r *MemoryRepository) Callees(_ context.Context, graphID, methodID string) ([]string, error) {
	r.mu.RLock()
	g, ok := r.graphs[graphID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("graph %q not stored", graphID)
	}
	var out []string
	for _, e := range g.Outgoing(methodID, unified.EdgeCall) {
		out = append(out, e.To)
	}
	sort.Strings(out)
	return out, nil
}

func (r *MemoryRepository) Close(context.Context) error { return nil }

var _ Repository = (*MemoryRepository)(nil)
