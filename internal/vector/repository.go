// Package vector indexes unified graph nodes for similarity search.
package vector

import "context"

// Document is one graph node prepared for indexing. PointID is derived from
// GraphID and NodeID, so re-indexing a graph replaces its points.
type Document struct {
	PointID  string
	GraphID  string
	NodeID   string
	NodeType string
	Name     string
	Vector   []float32
}

// SearchResult is a node ranked by similarity to a query.
type SearchResult struct {
	PointID  string
	GraphID  string
	NodeID   string
	NodeType string
	Name     string
	Score    float32
}

// Repository stores node embeddings and answers nearest-neighbour queries.
type Repository interface {
	// Upsert inserts or replaces documents by PointID.
	Upsert(ctx context.Context, docs []Document) error
	// Search returns at most topK nodes, best match first.
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	Close() error
}
