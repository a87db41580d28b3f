package vector

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryRepository is a brute-force cosine similarity store.
type MemoryRepository struct {
	mu    sync.RWMutex
	docs  map[string]Document
	order []string
}

// NewMemory creates an empty in-process store.
func NewMemory() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string]Document)}
}

func (r *MemoryRepository) Upsert(_ context.Context, docs []Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range docs {
		if _, ok := r.docs[d.PointID]; !ok {
			r.order = append(r.order, d.PointID)
		}
		r.docs[d.PointID] = d
	}
	return nil
}

// Search ranks documents by cosine similarity; ties keep insertion order.
func (r *MemoryRepository) Search(_ context.Context, vec []float32, topK int) ([]SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	results := make([]SearchResult, 0, len(r.order))
	for _, id := range r.order {
		d := r.docs[id]
		results = append(results, SearchResult{
			PointID:  d.PointID,
			GraphID:  d.GraphID,
			NodeID:   d.NodeID,
			NodeType: d.NodeType,
			Name:     d.Name,
			Score:    cosine(vec, d.Vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK >= 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Len returns the number of stored documents.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

func (r *MemoryRepository) Close() error { return nil }

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

var _ Repository = (*MemoryRepository)(nil)
