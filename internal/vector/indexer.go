package vector

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/efebarandurmaz/flowgraph/internal/unified"
)

// DefaultDimension is the embedding size used when none is configured.
const DefaultDimension = 256

// pointNamespace scopes point ids so the same node id in different graphs
// gets different points.
var pointNamespace = uuid.MustParse("6f1c7a52-4a8e-4f0e-9a53-0f2c8d1b7e41")

// Indexer embeds graph nodes with feature hashing and stores them in a
// Repository. The embedding is deterministic and needs no model.
type Indexer struct {
	repo      Repository
	dimension int
	batchSize int
}

// NewIndexer creates an Indexer. A non-positive dimension selects DefaultDimension.
func NewIndexer(repo Repository, dimension int) *Indexer {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Indexer{repo: repo, dimension: dimension, batchSize: 128}
}

// Dimension returns the embedding size.
func (ix *Indexer) Dimension() int { return ix.dimension }

// PointID returns the stable point id of a node: a name-based (v5) UUID of
// the graph id and node id.
func PointID(graphID, nodeID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(graphID+"\x00"+nodeID)).String()
}

// NodeText is the text embedded for a node: its type, name, id and
// attribute values.
func NodeText(n unified.Node) string {
	parts := []string{string(n.Type), n.Name, n.ID}
	for _, k := range n.Attrs.Keys() {
		switch v, _ := n.Attrs.Get(k); tv := v.(type) {
		case string:
			parts = append(parts, tv)
		case []string:
			parts = append(parts, tv...)
		}
	}
	return strings.Join(parts, " ")
}

// IndexGraph upserts one document per node and returns the number indexed.
func (ix *Indexer) IndexGraph(ctx context.Context, g *unified.Graph) (int, error) {
	nodes := g.Nodes()
	for start := 0; start < len(nodes); start += ix.batchSize {
		end := min(start+ix.batchSize, len(nodes))
		docs := make([]Document, 0, end-start)
		for _, n := range nodes[start:end] {
			docs = append(docs, Document{
				PointID:  PointID(g.ID(), n.ID),
				GraphID:  g.ID(),
				NodeID:   n.ID,
				NodeType: string(n.Type),
				Name:     n.Name,
				Vector:   ix.Embed(NodeText(n)),
			})
		}
		if err := ix.repo.Upsert(ctx, docs); err != nil {
			return start, fmt.Errorf("upserting nodes %d-%d: %w", start, end, err)
		}
	}
	return len(nodes), nil
}

// Search embeds query and returns the k closest nodes.
func (ix *Indexer) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		k = 10
	}
	return ix.repo.Search(ctx, ix.Embed(query), k)
}

// Embed hashes the tokens of text into a unit-length vector. Each token
// adds ±1 at a bucket chosen by its FNV-1a hash; the sign comes from a
// second hash bit so collisions tend to cancel.
func (ix *Indexer) Embed(text string) []float32 {
	vec := make([]float32, ix.dimension)
	for _, tok := range Tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(ix.dimension))
		if sum>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

// Tokenize splits text into lower-case words at punctuation and camelCase
// boundaries: "OrderService.placeOrder" gives order, service, place, order.
func Tokenize(text string) []string {
	var tokens []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(text)
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if unicode.IsUpper(r) && len(cur) > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					flush()
				}
			}
			cur = append(cur, r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}
