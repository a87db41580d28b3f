package unified

import "fmt"

// Builder constructs a Graph. It owns the graph and its edge sequences until
// Build is called; it is not safe for concurrent use.
type Builder struct {
	g     *Graph
	seq   map[EdgeType]int
	edges map[edgeKey]struct{}
}

type edgeKey struct {
	t        EdgeType
	from, to string
}

// NewBuilder starts a graph with the given id.
func NewBuilder(graphID string) *Builder {
	return &Builder{
		g: &Graph{
			id:    graphID,
			index: make(map[string]int),
		},
		seq:   make(map[EdgeType]int),
		edges: make(map[edgeKey]struct{}),
	}
}

// Insert appends n unless a node with the same id exists. It reports whether
// n was inserted. An existing node of another type yields ErrTypeConflict;
// an existing node of the same type is kept as is (first insert wins).
// The graph keeps its own copy of n's attributes.
func (b *Builder) Insert(n Node) (bool, error) {
	if n.ID == "" {
		return false, ErrEmptyID
	}
	if i, ok := b.g.index[n.ID]; ok {
		if existing := b.g.nodes[i].Type; existing != n.Type {
			return false, fmt.Errorf("%w: %q is %s, not %s", ErrTypeConflict, n.ID, existing, n.Type)
		}
		return false, nil
	}
	b.g.index[n.ID] = len(b.g.nodes)
	b.g.nodes = append(b.g.nodes, n.clone())
	return true, nil
}

// Has reports whether a node with the id exists.
func (b *Builder) Has(id string) bool {
	_, ok := b.g.index[id]
	return ok
}

// Lookup returns the node with the id.
func (b *Builder) Lookup(id string) (Node, bool) {
	return b.g.Node(id)
}

// AddEdge appends an edge and returns it. Both endpoints must already exist.
func (b *Builder) AddEdge(t EdgeType, from, to string) (Edge, error) {
	if from == "" || to == "" {
		return Edge{}, ErrEmptyID
	}
	for _, id := range []string{from, to} {
		if !b.Has(id) {
			return Edge{}, fmt.Errorf("%w: %q", ErrDanglingEdge, id)
		}
	}
	b.seq[t]++
	e := Edge{ID: EdgeID(t, b.seq[t]), From: from, To: to, Type: t}
	b.g.edges = append(b.g.edges, e)
	b.edges[edgeKey{t: t, from: from, to: to}] = struct{}{}
	return e, nil
}

// HasEdge reports whether an edge of type t already links from and to.
func (b *Builder) HasEdge(t EdgeType, from, to string) bool {
	_, ok := b.edges[edgeKey{t: t, from: from, to: to}]
	return ok
}

// Build finishes construction. The builder must not be used afterwards.
func (b *Builder) Build() *Graph {
	g := b.g
	b.g = nil
	return g
}
