// Package unified holds the unified architecture graph: an insertion-ordered
// node arena with an id index, and insertion-ordered edges whose ids are
// derived from their type and ordinal.
package unified

import (
	"errors"
	"fmt"
	"strings"
)

// NodeType classifies graph nodes.
type NodeType string

const (
	NodeMethod        NodeType = "METHOD"
	NodePrivateMethod NodeType = "PRIVATE_METHOD"
	NodeEndpoint      NodeType = "ENDPOINT"
	NodeTopic         NodeType = "TOPIC"
	NodeClass         NodeType = "CLASS"
	NodeService       NodeType = "SERVICE"
)

// IsMethod reports whether t is METHOD or PRIVATE_METHOD.
func (t NodeType) IsMethod() bool {
	return t == NodeMethod || t == NodePrivateMethod
}

// EdgeType classifies relationships.
type EdgeType string

const (
	EdgeCall      EdgeType = "CALL"
	EdgeHandles   EdgeType = "HANDLES"
	EdgeProduces  EdgeType = "PRODUCES"
	EdgeConsumes  EdgeType = "CONSUMES"
	EdgeDefines   EdgeType = "DEFINES"
	EdgeBelongsTo EdgeType = "BELONGS_TO"
)

// NodeTypes lists every node type in a stable order.
var NodeTypes = []NodeType{NodeMethod, NodePrivateMethod, NodeEndpoint, NodeTopic, NodeClass, NodeService}

// EdgeTypes lists every edge type in a stable order.
var EdgeTypes = []EdgeType{EdgeCall, EdgeHandles, EdgeProduces, EdgeConsumes, EdgeDefines, EdgeBelongsTo}

var (
	// ErrTypeConflict is returned when an id is already bound to another node type.
	ErrTypeConflict = errors.New("node id bound to a different type")
	// ErrDanglingEdge is returned when an edge endpoint has no node.
	ErrDanglingEdge = errors.New("edge references unknown node")
	// ErrEmptyID is returned for nodes or edge endpoints without an id.
	ErrEmptyID = errors.New("empty id")
)

// Node is a vertex of the unified graph.
type Node struct {
	ID    string     `json:"id"`
	Type  NodeType   `json:"type"`
	Name  string     `json:"name"`
	Attrs Attributes `json:"data"`
}

// clone copies n so callers cannot reach the graph's attribute storage.
func (n Node) clone() Node {
	n.Attrs = n.Attrs.Clone()
	return n
}

// Edge is a directed relationship between two node ids.
type Edge struct {
	ID   string   `json:"id"`
	From string   `json:"from"`
	To   string   `json:"to"`
	Type EdgeType `json:"type"`
}

// EdgeID returns the deterministic id of the n-th edge (1-based) of a type.
func EdgeID(t EdgeType, ordinal int) string {
	return fmt.Sprintf("e-%s-%d", strings.ToLower(string(t)), ordinal)
}

// Graph is a finished unified graph. It exposes read accessors only.
type Graph struct {
	id    string
	nodes []Node
	edges []Edge
	index map[string]int
}

// ID returns the graph id.
func (g *Graph) ID() string { return g.id }

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.clone()
	}
	return out
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Node looks a node up by id.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i].clone(), true
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// NodesOfType returns the nodes of type t in insertion order.
func (g *Graph) NodesOfType(t NodeType) []Node {
	var out []Node
	for _, n := range g.nodes {
		if n.Type == t {
			out = append(out, n.clone())
		}
	}
	return out
}

// EdgesOfType returns the edges of type t in insertion order.
func (g *Graph) EdgesOfType(t EdgeType) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Outgoing returns the edges leaving id, optionally filtered by type.
func (g *Graph) Outgoing(id string, types ...EdgeType) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.From == id && matchesType(e.Type, types) {
			out = append(out, e)
		}
	}
	return out
}

// Incoming returns the edges entering id, optionally filtered by type.
func (g *Graph) Incoming(id string, types ...EdgeType) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.To == id && matchesType(e.Type, types) {
			out = append(out, e)
		}
	}
	return out
}

func matchesType(t EdgeType, types []EdgeType) bool {
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}
