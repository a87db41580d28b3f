package unified

import (
	"encoding/json"
	"fmt"
)

type graphJSON struct {
	GraphID string `json:"graphId"`
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"edges"`
}

// MarshalJSON renders the graph with nodes and edges in insertion order.
func (g *Graph) MarshalJSON() ([]byte, error) {
	out := graphJSON{GraphID: g.id, Nodes: g.nodes, Edges: g.edges}
	if out.Nodes == nil {
		out.Nodes = []Node{}
	}
	if out.Edges == nil {
		out.Edges = []Edge{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON rebuilds a graph, preserving order and the id index. Edge ids
// are taken from the input as is.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var in graphJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	b := NewBuilder(in.GraphID)
	for _, n := range in.Nodes {
		if _, err := b.Insert(n); err != nil {
			return fmt.Errorf("node %q: %w", n.ID, err)
		}
	}
	built := b.Build()
	for _, e := range in.Edges {
		for _, id := range []string{e.From, e.To} {
			if _, ok := built.index[id]; !ok {
				return fmt.Errorf("edge %q: %w: %q", e.ID, ErrDanglingEdge, id)
			}
		}
		built.edges = append(built.edges, e)
	}
	*g = *built
	return nil
}
