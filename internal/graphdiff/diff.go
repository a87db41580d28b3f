// Package graphdiff compares two unified graphs. Nodes are matched by id;
// edges by (type, from, to), since edge ids are ordinals and shift whenever
// an earlier edge of the same type appears or disappears.
package graphdiff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/efebarandurmaz/flowgraph/internal/unified"
)

// DiffType indicates the kind of change.
type DiffType string

const (
	DiffAdded    DiffType = "added"
	DiffRemoved  DiffType = "removed"
	DiffModified DiffType = "modified"
)

// GraphDiff is the complete diff between two graphs.
type GraphDiff struct {
	OldID   string      `json:"old_id"`
	NewID   string      `json:"new_id"`
	Nodes   []NodeDiff  `json:"nodes"`
	Edges   []EdgeDiff  `json:"edges"`
	Summary DiffSummary `json:"summary"`
}

// NodeDiff is a change to a single node.
type NodeDiff struct {
	ID      string           `json:"id"`
	Type    DiffType         `json:"type"`
	OldType unified.NodeType `json:"old_type,omitempty"`
	NewType unified.NodeType `json:"new_type,omitempty"`
	OldName string           `json:"old_name,omitempty"`
	NewName string           `json:"new_name,omitempty"`
	// Attrs lists the attribute keys whose values differ.
	Attrs []string `json:"attrs,omitempty"`
}

// EdgeDiff is an added or removed relationship.
type EdgeDiff struct {
	Type     DiffType         `json:"type"`
	EdgeType unified.EdgeType `json:"edge_type"`
	From     string           `json:"from"`
	To       string           `json:"to"`
}

// DiffSummary provides aggregate stats about the diff.
type DiffSummary struct {
	NodesAdded    int `json:"nodes_added"`
	NodesRemoved  int `json:"nodes_removed"`
	NodesModified int `json:"nodes_modified"`
	EdgesAdded    int `json:"edges_added"`
	EdgesRemoved  int `json:"edges_removed"`
}

// Empty reports whether the graphs are equivalent.
func (s DiffSummary) Empty() bool {
	return s == DiffSummary{}
}

// Compare computes the differences between two graphs.
func Compare(old, new *unified.Graph) *GraphDiff {
	d := &GraphDiff{
		OldID: old.ID(),
		NewID: new.ID(),
		Nodes: diffNodes(old, new),
		Edges: diffEdges(old, new),
	}
	d.Summary = computeSummary(d)
	return d
}

func diffNodes(old, new *unified.Graph) []NodeDiff {
	var diffs []NodeDiff

	for _, o := range old.Nodes() {
		n, ok := new.Node(o.ID)
		if !ok {
			diffs = append(diffs, NodeDiff{ID: o.ID, Type: DiffRemoved, OldType: o.Type, OldName: o.Name})
			continue
		}
		attrs := changedAttrs(o.Attrs, n.Attrs)
		if o.Type != n.Type || o.Name != n.Name || len(attrs) > 0 {
			diffs = append(diffs, NodeDiff{
				ID:      o.ID,
				Type:    DiffModified,
				OldType: o.Type,
				NewType: n.Type,
				OldName: o.Name,
				NewName: n.Name,
				Attrs:   attrs,
			})
		}
	}

	for _, n := range new.Nodes() {
		if _, ok := old.Node(n.ID); !ok {
			diffs = append(diffs, NodeDiff{ID: n.ID, Type: DiffAdded, NewType: n.Type, NewName: n.Name})
		}
	}

	sort.Slice(diffs, func(i, j int) bool {
		return diffs[i].ID < diffs[j].ID
	})
	return diffs
}

// changedAttrs returns the keys present on one side only or with different
// values, in sorted order. Key order alone is not a change.
func changedAttrs(a, b unified.Attributes) []string {
	keys := make(map[string]struct{})
	for _, k := range a.Keys() {
		keys[k] = struct{}{}
	}
	for _, k := range b.Keys() {
		keys[k] = struct{}{}
	}

	var changed []string
	for k := range keys {
		av, aok := a.Get(k)
		bv, bok := b.Get(k)
		if aok != bok || !sameValue(av, bv) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

func sameValue(a, b any) bool {
	ab, err1 := json.Marshal(a)
	bb, err2 := json.Marshal(b)
	return err1 == nil && err2 == nil && bytes.Equal(ab, bb)
}

type edgeKey struct {
	t        unified.EdgeType
	from, to string
}

func edgeSet(g *unified.Graph) map[edgeKey]struct{} {
	set := make(map[edgeKey]struct{}, g.EdgeCount())
	for _, e := range g.Edges() {
		set[edgeKey{e.Type, e.From, e.To}] = struct{}{}
	}
	return set
}

func diffEdges(old, new *unified.Graph) []EdgeDiff {
	oldSet, newSet := edgeSet(old), edgeSet(new)
	var diffs []EdgeDiff
	for k := range oldSet {
		if _, ok := newSet[k]; !ok {
			diffs = append(diffs, EdgeDiff{Type: DiffRemoved, EdgeType: k.t, From: k.from, To: k.to})
		}
	}
	for k := range newSet {
		if _, ok := oldSet[k]; !ok {
			diffs = append(diffs, EdgeDiff{Type: DiffAdded, EdgeType: k.t, From: k.from, To: k.to})
		}
	}
	sort.Slice(diffs, func(i, j int) bool {
		a, b := diffs[i], diffs[j]
		if a.EdgeType != b.EdgeType {
			return a.EdgeType < b.EdgeType
		}
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})
	return diffs
}

func computeSummary(d *GraphDiff) DiffSummary {
	var s DiffSummary
	for _, n := range d.Nodes {
		switch n.Type {
		case DiffAdded:
			s.NodesAdded++
		case DiffRemoved:
			s.NodesRemoved++
		case DiffModified:
			s.NodesModified++
		}
	}
	for _, e := range d.Edges {
		switch e.Type {
		case DiffAdded:
			s.EdgesAdded++
		case DiffRemoved:
			s.EdgesRemoved++
		}
	}
	return s
}

// FormatDiff renders a human-readable diff.
func FormatDiff(d *GraphDiff) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Diff: %s → %s\n", d.OldID, d.NewID)
	fmt.Fprintf(&sb, "Nodes: +%d -%d ~%d\n",
		d.Summary.NodesAdded, d.Summary.NodesRemoved, d.Summary.NodesModified)
	fmt.Fprintf(&sb, "Edges: +%d -%d\n", d.Summary.EdgesAdded, d.Summary.EdgesRemoved)

	if d.Summary.Empty() {
		sb.WriteString("\nNo changes.\n")
		return sb.String()
	}

	if len(d.Nodes) > 0 {
		sb.WriteString("\nNodes:\n")
		for _, nd := range d.Nodes {
			fmt.Fprintf(&sb, "  %s %s", icon(nd.Type), nd.ID)
			if nd.Type == DiffModified {
				if nd.OldType != nd.NewType {
					fmt.Fprintf(&sb, " [%s→%s]", nd.OldType, nd.NewType)
				}
				if nd.OldName != nd.NewName {
					fmt.Fprintf(&sb, " (name %q→%q)", nd.OldName, nd.NewName)
				}
				if len(nd.Attrs) > 0 {
					fmt.Fprintf(&sb, " attrs: %s", strings.Join(nd.Attrs, ", "))
				}
			}
			sb.WriteString("\n")
		}
	}

	if len(d.Edges) > 0 {
		sb.WriteString("\nEdges:\n")
		for _, ed := range d.Edges {
			fmt.Fprintf(&sb, "  %s %s %s -> %s\n", icon(ed.Type), ed.EdgeType, ed.From, ed.To)
		}
	}

	return sb.String()
}

func icon(t DiffType) string {
	switch t {
	case DiffAdded:
		return "+"
	case DiffRemoved:
		return "-"
	default:
		return "~"
	}
}
