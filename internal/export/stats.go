package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/efebarandurmaz/flowgraph/internal/unified"
)

// Stats holds computed metrics about a unified graph.
type Stats struct {
	GraphID             string         `json:"graph_id"`
	TotalNodes          int            `json:"total_nodes"`
	TotalEdges          int            `json:"total_edges"`
	NodesByType         map[string]int `json:"nodes_by_type"`
	EdgesByType         map[string]int `json:"edges_by_type"`
	MaxFanOut           int            `json:"max_fan_out"`
	MaxFanIn            int            `json:"max_fan_in"`
	HotspotNode         string         `json:"hotspot_node"`
	ConnectedComponents int            `json:"connected_components"`
	OrphanMethods       []string       `json:"orphan_methods,omitempty"`
	ServiceDeps         []ServiceDep   `json:"service_deps,omitempty"`
	CyclicDeps          [][]string     `json:"cyclic_deps,omitempty"`
}

// ServiceDep counts cross-service CALL edges between two services.
type ServiceDep struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Calls int    `json:"calls"`
}

// flowEdges are the edge types that carry control or data flow; DEFINES and
// BELONGS_TO only describe structure.
var flowEdges = []unified.EdgeType{
	unified.EdgeCall, unified.EdgeHandles, unified.EdgeProduces, unified.EdgeConsumes,
}

// ComputeStats computes graph metrics. Fan-in and fan-out only count flow
// edges; ties for the hotspot go to the node inserted first.
func ComputeStats(g *unified.Graph) Stats {
	s := Stats{
		GraphID:     g.ID(),
		TotalNodes:  g.NodeCount(),
		TotalEdges:  g.EdgeCount(),
		NodesByType: make(map[string]int),
		EdgesByType: make(map[string]int),
	}

	fanOut := make(map[string]int)
	fanIn := make(map[string]int)
	for _, e := range g.Edges() {
		s.EdgesByType[string(e.Type)]++
		if isFlow(e.Type) {
			fanOut[e.From]++
			fanIn[e.To]++
		}
	}

	for _, n := range g.Nodes() {
		s.NodesByType[string(n.Type)]++
		if fanOut[n.ID] > s.MaxFanOut {
			s.MaxFanOut = fanOut[n.ID]
			s.HotspotNode = n.ID
		}
		if fanIn[n.ID] > s.MaxFanIn {
			s.MaxFanIn = fanIn[n.ID]
		}
		if n.Type.IsMethod() && fanIn[n.ID] == 0 && fanOut[n.ID] == 0 {
			s.OrphanMethods = append(s.OrphanMethods, n.ID)
		}
	}

	s.ConnectedComponents = countComponents(g)
	s.ServiceDeps = serviceDependencies(g)
	s.CyclicDeps = detectCycles(s.ServiceDeps)
	return s
}

func isFlow(t unified.EdgeType) bool {
	for _, f := range flowEdges {
		if t == f {
			return true
		}
	}
	return false
}

// serviceDependencies lifts CALL edges to the services of both ends.
func serviceDependencies(g *unified.Graph) []ServiceDep {
	serviceOf := ServiceOf(g)
	counts := make(map[[2]string]int)
	var order [][2]string
	for _, e := range g.EdgesOfType(unified.EdgeCall) {
		from, to := serviceOf[e.From], serviceOf[e.To]
		if from == "" || to == "" || from == to {
			continue
		}
		key := [2]string{from, to}
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
	}
	deps := make([]ServiceDep, 0, len(order))
	for _, k := range order {
		deps = append(deps, ServiceDep{From: k[0], To: k[1], Calls: counts[k]})
	}
	return deps
}

// countComponents counts weakly connected components via union-find.
func countComponents(g *unified.Graph) int {
	parent := make(map[string]string)
	var find func(string) string
	find = func(x string) string {
		if parent[x] == "" {
			parent[x] = x
		}
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b string) {
		fa, fb := find(a), find(b)
		if fa != fb {
			parent[fa] = fb
		}
	}

	for _, n := range g.Nodes() {
		find(n.ID)
	}
	for _, e := range g.Edges() {
		union(e.From, e.To)
	}

	roots := make(map[string]bool)
	for _, n := range g.Nodes() {
		roots[find(n.ID)] = true
	}
	return len(roots)
}

// detectCycles finds cycles in the service dependency graph using DFS.
func detectCycles(deps []ServiceDep) [][]string {
	adj := make(map[string][]string)
	services := make(map[string]bool)
	for _, d := range deps {
		adj[d.From] = append(adj[d.From], d.To)
		services[d.From] = true
		services[d.To] = true
	}

	var cycles [][]string
	visited := make(map[string]int) // 0=unvisited, 1=in-progress, 2=done
	path := make([]string, 0)

	var dfs func(node string)
	dfs = func(node string) {
		if visited[node] == 2 {
			return
		}
		if visited[node] == 1 {
			cycle := make([]string, 0)
			for i := len(path) - 1; i >= 0; i-- {
				cycle = append(cycle, path[i])
				if path[i] == node {
					break
				}
			}
			for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
				cycle[i], cycle[j] = cycle[j], cycle[i]
			}
			cycles = append(cycles, cycle)
			return
		}
		visited[node] = 1
		path = append(path, node)
		for _, next := range adj[node] {
			dfs(next)
		}
		path = path[:len(path)-1]
		visited[node] = 2
	}

	sorted := make([]string, 0, len(services))
	for s := range services {
		sorted = append(sorted, s)
	}
	sort.Strings(sorted)
	for _, s := range sorted {
		if visited[s] == 0 {
			dfs(s)
		}
	}
	return cycles
}

// FormatStats returns a human-readable summary of graph statistics.
func FormatStats(s Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Unified Graph Statistics (%s)\n", s.GraphID)
	b.WriteString("==========================\n\n")
	fmt.Fprintf(&b, "Nodes:       %d total\n", s.TotalNodes)
	for _, t := range unified.NodeTypes {
		if c := s.NodesByType[string(t)]; c > 0 {
			fmt.Fprintf(&b, "  %-15s %d\n", t, c)
		}
	}
	fmt.Fprintf(&b, "Edges:       %d total\n", s.TotalEdges)
	for _, t := range unified.EdgeTypes {
		if c := s.EdgesByType[string(t)]; c > 0 {
			fmt.Fprintf(&b, "  %-15s %d\n", t, c)
		}
	}
	fmt.Fprintf(&b, "Max Fan-Out: %d (%s)\n", s.MaxFanOut, s.HotspotNode)
	fmt.Fprintf(&b, "Max Fan-In:  %d\n", s.MaxFanIn)
	fmt.Fprintf(&b, "Components:  %d\n", s.ConnectedComponents)

	if len(s.OrphanMethods) > 0 {
		fmt.Fprintf(&b, "\nOrphan Methods: %d\n", len(s.OrphanMethods))
		for _, id := range s.OrphanMethods {
			fmt.Fprintf(&b, "  %s\n", id)
		}
	}

	if len(s.ServiceDeps) > 0 {
		b.WriteString("\nService Dependencies:\n")
		for _, d := range s.ServiceDeps {
			fmt.Fprintf(&b, "  %s -> %s: %d calls\n", d.From, d.To, d.Calls)
		}
	}

	if len(s.CyclicDeps) > 0 {
		fmt.Fprintf(&b, "\nCyclic Dependencies: %d\n", len(s.CyclicDeps))
		for i, cycle := range s.CyclicDeps {
			fmt.Fprintf(&b, "  %d: %s\n", i+1, strings.Join(cycle, " -> "))
		}
	}

	return b.String()
}
