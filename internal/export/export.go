// Package export renders unified graphs as JSON, Graphviz DOT and Mermaid,
// and computes summary statistics.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/efebarandurmaz/flowgraph/internal/unified"
)

// Supported output formats.
const (
	FormatJSON    = "json"
	FormatDOT     = "dot"
	FormatMermaid = "mermaid"
)

// Formats lists the supported output formats.
var Formats = []string{FormatJSON, FormatDOT, FormatMermaid}

// JSON serializes the graph as indented JSON. Node attributes keep their
// insertion order and empty attributes are omitted.
func JSON(g *unified.Graph) ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

// DecodeJSON reads a graph written by JSON.
func DecodeJSON(data []byte) (*unified.Graph, error) {
	var g unified.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decoding graph: %w", err)
	}
	return &g, nil
}

// Write renders g in the named format.
func Write(w io.Writer, g *unified.Graph, format string) error {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		data, err := JSON(g)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case FormatDOT:
		_, err := io.WriteString(w, DOT(g))
		return err
	case FormatMermaid:
		_, err := io.WriteString(w, Mermaid(g))
		return err
	default:
		return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// clusters groups class and method ids by the service they belong to, in
// service insertion order. Nodes outside any service are returned separately.
func clusters(g *unified.Graph) ([]unified.Node, map[string][]unified.Node, []unified.Node) {
	serviceOf := ServiceOf(g)
	services := g.NodesOfType(unified.NodeService)
	members := make(map[string][]unified.Node)
	var loose []unified.Node
	for _, n := range g.Nodes() {
		if n.Type == unified.NodeService {
			continue
		}
		if svc, ok := serviceOf[n.ID]; ok {
			members[svc] = append(members[svc], n)
			continue
		}
		loose = append(loose, n)
	}
	return services, members, loose
}

// ServiceOf maps class ids (via BELONGS_TO) and method ids (via DEFINES to a
// class) to their service id.
func ServiceOf(g *unified.Graph) map[string]string {
	out := make(map[string]string)
	for _, e := range g.EdgesOfType(unified.EdgeBelongsTo) {
		out[e.From] = e.To
	}
	for _, e := range g.EdgesOfType(unified.EdgeDefines) {
		if svc, ok := out[e.To]; ok {
			out[e.From] = svc
		}
	}
	return out
}

// DOT generates a Graphviz representation with one cluster per service.
func DOT(g *unified.Graph) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %s {\n", dotQuote(g.ID()))
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\" fontsize=10];\n\n")

	services, members, loose := clusters(g)
	for i, svc := range services {
		fmt.Fprintf(&b, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&b, "    label=%s;\n", dotQuote(svc.Name))
		b.WriteString("    style=dashed;\n")
		b.WriteString("    color=\"#58a6ff\";\n")
		writeDOTNode(&b, "    ", svc)
		for _, n := range members[svc.ID] {
			writeDOTNode(&b, "    ", n)
		}
		b.WriteString("  }\n\n")
	}
	for _, n := range loose {
		writeDOTNode(&b, "  ", n)
	}
	if len(loose) > 0 {
		b.WriteString("\n")
	}

	for _, e := range g.Edges() {
		fmt.Fprintf(&b, "  %s -> %s [label=%s style=%s color=\"%s\"];\n",
			dotQuote(e.From), dotQuote(e.To), dotQuote(strings.ToLower(string(e.Type))),
			edgeStyle(e.Type), edgeColor(e.Type))
	}

	b.WriteString("}\n")
	return b.String()
}

func writeDOTNode(b *strings.Builder, indent string, n unified.Node) {
	fmt.Fprintf(b, "%s%s [label=%s shape=%s style=filled fillcolor=\"%s\"];\n",
		indent, dotQuote(n.ID), dotQuote(n.Name), nodeShape(n.Type), nodeColor(n.Type))
}

func dotQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

// Mermaid generates a Mermaid flowchart with one subgraph per service.
func Mermaid(g *unified.Graph) string {
	var b strings.Builder
	b.WriteString("graph LR\n")

	ids := make(map[string]string, g.NodeCount())
	for i, n := range g.Nodes() {
		ids[n.ID] = fmt.Sprintf("n%d", i)
	}

	services, members, loose := clusters(g)
	for i, svc := range services {
		fmt.Fprintf(&b, "  subgraph svc%d [\"%s\"]\n", i, mermaidEscape(svc.Name))
		fmt.Fprintf(&b, "    %s%s\n", ids[svc.ID], mermaidNodeShape(svc))
		for _, n := range members[svc.ID] {
			fmt.Fprintf(&b, "    %s%s\n", ids[n.ID], mermaidNodeShape(n))
		}
		b.WriteString("  end\n")
	}
	for _, n := range loose {
		fmt.Fprintf(&b, "  %s%s\n", ids[n.ID], mermaidNodeShape(n))
	}

	for _, e := range g.Edges() {
		fmt.Fprintf(&b, "  %s %s|%s| %s\n",
			ids[e.From], mermaidArrow(e.Type), strings.ToLower(string(e.Type)), ids[e.To])
	}
	return b.String()
}

func mermaidEscape(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

func nodeShape(t unified.NodeType) string {
	switch t {
	case unified.NodeService:
		return "box3d"
	case unified.NodeClass:
		return "component"
	case unified.NodeMethod, unified.NodePrivateMethod:
		return "box"
	case unified.NodeEndpoint:
		return "hexagon"
	case unified.NodeTopic:
		return "cds"
	default:
		return "box"
	}
}

func nodeColor(t unified.NodeType) string {
	switch t {
	case unified.NodeService:
		return "#1f6feb"
	case unified.NodeClass:
		return "#8957e5"
	case unified.NodeMethod:
		return "#238636"
	case unified.NodePrivateMethod:
		return "#6e7681"
	case unified.NodeEndpoint:
		return "#d29922"
	case unified.NodeTopic:
		return "#f85149"
	default:
		return "#30363d"
	}
}

func edgeStyle(t unified.EdgeType) string {
	switch t {
	case unified.EdgeDefines, unified.EdgeBelongsTo:
		return "dashed"
	case unified.EdgeProduces, unified.EdgeConsumes:
		return "bold"
	default:
		return "solid"
	}
}

func edgeColor(t unified.EdgeType) string {
	switch t {
	case unified.EdgeCall:
		return "#3fb950"
	case unified.EdgeHandles:
		return "#d29922"
	case unified.EdgeProduces, unified.EdgeConsumes:
		return "#f85149"
	case unified.EdgeDefines, unified.EdgeBelongsTo:
		return "#8b949e"
	default:
		return "#c9d1d9"
	}
}

func mermaidNodeShape(n unified.Node) string {
	label := mermaidEscape(n.Name)
	switch n.Type {
	case unified.NodeService:
		return fmt.Sprintf("[[\"%s\"]]", label)
	case unified.NodeClass:
		return fmt.Sprintf("([\"%s\"])", label)
	case unified.NodeEndpoint:
		return fmt.Sprintf("{{\"%s\"}}", label)
	case unified.NodeTopic:
		return fmt.Sprintf("[/\"%s\"/]", label)
	default:
		return fmt.Sprintf("[\"%s\"]", label)
	}
}

func mermaidArrow(t unified.EdgeType) string {
	switch t {
	case unified.EdgeDefines, unified.EdgeBelongsTo:
		return "-.->"
	case unified.EdgeProduces, unified.EdgeConsumes:
		return "==>"
	default:
		return "-->"
	}
}
