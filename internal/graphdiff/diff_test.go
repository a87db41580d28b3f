package graphdiff

import (
	"strings"
	"testing"

	"github.com/efebarandurmaz/flowgraph/internal/unified"
)

type nodeSpec struct {
	id    string
	typ   unified.NodeType
	name  string
	attrs [][2]string
}

type edgeSpec struct {
	typ      unified.EdgeType
	from, to string
}

func makeGraph(t *testing.T, id string, nodes []nodeSpec, edges []edgeSpec) *unified.Graph {
	t.Helper()
	b := unified.NewBuilder(id)
	for _, ns := range nodes {
		n := unified.Node{ID: ns.id, Type: ns.typ, Name: ns.name}
		for _, kv := range ns.attrs {
			n.Attrs.Set(kv[0], kv[1])
		}
		if _, err := b.Insert(n); err != nil {
			t.Fatal(err)
		}
	}
	for _, es := range edges {
		if _, err := b.AddEdge(es.typ, es.from, es.to); err != nil {
			t.Fatal(err)
		}
	}
	return b.Build()
}

func TestCompare_Identical(t *testing.T) {
	nodes := []nodeSpec{
		{id: "a#x()", typ: unified.NodeMethod, name: "A.x", attrs: [][2]string{{"visibility", "public"}}},
		{id: "a#y()", typ: unified.NodeMethod, name: "A.y"},
	}
	edges := []edgeSpec{{unified.EdgeCall, "a#x()", "a#y()"}}
	d := Compare(makeGraph(t, "g1", nodes, edges), makeGraph(t, "g2", nodes, edges))

	if !d.Summary.Empty() {
		t.Errorf("expected empty diff, got %+v", d.Summary)
	}
	if !strings.Contains(FormatDiff(d), "No changes.") {
		t.Error("FormatDiff should report no changes")
	}
}

func TestCompare_Changes(t *testing.T) {
	old := makeGraph(t, "old",
		[]nodeSpec{
			{id: "a#x()", typ: unified.NodeMethod, name: "A.x", attrs: [][2]string{{"visibility", "public"}, {"moduleName", "m"}}},
			{id: "a#y()", typ: unified.NodeMethod, name: "A.y"},
			{id: "a#gone()", typ: unified.NodeMethod, name: "A.gone"},
		},
		[]edgeSpec{
			{unified.EdgeCall, "a#x()", "a#gone()"},
			{unified.EdgeCall, "a#x()", "a#y()"},
		})
	new := makeGraph(t, "new",
		[]nodeSpec{
			// Attribute order differs but values match for moduleName.
			{id: "a#x()", typ: unified.NodeMethod, name: "A.x", attrs: [][2]string{{"moduleName", "m"}, {"visibility", "private"}}},
			{id: "a#y()", typ: unified.NodePrivateMethod, name: "A.y"},
			{id: "topic:t", typ: unified.NodeTopic, name: "t"},
		},
		[]edgeSpec{
			{unified.EdgeCall, "a#x()", "a#y()"},
			{unified.EdgeProduces, "a#x()", "topic:t"},
		})

	d := Compare(old, new)

	want := DiffSummary{NodesAdded: 1, NodesRemoved: 1, NodesModified: 2, EdgesAdded: 1, EdgesRemoved: 1}
	if d.Summary != want {
		t.Fatalf("summary = %+v, want %+v", d.Summary, want)
	}

	byID := map[string]NodeDiff{}
	for _, nd := range d.Nodes {
		byID[nd.ID] = nd
	}
	if x := byID["a#x()"]; x.Type != DiffModified || strings.Join(x.Attrs, ",") != "visibility" {
		t.Errorf("a#x() diff = %+v", x)
	}
	if y := byID["a#y()"]; y.OldType != unified.NodeMethod || y.NewType != unified.NodePrivateMethod {
		t.Errorf("a#y() diff = %+v", y)
	}
	if byID["a#gone()"].Type != DiffRemoved || byID["topic:t"].Type != DiffAdded {
		t.Errorf("add/remove not detected: %+v", d.Nodes)
	}

	// Surviving CALL edge keeps matching even though its id shifted from 2 to 1.
	for _, ed := range d.Edges {
		if ed.From == "a#x()" && ed.To == "a#y()" {
			t.Errorf("unchanged edge reported: %+v", ed)
		}
	}

	out := FormatDiff(d)
	for _, s := range []string{"Nodes: +1 -1 ~2", "Edges: +1 -1", "- a#gone()", "[METHOD→PRIVATE_METHOD]", "+ PRODUCES a#x() -> topic:t"} {
		if !strings.Contains(out, s) {
			t.Errorf("FormatDiff missing %q\n%s", s, out)
		}
	}
}

func TestCompare_SortedOutput(t *testing.T) {
	old := makeGraph(t, "old", nil, nil)
	new := makeGraph(t, "new", []nodeSpec{
		{id: "c", typ: unified.NodeClass, name: "C"},
		{id: "a", typ: unified.NodeClass, name: "A"},
		{id: "b", typ: unified.NodeClass, name: "B"},
	}, []edgeSpec{
		{unified.EdgeDefines, "c", "a"},
		{unified.EdgeCall, "b", "a"},
		{unified.EdgeCall, "a", "b"},
	})
	d := Compare(old, new)

	var ids []string
	for _, nd := range d.Nodes {
		ids = append(ids, nd.ID)
	}
	if strings.Join(ids, ",") != "a,b,c" {
		t.Errorf("nodes not sorted: %v", ids)
	}
	var edges []string
	for _, ed := range d.Edges {
		edges = append(edges, string(ed.EdgeType)+":"+ed.From+">"+ed.To)
	}
	if strings.Join(edges, ",") != "CALL:a>b,CALL:b>a,DEFINES:c>a" {
		t.Errorf("edges not sorted: %v", edges)
	}
}
