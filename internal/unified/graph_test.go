package unified

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestEdgeID(t *testing.T) {
	tests := []struct {
		typ     EdgeType
		ordinal int
		want    string
	}{
		{EdgeCall, 1, "e-call-1"},
		{EdgeBelongsTo, 3, "e-belongs_to-3"},
		{EdgeConsumes, 12, "e-consumes-12"},
	}
	for _, tt := range tests {
		if got := EdgeID(tt.typ, tt.ordinal); got != tt.want {
			t.Errorf("EdgeID(%s, %d) = %q, want %q", tt.typ, tt.ordinal, got, tt.want)
		}
	}
}

func TestBuilder_InsertFirstWins(t *testing.T) {
	b := NewBuilder("g1")
	first := Node{ID: "a", Type: NodeMethod, Name: "first"}
	first.Attrs.Set("visibility", "public")

	inserted, err := b.Insert(first)
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}
	inserted, err = b.Insert(Node{ID: "a", Type: NodeMethod, Name: "second"})
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Error("expected duplicate insert to be ignored")
	}

	g := b.Build()
	if g.NodeCount() != 1 {
		t.Fatalf("expected 1 node, got %d", g.NodeCount())
	}
	n, _ := g.Node("a")
	if n.Name != "first" {
		t.Errorf("expected first-seen name, got %q", n.Name)
	}
}

func TestBuilder_TypeConflict(t *testing.T) {
	b := NewBuilder("g1")
	if _, err := b.Insert(Node{ID: "x", Type: NodeClass}); err != nil {
		t.Fatal(err)
	}
	_, err := b.Insert(Node{ID: "x", Type: NodeService})
	if !errors.Is(err, ErrTypeConflict) {
		t.Fatalf("expected ErrTypeConflict, got %v", err)
	}
}

func TestBuilder_EdgeSequencesPerType(t *testing.T) {
	b := NewBuilder("g1")
	for _, id := range []string{"a", "b", "c"} {
		if _, err := b.Insert(Node{ID: id, Type: NodeMethod}); err != nil {
			t.Fatal(err)
		}
	}
	mustEdge := func(typ EdgeType, from, to string) Edge {
		t.Helper()
		e, err := b.AddEdge(typ, from, to)
		if err != nil {
			t.Fatal(err)
		}
		return e
	}

	e1 := mustEdge(EdgeCall, "a", "b")
	e2 := mustEdge(EdgeDefines, "a", "c")
	e3 := mustEdge(EdgeCall, "b", "c")

	if e1.ID != "e-call-1" || e2.ID != "e-defines-1" || e3.ID != "e-call-2" {
		t.Errorf("unexpected ids: %s %s %s", e1.ID, e2.ID, e3.ID)
	}
	if !b.HasEdge(EdgeCall, "a", "b") || b.HasEdge(EdgeCall, "b", "a") {
		t.Error("HasEdge does not track direction")
	}
}

func TestBuilder_DanglingEdge(t *testing.T) {
	b := NewBuilder("g1")
	if _, err := b.Insert(Node{ID: "a", Type: NodeMethod}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddEdge(EdgeCall, "a", "missing"); !errors.Is(err, ErrDanglingEdge) {
		t.Fatalf("expected ErrDanglingEdge, got %v", err)
	}
	if g := b.Build(); g.EdgeCount() != 0 {
		t.Errorf("dangling edge must not be stored")
	}
}

func TestGraph_AccessorsReturnCopies(t *testing.T) {
	n := Node{ID: "endpoint:GET /a", Type: NodeEndpoint, Name: "GET /a"}
	n.Attrs.Set("path", "/a")
	n.Attrs.Set("produces", []string{"application/json"})

	b := NewBuilder("g")
	if _, err := b.Insert(n); err != nil {
		t.Fatal(err)
	}
	n.Attrs.Set("path", "/changed")
	g := b.Build()

	got, _ := g.Node(n.ID)
	got.Attrs.Set("path", "/b")
	got.Attrs.Set("extra", "x")
	v, _ := got.Attrs.Get("produces")
	v.([]string)[0] = "text/plain"

	listed := g.Nodes()[0]
	listed.Attrs.Set("other", "y")
	g.NodesOfType(NodeEndpoint)[0].Attrs.Set("more", "z")

	stored, _ := g.Node(n.ID)
	if stored.Attrs.String("path") != "/a" {
		t.Errorf("path = %q, want /a", stored.Attrs.String("path"))
	}
	if keys := strings.Join(stored.Attrs.Keys(), ","); keys != "path,produces" {
		t.Errorf("keys = %q", keys)
	}
	for _, k := range []string{"extra", "other", "more"} {
		if _, ok := stored.Attrs.Get(k); ok {
			t.Errorf("attribute %q leaked into the graph", k)
		}
	}
	if p, _ := stored.Attrs.Get("produces"); p.([]string)[0] != "application/json" {
		t.Errorf("produces = %v", p)
	}
}

func TestAttributes_OrderAndEmptyValues(t *testing.T) {
	var a Attributes
	a.Set("visibility", "public")
	a.Set("moduleName", "")
	a.Set("produces", []string{})
	a.Set("className", "com.x.A")
	a.Set("visibility", "private")

	if got := strings.Join(a.Keys(), ","); got != "visibility,className" {
		t.Errorf("keys = %q", got)
	}
	if a.String("visibility") != "private" {
		t.Errorf("expected overwritten value to keep position")
	}

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"visibility":"private","className":"com.x.A"}` {
		t.Errorf("unexpected JSON %s", data)
	}
}

func TestGraph_JSONRoundTripKeepsOrder(t *testing.T) {
	b := NewBuilder("proj")
	ep := Node{ID: "endpoint:GET /a", Type: NodeEndpoint, Name: "GET /a"}
	ep.Attrs.Set("path", "/a")
	ep.Attrs.Set("httpMethod", "GET")
	ep.Attrs.Set("produces", []string{"application/json"})
	for _, n := range []Node{ep, {ID: "c#m", Type: NodeMethod, Name: "c.m"}} {
		if _, err := b.Insert(n); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := b.AddEdge(EdgeHandles, "endpoint:GET /a", "c#m"); err != nil {
		t.Fatal(err)
	}
	g := b.Build()

	data, err := json.Marshal(g)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Graph
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID() != "proj" || decoded.NodeCount() != 2 || decoded.EdgeCount() != 1 {
		t.Fatalf("decoded graph mismatch: %s", data)
	}
	got, ok := decoded.Node("endpoint:GET /a")
	if !ok {
		t.Fatal("endpoint node missing after decode")
	}
	if strings.Join(got.Attrs.Keys(), ",") != "path,httpMethod,produces" {
		t.Errorf("attribute order lost: %v", got.Attrs.Keys())
	}
	if !got.Attrs.Equal(ep.Attrs) {
		t.Errorf("attributes differ after round trip")
	}
}

func TestGraph_UnmarshalRejectsDanglingEdge(t *testing.T) {
	data := `{"graphId":"g","nodes":[{"id":"a","type":"METHOD","name":"a","data":{}}],"edges":[{"id":"e-call-1","from":"a","to":"b","type":"CALL"}]}`
	var g Graph
	if err := json.Unmarshal([]byte(data), &g); !errors.Is(err, ErrDanglingEdge) {
		t.Fatalf("expected ErrDanglingEdge, got %v", err)
	}
}
