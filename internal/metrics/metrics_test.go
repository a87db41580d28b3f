package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/efebarandurmaz/flowgraph/internal/assembler"
	"github.com/efebarandurmaz/flowgraph/internal/facts"
)

func sampleFacts() *facts.RawFactSet {
	fs := facts.New("orders")
	fs.Methods = []facts.RawMethod{
		{ClassName: "com.x.core.A", MethodName: "run", Signature: "run():void", PackageName: "com.x.core"},
	}
	fs.Topics = []facts.RawTopic{{Name: "orders"}, {Name: ""}}
	fs.Messaging = []facts.RawMessaging{
		{MethodRef: "com.x.core.A#run():void", TopicRef: "orders", Direction: facts.DirectionProduces},
	}
	return fs
}

func TestScanMetrics_Collect(t *testing.T) {
	fs := sampleFacts()
	res, err := assembler.New(assembler.Options{}).Build(context.Background(), fs)
	if err != nil {
		t.Fatal(err)
	}

	m := New("orders")
	m.AddProvider("java", 5*time.Millisecond, 1, nil)
	m.AddProvider("kafka", time.Millisecond, 0, errors.New("boom"))
	m.CollectFacts(fs)
	m.CollectAssembly(res)
	m.Finish()

	if m.Facts.Total != 4 || m.Facts.Topics != 2 {
		t.Errorf("facts = %+v", m.Facts)
	}
	if len(m.Stages) != len(assembler.Stages) {
		t.Errorf("expected %d stages, got %d", len(assembler.Stages), len(m.Stages))
	}
	if m.Diagnostics["malformed_fact"] != 1 {
		t.Errorf("diagnostics = %v", m.Diagnostics)
	}
	if m.Graph.NodesByType["TOPIC"] != 1 || m.Graph.EdgesByType["PRODUCES"] != 1 {
		t.Errorf("graph = %+v", m.Graph)
	}
	if m.Providers[1].Error != "boom" {
		t.Errorf("provider error not recorded: %+v", m.Providers[1])
	}
	if m.FinishedAt.Before(m.StartedAt) {
		t.Error("finish before start")
	}
}

func TestScanMetrics_SummaryAndJSON(t *testing.T) {
	m := New("orders")
	m.AddProvider("java", time.Millisecond, 3, nil)
	m.CollectFacts(sampleFacts())
	m.Diagnostics = map[string]int{"ambiguous_reference": 2}
	m.Finish()

	var buf bytes.Buffer
	m.PrintSummary(&buf)
	out := buf.String()
	for _, want := range []string{"FLOWGRAPH SCAN REPORT", "java", "ambiguous_reference"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q", want)
		}
	}

	buf.Reset()
	if err := m.WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["project_id"] != "orders" {
		t.Errorf("project_id = %v", decoded["project_id"])
	}
}
