package temporal

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"go.temporal.io/sdk/testsuite"

	"github.com/efebarandurmaz/flowgraph/internal/export"
	"github.com/efebarandurmaz/flowgraph/internal/graph"
	"github.com/efebarandurmaz/flowgraph/internal/vector"
)

const sample = "../providers/testdata/greens-order"

func testDeps() (*graph.MemoryRepository, *vector.MemoryRepository) {
	g := graph.NewMemory()
	v := vector.NewMemory()
	SetDependencies(&Dependencies{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Graph:   g,
		Indexer: vector.NewIndexer(v, 32),
	})
	return g, v
}

func TestSetDependencies(t *testing.T) {
	SetDependencies(nil)
	if deps == nil {
		t.Fatal("SetDependencies(nil) should install empty dependencies")
	}
	g, _ := testDeps()
	if deps.Graph != g {
		t.Error("SetDependencies did not set graph repository")
	}
}

func TestActivities_Chain(t *testing.T) {
	repo, vec := testDeps()
	ctx := context.Background()
	input := ScanInput{ProjectID: "greens", SourceRoot: sample, Workers: 2}

	collected, err := CollectFactsActivity(ctx, input)
	if err != nil {
		t.Fatalf("CollectFactsActivity: %v", err)
	}
	if collected.Facts == 0 || !strings.Contains(collected.FactsJSON, `"projectId":"greens"`) {
		t.Fatalf("unexpected facts: %d %s", collected.Facts, collected.FactsJSON)
	}

	assembled, err := AssembleActivity(ctx, input, collected.FactsJSON)
	if err != nil {
		t.Fatalf("AssembleActivity: %v", err)
	}
	if assembled.GraphID != "greens" || assembled.Nodes != 17 || assembled.Edges != 22 {
		t.Errorf("graph %s: %d nodes, %d edges", assembled.GraphID, assembled.Nodes, assembled.Edges)
	}
	if _, err := export.DecodeJSON([]byte(assembled.GraphJSON)); err != nil {
		t.Fatalf("graph JSON does not decode: %v", err)
	}

	locations, err := PublishActivity(ctx, assembled.GraphJSON)
	if err != nil {
		t.Fatalf("PublishActivity: %v", err)
	}
	if len(locations) != 2 {
		t.Errorf("locations = %v", locations)
	}
	callees, err := repo.Callees(ctx, "greens", "com.greens.order.web.OrderController#placeOrder(String):String")
	if err != nil || len(callees) != 1 {
		t.Errorf("callees = %v, %v", callees, err)
	}
	if vec.Len() != 17 {
		t.Errorf("indexed %d nodes", vec.Len())
	}
}

func TestAssembleActivity_BadJSON(t *testing.T) {
	testDeps()
	if _, err := AssembleActivity(context.Background(), ScanInput{}, "{"); err == nil {
		t.Error("expected error for malformed facts JSON")
	}
}

func TestCollectFactsActivity_MissingRoot(t *testing.T) {
	testDeps()
	if _, err := CollectFactsActivity(context.Background(), ScanInput{SourceRoot: t.TempDir() + "/missing"}); err == nil {
		t.Error("expected error for missing source root")
	}
}

func TestNewScanID(t *testing.T) {
	a, err := NewScanID()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewScanID()
	if !strings.HasPrefix(a, "scan-") || len(a) != len("scan-")+21 || a == b {
		t.Errorf("ids %q %q", a, b)
	}
}

func TestScanWorkflow(t *testing.T) {
	repo, _ := testDeps()

	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ScanWorkflow)
	env.RegisterActivity(CollectFactsActivity)
	env.RegisterActivity(AssembleActivity)
	env.RegisterActivity(PublishActivity)

	env.ExecuteWorkflow(ScanWorkflow, ScanInput{
		ProjectID:  "greens",
		SourceRoot: sample,
		Publish:    true,
	})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var out ScanOutput
	if err := env.GetWorkflowResult(&out); err != nil {
		t.Fatal(err)
	}
	if out.GraphID != "greens" || out.Nodes != 17 || out.Edges != 22 {
		t.Errorf("output = %+v", out)
	}
	if len(out.Diagnostics) != 0 {
		t.Errorf("diagnostics = %v", out.Diagnostics)
	}
	if len(out.Locations) != 2 {
		t.Errorf("locations = %v", out.Locations)
	}
	if _, ok := repo.Graph("greens"); !ok {
		t.Error("graph not stored")
	}
}

func TestScanWorkflow_NoPublish(t *testing.T) {
	repo, _ := testDeps()

	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ScanWorkflow)
	env.RegisterActivity(CollectFactsActivity)
	env.RegisterActivity(AssembleActivity)
	env.RegisterActivity(PublishActivity)

	env.ExecuteWorkflow(ScanWorkflow, ScanInput{ProjectID: "greens", SourceRoot: sample})
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var out ScanOutput
	if err := env.GetWorkflowResult(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Locations) != 0 {
		t.Errorf("locations = %v", out.Locations)
	}
	if _, ok := repo.Graph("greens"); ok {
		t.Error("graph should not be stored without Publish")
	}
}
