package temporal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/efebarandurmaz/flowgraph/internal/export"
	"github.com/efebarandurmaz/flowgraph/internal/facts"
	"github.com/efebarandurmaz/flowgraph/internal/graph"
	"github.com/efebarandurmaz/flowgraph/internal/publish"
	"github.com/efebarandurmaz/flowgraph/internal/scan"
	"github.com/efebarandurmaz/flowgraph/internal/vector"
)

// ActivityResult is the serializable result passed between activities.
type ActivityResult struct {
	FactsJSON   string
	GraphJSON   string
	GraphID     string
	Facts       int
	Nodes       int
	Edges       int
	Diagnostics []string
}

// Dependencies holds shared resources injected into activities. Nil sinks
// are skipped.
type Dependencies struct {
	Logger     *slog.Logger
	Graph      graph.Repository
	Indexer    *vector.Indexer
	Publishers []publish.Publisher
}

var deps = &Dependencies{}

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	if d == nil {
		d = &Dependencies{}
	}
	deps = d
}

func logger() *slog.Logger {
	if deps.Logger == nil {
		return slog.Default()
	}
	return deps.Logger
}

func (in ScanInput) options() scan.Options {
	return scan.Options{
		ProjectID:  in.ProjectID,
		SourceRoot: in.SourceRoot,
		ConfigDir:  in.ConfigDir,
		Providers:  in.Providers,
		FactsFile:  in.FactsFile,
		Workers:    in.Workers,
		Stopwords:  in.Stopwords,
		Logger:     logger(),
	}
}

func diagnosticStrings(diags []facts.Diagnostic) []string {
	out := make([]string, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.String())
	}
	return out
}

func CollectFactsActivity(ctx context.Context, input ScanInput) (ActivityResult, error) {
	collected, err := scan.Collect(ctx, input.options())
	if err != nil {
		return ActivityResult{}, err
	}
	factsJSON, err := json.Marshal(collected.Facts)
	if err != nil {
		return ActivityResult{}, fmt.Errorf("marshal facts: %w", err)
	}
	return ActivityResult{
		FactsJSON:   string(factsJSON),
		Facts:       collected.Facts.Count(),
		Diagnostics: diagnosticStrings(collected.Diagnostics),
	}, nil
}

func AssembleActivity(ctx context.Context, input ScanInput, factsJSON string) (ActivityResult, error) {
	var fs facts.RawFactSet
	if err := json.Unmarshal([]byte(factsJSON), &fs); err != nil {
		return ActivityResult{}, fmt.Errorf("unmarshal facts: %w", err)
	}
	res, err := scan.Assemble(ctx, &fs, input.Stopwords, logger())
	if err != nil {
		return ActivityResult{}, err
	}
	graphJSON, err := export.JSON(res.Graph)
	if err != nil {
		return ActivityResult{}, fmt.Errorf("marshal graph: %w", err)
	}
	return ActivityResult{
		GraphJSON:   string(graphJSON),
		GraphID:     res.Graph.ID(),
		Facts:       fs.Count(),
		Nodes:       res.Graph.NodeCount(),
		Edges:       res.Graph.EdgeCount(),
		Diagnostics: diagnosticStrings(res.Diagnostics),
	}, nil
}

// PublishActivity stores the graph in every configured sink and returns
// where it went. All sinks are attempted; their errors are joined.
func PublishActivity(ctx context.Context, graphJSON string) ([]string, error) {
	g, err := export.DecodeJSON([]byte(graphJSON))
	if err != nil {
		return nil, err
	}

	var locations []string
	var errs []error
	if deps.Graph != nil {
		if err := deps.Graph.StoreGraph(ctx, g); err != nil {
			errs = append(errs, fmt.Errorf("graph store: %w", err))
		} else {
			locations = append(locations, "graph:"+g.ID())
		}
	}
	if deps.Indexer != nil {
		if n, err := deps.Indexer.IndexGraph(ctx, g); err != nil {
			errs = append(errs, fmt.Errorf("vector index: %w", err))
		} else {
			locations = append(locations, fmt.Sprintf("vector:%s (%d nodes)", g.ID(), n))
		}
	}
	locs, err := publish.PublishAll(ctx, g, deps.Publishers...)
	locations = append(locations, locs...)
	if err != nil {
		errs = append(errs, err)
	}

	logger().Info("graph published", "graph", g.ID(), "sinks", len(locations), "errors", len(errs))
	return locations, errors.Join(errs...)
}
