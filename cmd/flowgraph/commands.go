package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/efebarandurmaz/flowgraph/internal/config"
	"github.com/efebarandurmaz/flowgraph/internal/export"
	"github.com/efebarandurmaz/flowgraph/internal/graph/neo4j"
	"github.com/efebarandurmaz/flowgraph/internal/graphdiff"
	"github.com/efebarandurmaz/flowgraph/internal/logging"
	"github.com/efebarandurmaz/flowgraph/internal/observability"
	"github.com/efebarandurmaz/flowgraph/internal/providers"
	"github.com/efebarandurmaz/flowgraph/internal/publish"
	"github.com/efebarandurmaz/flowgraph/internal/qualitygate"
	"github.com/efebarandurmaz/flowgraph/internal/scan"
	"github.com/efebarandurmaz/flowgraph/internal/secrets"
	temporalmod "github.com/efebarandurmaz/flowgraph/internal/temporal"
	"github.com/efebarandurmaz/flowgraph/internal/unified"
	"github.com/efebarandurmaz/flowgraph/internal/vector"
	"github.com/efebarandurmaz/flowgraph/internal/vector/qdrant"
)

var (
	errGraphsDiffer = errors.New("graphs differ")
	errGatesFailed  = errors.New("quality gates failed")
)

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

type scanFlags struct {
	source     string
	project    string
	configDir  string
	providers  []string
	factsFile  string
	output     string
	format     string
	jsonReport bool
	store      bool
	index      bool
	publish    bool
	gate       bool
}

// apply copies the flags that were set over the loaded configuration.
func (f scanFlags) apply(cfg *config.Config) {
	if f.source != "" {
		cfg.Project.SourceRoot = f.source
	}
	if f.project != "" {
		cfg.Project.ID = f.project
	}
	if f.configDir != "" {
		cfg.Project.ConfigDir = f.configDir
	}
	if len(f.providers) > 0 {
		cfg.Providers.Enabled = f.providers
	}
	if f.factsFile != "" {
		cfg.Providers.FactsFile = f.factsFile
	}
	if f.output != "" {
		cfg.Output.Path = f.output
	}
	if f.format != "" {
		cfg.Output.Format = f.format
	}
}

type app struct {
	cfg    *config.Config
	logger *slog.Logger
	tp     *observability.TracerProvider
}

func setup(ctx context.Context, g globalFlags) (*app, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	logger, err := logging.New(os.Stderr, cfg.Log)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	sm, err := secrets.NewManager(cfg.Secrets)
	if err != nil {
		return nil, err
	}
	sm.Apply(ctx, cfg)

	tp, err := observability.InitTracing(ctx, observability.FromConfig(cfg.Tracing, "flowgraph", version))
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	return &app{cfg: cfg, logger: logger, tp: tp}, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tp.Shutdown(ctx); err != nil {
		a.logger.Warn("tracing shutdown failed", "error", err)
	}
}

func runScan(ctx context.Context, g globalFlags, sf scanFlags) error {
	a, err := setup(ctx, g)
	if err != nil {
		return err
	}
	defer a.close()
	sf.apply(a.cfg)

	opts := scan.FromConfig(a.cfg)
	opts.Logger = a.logger
	res, err := scan.Run(ctx, opts)
	if err != nil {
		return err
	}
	for _, d := range res.Diagnostics {
		a.logger.Debug("diagnostic", "stage", d.Stage, "detail", d.String())
	}

	if err := writeGraph(res.Graph, a.cfg.Output.Path, a.cfg.Output.Format); err != nil {
		return err
	}
	if sf.jsonReport {
		if err := res.Metrics.WriteJSON(os.Stderr); err != nil {
			return err
		}
	} else {
		res.Metrics.PrintSummary(os.Stderr)
	}

	var errs []error
	if sf.gate {
		errs = append(errs, runGates(os.Stderr, a.cfg.Gates, qualitygate.NewEvalContext(res.Graph, res.Diagnostics), false))
	}
	if sf.store {
		errs = append(errs, storeGraph(ctx, a, res.Graph))
	}
	if sf.index {
		errs = append(errs, indexGraph(ctx, a, res.Graph))
	}
	if sf.publish {
		errs = append(errs, publishGraph(ctx, a, res.Graph))
	}
	return errors.Join(errs...)
}

func listProviders(w io.Writer) error {
	names := providers.Builtin(providers.Options{FactsFile: "facts.json"}).Names()
	fmt.Fprintln(w, "Built-in providers (run order):")
	fmt.Fprintln(w)
	for _, n := range names {
		fmt.Fprintf(w, "  %s\n", n)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Select with --providers or providers.enabled in flowgraph.yaml.")
	fmt.Fprintln(w, "The factfile provider only runs when providers.facts_file is set.")
	return nil
}

func runStats(path string, asJSON bool) error {
	g, err := readGraph(path)
	if err != nil {
		return err
	}
	s := export.ComputeStats(g)
	if asJSON {
		return printJSON(os.Stdout, s)
	}
	fmt.Print(export.FormatStats(s))
	return nil
}

func runExport(path, format, output string) error {
	g, err := readGraph(path)
	if err != nil {
		return err
	}
	return writeGraph(g, output, format)
}

func runDiff(oldPath, newPath string, asJSON, exitCode bool) error {
	oldG, err := readGraph(oldPath)
	if err != nil {
		return err
	}
	newG, err := readGraph(newPath)
	if err != nil {
		return err
	}
	d := graphdiff.Compare(oldG, newG)
	if asJSON {
		if err := printJSON(os.Stdout, d); err != nil {
			return err
		}
	} else {
		fmt.Print(graphdiff.FormatDiff(d))
	}
	if exitCode && !d.Summary.Empty() {
		return errGraphsDiffer
	}
	return nil
}

func runCheck(ctx context.Context, g globalFlags, path string, asJSON bool) error {
	a, err := setup(ctx, g)
	if err != nil {
		return err
	}
	defer a.close()

	gr, err := readGraph(path)
	if err != nil {
		return err
	}
	return runGates(os.Stdout, a.cfg.Gates, qualitygate.NewEvalContext(gr, nil), asJSON)
}

// runGates evaluates the configured gates and returns errGatesFailed when
// a required or critical gate fails.
func runGates(w io.Writer, cfg config.GatesConfig, ec *qualitygate.EvalContext, asJSON bool) error {
	res := qualitygate.BuildPipeline(cfg).Run(ec)
	if asJSON {
		if err := printJSON(w, res); err != nil {
			return err
		}
	} else {
		fmt.Fprint(w, qualitygate.FormatReport(res))
	}
	if res.Status == qualitygate.GateFailed {
		return errGatesFailed
	}
	return nil
}

func runStore(ctx context.Context, g globalFlags, path string) error {
	a, err := setup(ctx, g)
	if err != nil {
		return err
	}
	defer a.close()
	gr, err := readGraph(path)
	if err != nil {
		return err
	}
	return storeGraph(ctx, a, gr)
}

func runCallees(ctx context.Context, g globalFlags, graphID, methodID string) error {
	a, err := setup(ctx, g)
	if err != nil {
		return err
	}
	defer a.close()
	repo, err := neo4j.Open(ctx, a.cfg.Graph)
	if err != nil {
		return err
	}
	defer repo.Close(ctx)

	ids, err := repo.Callees(ctx, graphID, methodID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func runIndex(ctx context.Context, g globalFlags, path string) error {
	a, err := setup(ctx, g)
	if err != nil {
		return err
	}
	defer a.close()
	gr, err := readGraph(path)
	if err != nil {
		return err
	}
	return indexGraph(ctx, a, gr)
}

func runSearch(ctx context.Context, g globalFlags, query, graphPath string, k int) error {
	a, err := setup(ctx, g)
	if err != nil {
		return err
	}
	defer a.close()

	var repo vector.Repository
	if graphPath != "" {
		gr, err := readGraph(graphPath)
		if err != nil {
			return err
		}
		repo = vector.NewMemory()
		if _, err := vector.NewIndexer(repo, a.cfg.Vector.Dimension).IndexGraph(ctx, gr); err != nil {
			return err
		}
	} else {
		q, err := qdrant.Open(ctx, a.cfg.Vector)
		if err != nil {
			return err
		}
		repo = q
	}
	defer repo.Close()

	results, err := vector.NewIndexer(repo, a.cfg.Vector.Dimension).Search(ctx, query, k)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tTYPE\tNODE")
	for _, r := range results {
		fmt.Fprintf(tw, "%.3f\t%s\t%s\n", r.Score, r.NodeType, r.NodeID)
	}
	return tw.Flush()
}

func runPublish(ctx context.Context, g globalFlags, path string) error {
	a, err := setup(ctx, g)
	if err != nil {
		return err
	}
	defer a.close()
	gr, err := readGraph(path)
	if err != nil {
		return err
	}
	return publishGraph(ctx, a, gr)
}

func runSubmit(ctx context.Context, g globalFlags, sf scanFlags, wait bool) error {
	a, err := setup(ctx, g)
	if err != nil {
		return err
	}
	defer a.close()
	sf.apply(a.cfg)

	c, err := temporalmod.Dial(a.cfg.Temporal, a.logger)
	if err != nil {
		return err
	}
	defer c.Close()

	abs, err := filepath.Abs(a.cfg.Project.SourceRoot)
	if err != nil {
		return err
	}
	input := temporalmod.ScanInput{
		ProjectID:  scan.ResolveProjectID(a.cfg.Project.ID, abs),
		SourceRoot: abs,
		ConfigDir:  a.cfg.Project.ConfigDir,
		Providers:  a.cfg.Providers.Enabled,
		FactsFile:  a.cfg.Providers.FactsFile,
		Workers:    a.cfg.Providers.Workers,
		Stopwords:  a.cfg.Normalize.Stopwords,
		Publish:    sf.publish,
	}
	run, err := temporalmod.Submit(ctx, c, a.cfg.Temporal.TaskQueue, input)
	if err != nil {
		return err
	}
	fmt.Printf("Submitted scan %s (run %s) on %s\n", run.GetID(), run.GetRunID(), a.cfg.Temporal.TaskQueue)
	if !wait {
		return nil
	}

	var out temporalmod.ScanOutput
	if err := run.Get(ctx, &out); err != nil {
		return fmt.Errorf("scan %s: %w", run.GetID(), err)
	}
	fmt.Printf("Graph %s: %d facts, %d nodes, %d edges, %d diagnostics\n",
		out.GraphID, out.Facts, out.Nodes, out.Edges, len(out.Diagnostics))
	for _, loc := range out.Locations {
		fmt.Printf("  -> %s\n", loc)
	}
	return nil
}

func storeGraph(ctx context.Context, a *app, g *unified.Graph) error {
	repo, err := neo4j.Open(ctx, a.cfg.Graph)
	if err != nil {
		return err
	}
	defer repo.Close(ctx)
	if err := repo.StoreGraph(ctx, g); err != nil {
		return err
	}
	a.logger.Info("graph stored", "graph", g.ID(), "uri", a.cfg.Graph.URI)
	return nil
}

func indexGraph(ctx context.Context, a *app, g *unified.Graph) error {
	repo, err := qdrant.Open(ctx, a.cfg.Vector)
	if err != nil {
		return err
	}
	defer repo.Close()
	n, err := vector.NewIndexer(repo, a.cfg.Vector.Dimension).IndexGraph(ctx, g)
	if err != nil {
		return err
	}
	a.logger.Info("graph indexed", "graph", g.ID(), "collection", a.cfg.Vector.Collection, "nodes", n)
	return nil
}

func publishGraph(ctx context.Context, a *app, g *unified.Graph) error {
	sinks, err := publish.FromConfig(ctx, a.cfg)
	if err != nil {
		return err
	}
	if len(sinks) == 0 {
		return errors.New("no sinks configured: set storage.bucket or publish.url")
	}
	defer publish.Close(sinks)

	locs, err := publish.PublishAll(ctx, g, sinks...)
	for _, loc := range locs {
		a.logger.Info("graph published", "graph", g.ID(), "location", loc)
	}
	return err
}

func readGraph(path string) (*unified.Graph, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading graph: %w", err)
	}
	return export.DecodeJSON(data)
}

func writeGraph(g *unified.Graph, path, format string) error {
	if path == "" {
		return export.Write(os.Stdout, g, format)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.Write(f, g, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
