// Package scan runs the full pipeline over a source tree: load the
// placeholder store, collect facts from the enabled providers, then assemble
// the unified graph.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/efebarandurmaz/flowgraph/internal/assembler"
	"github.com/efebarandurmaz/flowgraph/internal/config"
	"github.com/efebarandurmaz/flowgraph/internal/facts"
	"github.com/efebarandurmaz/flowgraph/internal/metrics"
	"github.com/efebarandurmaz/flowgraph/internal/normalize"
	"github.com/efebarandurmaz/flowgraph/internal/observability"
	"github.com/efebarandurmaz/flowgraph/internal/placeholder"
	"github.com/efebarandurmaz/flowgraph/internal/providers"
	"github.com/efebarandurmaz/flowgraph/internal/unified"
)

// StagePlaceholders names diagnostics raised while loading the placeholder store.
const StagePlaceholders = "placeholders"

// Options configures a scan.
type Options struct {
	ProjectID  string
	SourceRoot string
	// ConfigDir is searched for placeholder files. Empty means SourceRoot.
	ConfigDir string
	// Providers selects providers by name, in run order. Empty runs all.
	Providers []string
	FactsFile string
	Workers   int
	// Stopwords overrides the service-name stopwords. Nil keeps the defaults.
	Stopwords []string
	Logger    *slog.Logger
}

// FromConfig maps the loaded configuration onto scan options.
func FromConfig(cfg *config.Config) Options {
	return Options{
		ProjectID:  cfg.Project.ID,
		SourceRoot: cfg.Project.SourceRoot,
		ConfigDir:  cfg.Project.ConfigDir,
		Providers:  cfg.Providers.Enabled,
		FactsFile:  cfg.Providers.FactsFile,
		Workers:    cfg.Providers.Workers,
		Stopwords:  cfg.Normalize.Stopwords,
	}
}

// Collected is the output of the fact collection phase.
type Collected struct {
	Facts       *facts.RawFactSet
	Reports     []providers.Report
	Diagnostics []facts.Diagnostic
}

// Result is the outcome of a full scan.
type Result struct {
	Graph       *unified.Graph
	Facts       *facts.RawFactSet
	Diagnostics []facts.Diagnostic
	Reports     []providers.Report
	Metrics     *metrics.ScanMetrics
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// ResolveProjectID returns the configured project id, falling back to the
// base name of the source root.
func ResolveProjectID(projectID, sourceRoot string) string {
	if projectID != "" {
		return projectID
	}
	abs, err := filepath.Abs(sourceRoot)
	if err != nil {
		return filepath.Base(sourceRoot)
	}
	return filepath.Base(abs)
}

// Collect loads placeholders and runs the selected providers. A missing or
// unreadable placeholder store is reported as a diagnostic and the scan
// continues with placeholders left unresolved.
func Collect(ctx context.Context, opts Options) (*Collected, error) {
	logger := opts.logger()
	if opts.SourceRoot == "" {
		return nil, errors.New("source root is required")
	}
	info, err := os.Stat(opts.SourceRoot)
	if err != nil {
		return nil, fmt.Errorf("source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", opts.SourceRoot)
	}
	projectID := ResolveProjectID(opts.ProjectID, opts.SourceRoot)

	out := &Collected{}
	configDir := opts.ConfigDir
	if configDir == "" {
		configDir = opts.SourceRoot
	}
	props, err := placeholder.LoadDir(configDir, logger)
	if err != nil {
		logger.Warn("placeholder store unavailable", "dir", configDir, "error", err)
		out.Diagnostics = append(out.Diagnostics, facts.Diagnostic{
			Stage:   StagePlaceholders,
			Kind:    facts.ErrConfigurationUnavailable,
			Message: err.Error(),
		})
	}

	registry, err := providers.Builtin(providers.Options{
		Workers:   opts.Workers,
		FactsFile: opts.FactsFile,
		Logger:    logger,
	}).Select(opts.Providers)
	if err != nil {
		return nil, err
	}

	fs, reports, err := registry.Collect(ctx, projectID, opts.SourceRoot, props, logger)
	if err != nil {
		return nil, err
	}
	out.Facts = fs
	out.Reports = reports
	return out, nil
}

// Assemble builds the graph for collected facts.
func Assemble(ctx context.Context, fs *facts.RawFactSet, stopwords []string, logger *slog.Logger) (*assembler.Result, error) {
	a := assembler.New(assembler.Options{
		Namer:  normalize.NewServiceNamer(stopwords),
		Logger: logger,
	})
	return a.Build(ctx, fs)
}

// Run performs a complete scan.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.logger()
	projectID := ResolveProjectID(opts.ProjectID, opts.SourceRoot)
	ctx, span := observability.StartScanSpan(ctx, projectID, opts.SourceRoot)
	defer span.End()

	m := metrics.New(projectID)

	collected, err := Collect(ctx, opts)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	for _, r := range collected.Reports {
		m.AddProvider(r.Provider, r.Duration, r.Facts, r.Err)
	}
	m.CollectFacts(collected.Facts)

	res, err := Assemble(ctx, collected.Facts, opts.Stopwords, logger)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	m.CollectAssembly(res)

	diags := append(collected.Diagnostics, res.Diagnostics...)
	if len(collected.Diagnostics) > 0 {
		if m.Diagnostics == nil {
			m.Diagnostics = make(map[string]int)
		}
		for _, d := range collected.Diagnostics {
			m.Diagnostics[d.KindName()]++
		}
	}
	m.Finish()

	logger.Info("scan complete",
		"project", projectID,
		"facts", collected.Facts.Count(),
		"nodes", res.Graph.NodeCount(),
		"edges", res.Graph.EdgeCount(),
		"diagnostics", len(diags),
		"duration", m.Duration,
	)
	return &Result{
		Graph:       res.Graph,
		Facts:       collected.Facts,
		Diagnostics: diags,
		Reports:     collected.Reports,
		Metrics:     m,
	}, nil
}
