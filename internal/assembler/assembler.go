// Package assembler turns a RawFactSet into a unified graph in nine ordered
// stages. Malformed facts are skipped and reported as diagnostics; they never
// fail a build.
package assembler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/efebarandurmaz/flowgraph/internal/facts"
	"github.com/efebarandurmaz/flowgraph/internal/normalize"
	"github.com/efebarandurmaz/flowgraph/internal/observability"
	"github.com/efebarandurmaz/flowgraph/internal/unified"
)

// Stage names, in execution order.
const (
	StageDedupeMethods  = "dedupe-methods"
	StageMethodNodes    = "method-nodes"
	StageEndpointNodes  = "endpoint-nodes"
	StageTopicNodes     = "topic-nodes"
	StageClassServices  = "class-service-nodes"
	StageCallEdges      = "call-edges"
	StageHandlerEdges   = "handler-edges"
	StageMessagingEdges = "messaging-edges"
	StageDefinesEdges   = "defines-edges"
)

// Stages lists the stage names in execution order.
var Stages = []string{
	StageDedupeMethods,
	StageMethodNodes,
	StageEndpointNodes,
	StageTopicNodes,
	StageClassServices,
	StageCallEdges,
	StageHandlerEdges,
	StageMessagingEdges,
	StageDefinesEdges,
}

// AttrSynthesized marks nodes created only because an edge referenced them.
const AttrSynthesized = "synthesized"

// Options configures an Assembler.
type Options struct {
	// GraphID overrides the fact set's project id as the graph id.
	GraphID string
	// Namer infers service names. Nil selects the default stopwords.
	Namer *normalize.ServiceNamer
	// Logger receives per-fact diagnostics. Nil selects slog.Default().
	Logger *slog.Logger
}

// Assembler builds unified graphs. It holds no per-build state, so one
// Assembler may run any number of builds concurrently.
type Assembler struct {
	graphID string
	namer   *normalize.ServiceNamer
	logger  *slog.Logger
}

// New creates an Assembler.
func New(opts Options) *Assembler {
	a := &Assembler{
		graphID: opts.GraphID,
		namer:   opts.Namer,
		logger:  opts.Logger,
	}
	if a.namer == nil {
		a.namer = normalize.NewServiceNamer(nil)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// StageTiming reports what one stage did.
type StageTiming struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Nodes    int           `json:"nodes"`
	Edges    int           `json:"edges"`
	Skipped  int           `json:"skipped"`
}

// Result is the outcome of a build.
type Result struct {
	Graph       *unified.Graph
	Diagnostics []facts.Diagnostic
	Stages      []StageTiming
}

// Build runs all stages over fs. It fails only when fs is nil. The context
// carries the tracing parent; a build is never interrupted midway.
func (a *Assembler) Build(ctx context.Context, fs *facts.RawFactSet) (*Result, error) {
	if fs == nil {
		return nil, facts.ErrNoFacts
	}
	graphID := a.graphID
	if graphID == "" {
		graphID = fs.ProjectID
	}

	b := &build{
		a:       a,
		facts:   fs,
		g:       unified.NewBuilder(graphID),
		classOf: make(map[string]string),
	}

	steps := []struct {
		name string
		run  func()
	}{
		{StageDedupeMethods, b.dedupeMethods},
		{StageMethodNodes, b.materializeMethods},
		{StageEndpointNodes, b.materializeEndpoints},
		{StageTopicNodes, b.materializeTopics},
		{StageClassServices, b.materializeClasses},
		{StageCallEdges, b.linkCalls},
		{StageHandlerEdges, b.linkHandlers},
		{StageMessagingEdges, b.linkMessaging},
		{StageDefinesEdges, b.linkDefinitions},
	}

	timings := make([]StageTiming, 0, len(steps))
	for _, step := range steps {
		_, span := observability.StartStageSpan(ctx, step.name)
		b.stage = step.name
		before := len(b.diags)
		start := time.Now()

		step.run()

		t := StageTiming{
			Name:     step.name,
			Duration: time.Since(start),
			Nodes:    b.nodeCount,
			Edges:    b.edgeCount,
			Skipped:  len(b.diags) - before,
		}
		observability.RecordStageResult(span, t.Nodes, t.Edges, t.Skipped)
		span.End()
		timings = append(timings, t)
	}

	g := b.g.Build()
	a.logger.Info("graph assembled",
		"graph", graphID,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"diagnostics", len(b.diags),
	)
	return &Result{Graph: g, Diagnostics: b.diags, Stages: timings}, nil
}

// build is the state of one Build call.
type build struct {
	a     *Assembler
	facts *facts.RawFactSet
	g     *unified.Builder
	stage string
	diags []facts.Diagnostic

	methods    []dedupedMethod
	candidates []classCandidate
	classOf    map[string]string

	nodeCount int
	edgeCount int
}

type dedupedMethod struct {
	id   string
	fact facts.RawMethod
}

type classCandidate struct {
	classID     string
	simpleName  string
	packageName string
	serviceName string
}

func (b *build) report(kind error, origin facts.Origin, format string, args ...any) {
	d := facts.Diagnostic{
		Stage:   b.stage,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Origin:  origin,
	}
	b.diags = append(b.diags, d)
	b.a.logger.Warn("fact skipped",
		"stage", d.Stage,
		"kind", d.KindName(),
		"reason", d.Message,
		"file", origin.File,
		"line", origin.Line,
	)
}

// insert adds n to the graph and reports whether the id now holds a node of
// n's type.
func (b *build) insert(n unified.Node, origin facts.Origin) bool {
	inserted, err := b.g.Insert(n)
	if err != nil {
		b.report(facts.ErrAmbiguousReference, origin, "%s node %q: %v", n.Type, n.ID, err)
		return false
	}
	if inserted {
		b.nodeCount++
	}
	return true
}

// link adds an edge unless an identical one exists.
func (b *build) link(t unified.EdgeType, from, to string, origin facts.Origin) {
	if b.g.HasEdge(t, from, to) {
		b.a.logger.Debug("duplicate edge ignored", "type", t, "from", from, "to", to)
		return
	}
	if _, err := b.g.AddEdge(t, from, to); err != nil {
		b.report(facts.ErrAmbiguousReference, origin, "%s edge %s -> %s: %v", t, from, to, err)
		return
	}
	b.edgeCount++
}
