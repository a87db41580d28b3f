package qualitygate

import (
	"fmt"

	"github.com/efebarandurmaz/flowgraph/internal/unified"
)

// maxDetails caps the ids listed under a failing gate.
const maxDetails = 10

// miss marks r as not meeting its threshold. Advisory gates only warn.
func miss(r *GateResult, details []string) {
	r.Status = GateFailed
	if r.Severity == SeverityAdvisory {
		r.Status = GateWarning
	}
	if len(details) > maxDetails {
		extra := len(details) - maxDetails
		details = append(details[:maxDetails:maxDetails], fmt.Sprintf("... and %d more", extra))
	}
	r.Details = details
}

// DiagnosticsGate limits the number of diagnostics raised during a scan.
type DiagnosticsGate struct {
	MaxDiagnostics int
	severity       GateSeverity
}

func NewDiagnosticsGate(maxDiagnostics int, severity GateSeverity) *DiagnosticsGate {
	return &DiagnosticsGate{MaxDiagnostics: maxDiagnostics, severity: severity}
}

func (g *DiagnosticsGate) Name() string           { return "diagnostics" }
func (g *DiagnosticsGate) Severity() GateSeverity { return g.severity }
func (g *DiagnosticsGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{Name: g.Name(), Severity: g.severity, Threshold: float64(g.MaxDiagnostics)}
	n := len(ctx.Diagnostics)
	r.Score = float64(n)
	if n <= g.MaxDiagnostics {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("%d diagnostics within limit %d", n, g.MaxDiagnostics)
		return r, nil
	}
	details := make([]string, 0, n)
	for _, d := range ctx.Diagnostics {
		details = append(details, d.String())
	}
	r.Message = fmt.Sprintf("%d diagnostics exceed limit %d", n, g.MaxDiagnostics)
	miss(r, details)
	return r, nil
}

// HandlerCoverageGate requires endpoints to have a HANDLES edge to a method.
type HandlerCoverageGate struct {
	MinCoverage float64
	severity    GateSeverity
}

func NewHandlerCoverageGate(minCoverage float64, severity GateSeverity) *HandlerCoverageGate {
	return &HandlerCoverageGate{MinCoverage: minCoverage, severity: severity}
}

func (g *HandlerCoverageGate) Name() string           { return "handler_coverage" }
func (g *HandlerCoverageGate) Severity() GateSeverity { return g.severity }
func (g *HandlerCoverageGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{Name: g.Name(), Severity: g.severity, Threshold: g.MinCoverage}
	endpoints := ctx.Graph.NodesOfType(unified.NodeEndpoint)
	if len(endpoints) == 0 {
		r.Status = GateSkipped
		r.Message = "No endpoints in graph"
		return r, nil
	}

	var unhandled []string
	for _, ep := range endpoints {
		if len(ctx.Graph.Outgoing(ep.ID, unified.EdgeHandles)) == 0 {
			unhandled = append(unhandled, ep.ID)
		}
	}
	handled := len(endpoints) - len(unhandled)
	r.Score = float64(handled) / float64(len(endpoints))
	if r.Score >= g.MinCoverage {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("%d/%d endpoints have a handler", handled, len(endpoints))
		return r, nil
	}
	r.Message = fmt.Sprintf("Handler coverage %.1f%% below %.1f%% (%d/%d)",
		r.Score*100, g.MinCoverage*100, handled, len(endpoints))
	miss(r, unhandled)
	return r, nil
}

// CycleGate fails when services call each other in a cycle.
type CycleGate struct {
	severity GateSeverity
}

func NewCycleGate(severity GateSeverity) *CycleGate {
	return &CycleGate{severity: severity}
}

func (g *CycleGate) Name() string           { return "service_cycles" }
func (g *CycleGate) Severity() GateSeverity { return g.severity }
func (g *CycleGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{Name: g.Name(), Severity: g.severity}
	cycles := ctx.Stats.CyclicDeps
	r.Score = float64(len(cycles))
	if len(cycles) == 0 {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("No cycles across %d service dependencies", len(ctx.Stats.ServiceDeps))
		return r, nil
	}
	details := make([]string, 0, len(cycles))
	for _, c := range cycles {
		details = append(details, fmt.Sprint(c))
	}
	r.Message = fmt.Sprintf("%d service dependency cycles", len(cycles))
	miss(r, details)
	return r, nil
}

// OrphanGate limits the share of methods with no flow edges at all.
type OrphanGate struct {
	MaxRatio float64
	severity GateSeverity
}

func NewOrphanGate(maxRatio float64, severity GateSeverity) *OrphanGate {
	return &OrphanGate{MaxRatio: maxRatio, severity: severity}
}

func (g *OrphanGate) Name() string           { return "orphan_methods" }
func (g *OrphanGate) Severity() GateSeverity { return g.severity }
func (g *OrphanGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{Name: g.Name(), Severity: g.severity, Threshold: g.MaxRatio}
	methods := ctx.Stats.NodesByType[string(unified.NodeMethod)] + ctx.Stats.NodesByType[string(unified.NodePrivateMethod)]
	if methods == 0 {
		r.Status = GateSkipped
		r.Message = "No methods in graph"
		return r, nil
	}
	orphans := len(ctx.Stats.OrphanMethods)
	r.Score = float64(orphans) / float64(methods)
	if r.Score <= g.MaxRatio {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("%d/%d methods are orphans", orphans, methods)
		return r, nil
	}
	r.Message = fmt.Sprintf("Orphan ratio %.1f%% above %.1f%% (%d/%d)", r.Score*100, g.MaxRatio*100, orphans, methods)
	miss(r, ctx.Stats.OrphanMethods)
	return r, nil
}

// TopicGate flags topics that are produced but never consumed, or the
// reverse.
type TopicGate struct {
	severity GateSeverity
}

func NewTopicGate(severity GateSeverity) *TopicGate {
	return &TopicGate{severity: severity}
}

func (g *TopicGate) Name() string           { return "topic_pairs" }
func (g *TopicGate) Severity() GateSeverity { return g.severity }
func (g *TopicGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{Name: g.Name(), Severity: g.severity}
	topics := ctx.Graph.NodesOfType(unified.NodeTopic)
	if len(topics) == 0 {
		r.Status = GateSkipped
		r.Message = "No topics in graph"
		return r, nil
	}
	var onesided []string
	for _, t := range topics {
		produced := len(ctx.Graph.Incoming(t.ID, unified.EdgeProduces)) > 0
		consumed := len(ctx.Graph.Outgoing(t.ID, unified.EdgeConsumes)) > 0
		switch {
		case produced && !consumed:
			onesided = append(onesided, t.ID+" has no consumer")
		case consumed && !produced:
			onesided = append(onesided, t.ID+" has no producer")
		}
	}
	r.Score = float64(len(topics)-len(onesided)) / float64(len(topics))
	if len(onesided) == 0 {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("All %d topics have producers and consumers", len(topics))
		return r, nil
	}
	r.Message = fmt.Sprintf("%d/%d topics are one-sided", len(onesided), len(topics))
	miss(r, onesided)
	return r, nil
}
