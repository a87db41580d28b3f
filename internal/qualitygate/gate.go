// Package qualitygate checks an assembled graph against configurable
// thresholds so CI can fail a build when the extracted topology degrades.
package qualitygate

import (
	"fmt"
	"time"

	"github.com/efebarandurmaz/flowgraph/internal/export"
	"github.com/efebarandurmaz/flowgraph/internal/facts"
	"github.com/efebarandurmaz/flowgraph/internal/unified"
)

// GateStatus represents the result of a quality gate check.
type GateStatus string

const (
	GatePassed  GateStatus = "passed"
	GateFailed  GateStatus = "failed"
	GateSkipped GateStatus = "skipped"
	GateWarning GateStatus = "warning"
)

// GateSeverity indicates how critical a gate failure is.
type GateSeverity string

const (
	SeverityCritical GateSeverity = "critical" // later gates are skipped
	SeverityRequired GateSeverity = "required"
	SeverityAdvisory GateSeverity = "advisory" // reported as a warning
)

// GateResult captures the outcome of a single gate evaluation.
type GateResult struct {
	Name        string        `json:"name"`
	Status      GateStatus    `json:"status"`
	Severity    GateSeverity  `json:"severity"`
	Score       float64       `json:"score"`
	Threshold   float64       `json:"threshold"`
	Message     string        `json:"message"`
	Details     []string      `json:"details,omitempty"`
	Duration    time.Duration `json:"duration"`
	EvaluatedAt time.Time     `json:"evaluated_at"`
}

// Gate is the interface all quality gates implement.
type Gate interface {
	Name() string
	Severity() GateSeverity
	Evaluate(ctx *EvalContext) (*GateResult, error)
}

// EvalContext is the data gates look at.
type EvalContext struct {
	Graph *unified.Graph
	Stats export.Stats
	// Diagnostics is empty when checking a graph loaded from a file.
	Diagnostics []facts.Diagnostic
}

// NewEvalContext computes graph statistics once for all gates.
func NewEvalContext(g *unified.Graph, diags []facts.Diagnostic) *EvalContext {
	return &EvalContext{Graph: g, Stats: export.ComputeStats(g), Diagnostics: diags}
}

// PipelineResult captures the complete gate pipeline evaluation.
type PipelineResult struct {
	GraphID      string        `json:"graph_id"`
	Status       GateStatus    `json:"status"`
	Gates        []GateResult  `json:"gates"`
	PassedCount  int           `json:"passed_count"`
	FailedCount  int           `json:"failed_count"`
	SkippedCount int           `json:"skipped_count"`
	WarningCount int           `json:"warning_count"`
	Duration     time.Duration `json:"duration"`
	EvaluatedAt  time.Time     `json:"evaluated_at"`
	Summary      string        `json:"summary"`
}

// Pipeline runs gates in order.
type Pipeline struct {
	gates []Gate
}

func NewPipeline(gates ...Gate) *Pipeline {
	return &Pipeline{gates: gates}
}

func (p *Pipeline) AddGate(g Gate) {
	p.gates = append(p.gates, g)
}

// Len returns the number of gates.
func (p *Pipeline) Len() int { return len(p.gates) }

// Run evaluates every gate. A failed critical gate skips the rest; any
// failed critical or required gate fails the pipeline.
func (p *Pipeline) Run(ctx *EvalContext) *PipelineResult {
	start := time.Now()
	result := &PipelineResult{
		GraphID:     ctx.Graph.ID(),
		Status:      GatePassed,
		EvaluatedAt: start,
	}

	aborted := false
	for _, gate := range p.gates {
		if aborted {
			result.Gates = append(result.Gates, GateResult{
				Name:        gate.Name(),
				Status:      GateSkipped,
				Severity:    gate.Severity(),
				Message:     "Skipped after critical gate failure",
				EvaluatedAt: time.Now(),
			})
			result.SkippedCount++
			continue
		}

		gateStart := time.Now()
		gr, err := gate.Evaluate(ctx)
		if err != nil {
			gr = &GateResult{
				Name:     gate.Name(),
				Status:   GateFailed,
				Severity: gate.Severity(),
				Message:  fmt.Sprintf("Gate evaluation error: %v", err),
			}
		}
		gr.Duration = time.Since(gateStart)
		gr.EvaluatedAt = gateStart
		result.Gates = append(result.Gates, *gr)

		switch gr.Status {
		case GatePassed:
			result.PassedCount++
		case GateFailed:
			result.FailedCount++
			switch gr.Severity {
			case SeverityCritical:
				aborted = true
				result.Status = GateFailed
			case SeverityRequired:
				result.Status = GateFailed
			}
		case GateWarning:
			result.WarningCount++
		case GateSkipped:
			result.SkippedCount++
		}
	}

	result.Duration = time.Since(start)
	result.Summary = fmt.Sprintf("%d passed, %d failed, %d warnings, %d skipped",
		result.PassedCount, result.FailedCount, result.WarningCount, result.SkippedCount)
	return result
}
