package qualitygate

import (
	"fmt"
	"strings"

	"github.com/efebarandurmaz/flowgraph/internal/config"
)

// parseSeverity converts a string to GateSeverity, defaulting to required.
func parseSeverity(s string) GateSeverity {
	switch s {
	case "critical":
		return SeverityCritical
	case "advisory":
		return SeverityAdvisory
	default:
		return SeverityRequired
	}
}

// BuildPipeline constructs the gate pipeline from the gates section.
func BuildPipeline(cfg config.GatesConfig) *Pipeline {
	p := NewPipeline()
	if cfg.MaxDiagnostics >= 0 {
		p.AddGate(NewDiagnosticsGate(cfg.MaxDiagnostics, parseSeverity(cfg.DiagnosticsSeverity)))
	}
	if cfg.MinHandlerCoverage > 0 {
		p.AddGate(NewHandlerCoverageGate(cfg.MinHandlerCoverage, parseSeverity(cfg.CoverageSeverity)))
	}
	if !cfg.AllowCycles {
		p.AddGate(NewCycleGate(SeverityRequired))
	}
	if cfg.MaxOrphanRatio > 0 {
		p.AddGate(NewOrphanGate(cfg.MaxOrphanRatio, parseSeverity(cfg.OrphanSeverity)))
	}
	p.AddGate(NewTopicGate(parseSeverity(cfg.TopicSeverity)))
	return p
}

// FormatReport returns a human-readable quality gate report.
func FormatReport(result *PipelineResult) string {
	var b strings.Builder
	b.WriteString("╔══════════════════════════════════════════╗\n")
	fmt.Fprintf(&b, "║ Quality Gates: %-25s ║\n", result.GraphID)
	b.WriteString("╠══════════════════════════════════════════╣\n")

	for _, gr := range result.Gates {
		icon := "✓"
		switch gr.Status {
		case GateFailed:
			icon = "✗"
		case GateSkipped:
			icon = "○"
		case GateWarning:
			icon = "⚠"
		}
		fmt.Fprintf(&b, "║ %s %-17s %-10s %s\n", icon, gr.Name, "["+strings.ToUpper(string(gr.Severity))+"]", gr.Message)
		for _, d := range gr.Details {
			fmt.Fprintf(&b, "║   → %s\n", d)
		}
	}

	b.WriteString("╠══════════════════════════════════════════╣\n")
	status := "PASSED"
	if result.Status == GateFailed {
		status = "FAILED"
	}
	fmt.Fprintf(&b, "║ Result: %s (%s)\n", status, result.Summary)
	b.WriteString("╚══════════════════════════════════════════╝\n")
	return b.String()
}
