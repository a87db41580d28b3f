package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/efebarandurmaz/flowgraph/internal/assembler"
	"github.com/efebarandurmaz/flowgraph/internal/facts"
	"github.com/efebarandurmaz/flowgraph/internal/unified"
)

// ScanMetrics collects statistics for a full scan.
type ScanMetrics struct {
	ProjectID   string            `json:"project_id"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at,omitempty"`
	Duration    time.Duration     `json:"duration_ms,omitempty"`
	Providers   []ProviderMetrics `json:"providers"`
	Facts       FactMetrics       `json:"facts"`
	Stages      []StageMetrics    `json:"stages"`
	Graph       GraphMetrics      `json:"graph"`
	Diagnostics map[string]int    `json:"diagnostics,omitempty"`
}

type ProviderMetrics struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration_ms"`
	Facts    int           `json:"facts"`
	Error    string        `json:"error,omitempty"`
}

type FactMetrics struct {
	Methods   int `json:"methods"`
	Endpoints int `json:"endpoints"`
	Topics    int `json:"topics"`
	Calls     int `json:"calls"`
	Handlers  int `json:"handlers"`
	Messaging int `json:"messaging"`
	Total     int `json:"total"`
}

type StageMetrics struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration_ms"`
	Nodes    int           `json:"nodes"`
	Edges    int           `json:"edges"`
	Skipped  int           `json:"skipped"`
}

type GraphMetrics struct {
	Nodes       int            `json:"nodes"`
	Edges       int            `json:"edges"`
	NodesByType map[string]int `json:"nodes_by_type"`
	EdgesByType map[string]int `json:"edges_by_type"`
}

// New starts tracking a scan.
func New(projectID string) *ScanMetrics {
	return &ScanMetrics{ProjectID: projectID, StartedAt: time.Now()}
}

// AddProvider records a single provider's timing and outcome.
func (m *ScanMetrics) AddProvider(name string, d time.Duration, factCount int, err error) {
	pm := ProviderMetrics{Name: name, Duration: d, Facts: factCount}
	if err != nil {
		pm.Error = err.Error()
	}
	m.Providers = append(m.Providers, pm)
}

// CollectFacts counts the merged facts handed to the assembler.
func (m *ScanMetrics) CollectFacts(fs *facts.RawFactSet) {
	if fs == nil {
		return
	}
	m.Facts = FactMetrics{
		Methods:   len(fs.Methods),
		Endpoints: len(fs.Endpoints),
		Topics:    len(fs.Topics),
		Calls:     len(fs.Calls),
		Handlers:  len(fs.Handlers),
		Messaging: len(fs.Messaging),
		Total:     fs.Count(),
	}
}

// CollectAssembly records stage timings, diagnostics per kind and graph shape.
func (m *ScanMetrics) CollectAssembly(res *assembler.Result) {
	if res == nil {
		return
	}
	for _, s := range res.Stages {
		m.Stages = append(m.Stages, StageMetrics(s))
	}
	if len(res.Diagnostics) > 0 {
		m.Diagnostics = make(map[string]int)
		for _, d := range res.Diagnostics {
			m.Diagnostics[d.KindName()]++
		}
	}
	m.CollectGraph(res.Graph)
}

// CollectGraph counts nodes and edges per type.
func (m *ScanMetrics) CollectGraph(g *unified.Graph) {
	if g == nil {
		return
	}
	m.Graph = GraphMetrics{
		Nodes:       g.NodeCount(),
		Edges:       g.EdgeCount(),
		NodesByType: make(map[string]int),
		EdgesByType: make(map[string]int),
	}
	for _, n := range g.Nodes() {
		m.Graph.NodesByType[string(n.Type)]++
	}
	for _, e := range g.Edges() {
		m.Graph.EdgesByType[string(e.Type)]++
	}
}

// Finish marks the scan as complete.
func (m *ScanMetrics) Finish() {
	m.FinishedAt = time.Now()
	m.Duration = m.FinishedAt.Sub(m.StartedAt)
}

// PrintSummary writes a human-readable summary.
func (m *ScanMetrics) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║        FLOWGRAPH SCAN REPORT         ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Project:     %-23s║\n", m.ProjectID)
	fmt.Fprintf(w, "║ Duration:    %-23s║\n", m.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ PROVIDERS\n")
	for _, p := range m.Providers {
		status := "OK"
		if p.Error != "" {
			status = "FAILED: " + p.Error
		}
		fmt.Fprintf(w, "║   %-10s %8s  %5d facts  %s\n", p.Name, p.Duration.Round(time.Millisecond), p.Facts, status)
	}
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ FACTS (%d)\n", m.Facts.Total)
	fmt.Fprintf(w, "║   Methods:     %d\n", m.Facts.Methods)
	fmt.Fprintf(w, "║   Endpoints:   %d\n", m.Facts.Endpoints)
	fmt.Fprintf(w, "║   Topics:      %d\n", m.Facts.Topics)
	fmt.Fprintf(w, "║   Calls:       %d\n", m.Facts.Calls)
	fmt.Fprintf(w, "║   Handlers:    %d\n", m.Facts.Handlers)
	fmt.Fprintf(w, "║   Messaging:   %d\n", m.Facts.Messaging)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ GRAPH\n")
	fmt.Fprintf(w, "║   Nodes:       %d\n", m.Graph.Nodes)
	for _, t := range unified.NodeTypes {
		if c := m.Graph.NodesByType[string(t)]; c > 0 {
			fmt.Fprintf(w, "║     %-15s %d\n", t, c)
		}
	}
	fmt.Fprintf(w, "║   Edges:       %d\n", m.Graph.Edges)
	for _, t := range unified.EdgeTypes {
		if c := m.Graph.EdgesByType[string(t)]; c > 0 {
			fmt.Fprintf(w, "║     %-15s %d\n", t, c)
		}
	}
	if len(m.Diagnostics) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ DIAGNOSTICS\n")
		for _, kind := range []string{"malformed_fact", "ambiguous_reference", "configuration_unavailable", "other"} {
			if c := m.Diagnostics[kind]; c > 0 {
				fmt.Fprintf(w, "║   • %-24s %d\n", kind, c)
			}
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the metrics as formatted JSON.
func (m *ScanMetrics) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// WriteJSON writes the metrics as formatted JSON followed by a newline.
func (m *ScanMetrics) WriteJSON(w io.Writer) error {
	data, err := m.JSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
