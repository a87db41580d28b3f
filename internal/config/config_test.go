package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Output:  OutputConfig{Format: "json"},
		Vector:  VectorConfig{Dimension: 64},
		Tracing: TracingConfig{SampleRate: 1},
	}
}

func hasWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestValidate_Valid(t *testing.T) {
	if warnings := validConfig().Validate(); len(warnings) != 0 {
		t.Errorf("valid config should have no warnings, got %v", warnings)
	}
}

func TestValidate_Warnings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"format", func(c *Config) { c.Output.Format = "svg" }, "output format"},
		{"workers", func(c *Config) { c.Providers.Workers = -1 }, "workers"},
		{"sample_rate_high", func(c *Config) { c.Tracing.SampleRate = 1.5 }, "sample_rate"},
		{"sample_rate_negative", func(c *Config) { c.Tracing.SampleRate = -0.1 }, "sample_rate"},
		{"graph_user", func(c *Config) { c.Graph.URI = "neo4j://localhost" }, "username"},
		{"storage_region", func(c *Config) { c.Storage.Bucket = "graphs" }, "region"},
		{"dimension", func(c *Config) { c.Vector.Dimension = 0 }, "dimension"},
		{"handler_coverage", func(c *Config) { c.Gates.MinHandlerCoverage = 1.2 }, "min_handler_coverage"},
		{"secrets_file", func(c *Config) { c.Secrets.Provider = "file" }, "secrets.file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if !hasWarning(cfg.Validate(), tt.want) {
				t.Errorf("expected warning containing %q", tt.want)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flowgraph.yaml")
	if err := os.WriteFile(path, []byte("project:\n  id: orders\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Project.ID != "orders" {
		t.Errorf("project id = %q", cfg.Project.ID)
	}
	if cfg.Output.Format != "json" || cfg.Providers.Workers != 4 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if len(cfg.Normalize.Stopwords) == 0 || cfg.Normalize.Stopwords[0] != "com" {
		t.Errorf("default stopwords = %v", cfg.Normalize.Stopwords)
	}
	if cfg.Publish.RoutingKey != "graph.built" {
		t.Errorf("routing key = %q", cfg.Publish.RoutingKey)
	}
	if cfg.Gates.MaxDiagnostics != -1 || cfg.Gates.MinHandlerCoverage != 1.0 || cfg.Secrets.Provider != "env" {
		t.Errorf("gate or secrets defaults not applied: %+v %+v", cfg.Gates, cfg.Secrets)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flowgraph.yaml")
	content := `project:
  source_root: ./src
normalize:
  stopwords: [com, acme]
providers:
  enabled: [java, kafka]
graph:
  uri: neo4j://localhost:7687
  username: neo4j
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FLOWGRAPH_GRAPH_PASSWORD", "secret")
	t.Setenv("FLOWGRAPH_OUTPUT_FORMAT", "dot")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Project.SourceRoot != "./src" {
		t.Errorf("source root = %q", cfg.Project.SourceRoot)
	}
	if strings.Join(cfg.Normalize.Stopwords, ",") != "com,acme" {
		t.Errorf("stopwords = %v", cfg.Normalize.Stopwords)
	}
	if strings.Join(cfg.Providers.Enabled, ",") != "java,kafka" {
		t.Errorf("enabled = %v", cfg.Providers.Enabled)
	}
	if cfg.Graph.Password != "secret" {
		t.Errorf("env override not applied, password = %q", cfg.Graph.Password)
	}
	if cfg.Output.Format != "dot" {
		t.Errorf("env override not applied, format = %q", cfg.Output.Format)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}
