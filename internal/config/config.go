package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/efebarandurmaz/flowgraph/internal/normalize"
)

// EnvPrefix prefixes environment overrides, e.g. FLOWGRAPH_GRAPH_URI.
const EnvPrefix = "FLOWGRAPH"

// Config holds all application configuration.
type Config struct {
	Project   ProjectConfig   `mapstructure:"project"`
	Normalize NormalizeConfig `mapstructure:"normalize"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Output    OutputConfig    `mapstructure:"output"`
	Log       LogConfig       `mapstructure:"log"`
	Graph     GraphConfig     `mapstructure:"graph"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Publish   PublishConfig   `mapstructure:"publish"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
	Gates     GatesConfig     `mapstructure:"gates"`
}

type ProjectConfig struct {
	ID         string `mapstructure:"id"`
	SourceRoot string `mapstructure:"source_root"`
	// ConfigDir holds the *.properties / *.yaml files used for ${key}
	// placeholders. Empty means the source root.
	ConfigDir string `mapstructure:"config_dir"`
}

type NormalizeConfig struct {
	Stopwords []string `mapstructure:"stopwords"`
}

type ProvidersConfig struct {
	// Enabled lists provider names in run order. Empty runs all built-ins.
	Enabled   []string `mapstructure:"enabled"`
	FactsFile string   `mapstructure:"facts_file"`
	Workers   int      `mapstructure:"workers"`
}

type OutputConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type VectorConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	Dimension  int    `mapstructure:"dimension"`
}

type StorageConfig struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

type PublishConfig struct {
	URL        string `mapstructure:"url"`
	Exchange   string `mapstructure:"exchange"`
	RoutingKey string `mapstructure:"routing_key"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// SecretsConfig selects where credentials left empty above are looked up.
type SecretsConfig struct {
	// Provider is "env" (default) or "file".
	Provider string `mapstructure:"provider"`
	File     string `mapstructure:"file"`
}

// GatesConfig sets the thresholds checked by `flowgraph check` and
// `flowgraph scan --gate`. Severities are critical, required or advisory.
type GatesConfig struct {
	// MaxDiagnostics disables the diagnostics gate when negative.
	MaxDiagnostics      int     `mapstructure:"max_diagnostics"`
	DiagnosticsSeverity string  `mapstructure:"diagnostics_severity"`
	MinHandlerCoverage  float64 `mapstructure:"min_handler_coverage"`
	CoverageSeverity    string  `mapstructure:"coverage_severity"`
	AllowCycles         bool    `mapstructure:"allow_cycles"`
	MaxOrphanRatio      float64 `mapstructure:"max_orphan_ratio"`
	OrphanSeverity      string  `mapstructure:"orphan_severity"`
	TopicSeverity       string  `mapstructure:"topic_severity"`
}

// OutputFormats lists the accepted output.format values.
var OutputFormats = []string{"json", "dot", "mermaid"}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Output.Format != "" && !contains(OutputFormats, c.Output.Format) {
		warnings = append(warnings, fmt.Sprintf("output format '%s' is not one of %s", c.Output.Format, strings.Join(OutputFormats, ", ")))
	}

	if c.Providers.Workers < 0 {
		warnings = append(warnings, fmt.Sprintf("providers.workers %d is negative", c.Providers.Workers))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside range [0.0, 1.0]", c.Tracing.SampleRate))
	}

	if c.Graph.URI != "" && c.Graph.Username == "" {
		warnings = append(warnings, "graph uri is configured but username is empty")
	}

	if c.Storage.Bucket != "" && c.Storage.Region == "" {
		warnings = append(warnings, fmt.Sprintf("storage bucket '%s' is configured but region is empty", c.Storage.Bucket))
	}

	if c.Secrets.Provider == "file" && c.Secrets.File == "" {
		warnings = append(warnings, "secrets provider is 'file' but secrets.file is empty")
	}

	if c.Gates.MinHandlerCoverage < 0 || c.Gates.MinHandlerCoverage > 1.0 {
		warnings = append(warnings, fmt.Sprintf("gates min_handler_coverage %.2f is outside range [0.0, 1.0]", c.Gates.MinHandlerCoverage))
	}

	if c.Vector.Dimension <= 0 {
		warnings = append(warnings, fmt.Sprintf("vector dimension %d must be positive", c.Vector.Dimension))
	}

	return warnings
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("project.id", "")
	v.SetDefault("project.source_root", ".")
	v.SetDefault("project.config_dir", "")
	v.SetDefault("normalize.stopwords", normalize.DefaultStopwords)
	v.SetDefault("providers.enabled", []string{})
	v.SetDefault("providers.facts_file", "")
	v.SetDefault("providers.workers", 4)
	v.SetDefault("output.path", "")
	v.SetDefault("output.format", "json")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("graph.uri", "")
	v.SetDefault("graph.username", "")
	v.SetDefault("graph.password", "")
	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.collection", "flowgraph_nodes")
	v.SetDefault("vector.dimension", 256)
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "graphs")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.use_path_style", false)
	v.SetDefault("publish.url", "")
	v.SetDefault("publish.exchange", "flowgraph")
	v.SetDefault("publish.routing_key", "graph.built")
	v.SetDefault("temporal.host", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "flowgraph-scan")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("secrets.provider", "env")
	v.SetDefault("secrets.file", "")
	v.SetDefault("gates.max_diagnostics", -1)
	v.SetDefault("gates.diagnostics_severity", "required")
	v.SetDefault("gates.min_handler_coverage", 1.0)
	v.SetDefault("gates.coverage_severity", "required")
	v.SetDefault("gates.allow_cycles", false)
	v.SetDefault("gates.max_orphan_ratio", 0.5)
	v.SetDefault("gates.orphan_severity", "advisory")
	v.SetDefault("gates.topic_severity", "advisory")
}

// Load reads configuration from file and environment. An empty path uses
// defaults and environment only; a flowgraph.yaml in the working directory
// is picked up when present.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else {
		v.SetConfigName("flowgraph")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}
