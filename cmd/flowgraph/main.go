package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:           "flowgraph",
		Short:         "Build a unified call and messaging graph from service sources",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file path (default ./flowgraph.yaml)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Override log.format (text, json)")

	// scan
	var sf scanFlags
	scanCmd := &cobra.Command{
		Use:   "scan [source-root]",
		Short: "Collect facts from a source tree and assemble the graph",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				sf.source = args[0]
			}
			return runScan(cmd.Context(), g, sf)
		},
	}
	scanCmd.Flags().StringVar(&sf.source, "source", "", "Source root (overrides project.source_root)")
	scanCmd.Flags().StringVar(&sf.project, "project", "", "Project id, used as the graph id")
	scanCmd.Flags().StringVar(&sf.configDir, "config-dir", "", "Directory holding placeholder property files")
	scanCmd.Flags().StringSliceVar(&sf.providers, "providers", nil, "Providers to run, in order (default all)")
	scanCmd.Flags().StringVar(&sf.factsFile, "facts", "", "Pre-extracted facts file to merge")
	scanCmd.Flags().StringVarP(&sf.output, "output", "o", "", "Write the graph here instead of stdout")
	scanCmd.Flags().StringVarP(&sf.format, "format", "f", "", "Output format: json, dot or mermaid")
	scanCmd.Flags().BoolVar(&sf.jsonReport, "json-report", false, "Print the scan report as JSON")
	scanCmd.Flags().BoolVar(&sf.store, "store", false, "Store the graph in Neo4j")
	scanCmd.Flags().BoolVar(&sf.index, "index", false, "Index graph nodes in Qdrant")
	scanCmd.Flags().BoolVar(&sf.publish, "publish", false, "Publish the graph to the configured sinks")
	scanCmd.Flags().BoolVar(&sf.gate, "gate", false, "Run the quality gates and fail on a required gate")

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List built-in fact providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listProviders(os.Stdout)
		},
	}

	// graph file commands
	var statsJSON bool
	statsCmd := &cobra.Command{
		Use:   "stats <graph.json>",
		Short: "Print structural statistics for a graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(args[0], statsJSON)
		},
	}
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output statistics as JSON")

	var exportFormat, exportOutput string
	exportCmd := &cobra.Command{
		Use:   "export <graph.json>",
		Short: "Render a graph as JSON, DOT or Mermaid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(args[0], exportFormat, exportOutput)
		},
	}
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "dot", "Output format: json, dot or mermaid")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")

	var diffJSON, diffExitCode bool
	diffCmd := &cobra.Command{
		Use:   "diff <old.json> <new.json>",
		Short: "Compare two graphs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(args[0], args[1], diffJSON, diffExitCode)
		},
	}
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Output the diff as JSON")
	diffCmd.Flags().BoolVar(&diffExitCode, "exit-code", false, "Exit non-zero when the graphs differ")

	var checkJSON bool
	checkCmd := &cobra.Command{
		Use:   "check <graph.json>",
		Short: "Run the quality gates against a graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), g, args[0], checkJSON)
		},
	}
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output the gate results as JSON")

	// store-backed commands
	storeCmd := &cobra.Command{
		Use:   "store <graph.json>",
		Short: "Store a graph in Neo4j",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStore(cmd.Context(), g, args[0])
		},
	}

	calleesCmd := &cobra.Command{
		Use:   "callees <graph-id> <method-id>",
		Short: "List the methods a stored method calls",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCallees(cmd.Context(), g, args[0], args[1])
		},
	}

	indexCmd := &cobra.Command{
		Use:   "index <graph.json>",
		Short: "Index graph nodes in Qdrant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), g, args[0])
		},
	}

	var searchGraph string
	var searchK int
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find graph nodes similar to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), g, args[0], searchGraph, searchK)
		},
	}
	searchCmd.Flags().StringVar(&searchGraph, "graph", "", "Search this graph file in memory instead of Qdrant")
	searchCmd.Flags().IntVarP(&searchK, "limit", "k", 10, "Maximum number of results")

	publishCmd := &cobra.Command{
		Use:   "publish <graph.json>",
		Short: "Publish a graph to the configured S3 and AMQP sinks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), g, args[0])
		},
	}

	var submitFlags scanFlags
	var submitWait bool
	submitCmd := &cobra.Command{
		Use:   "submit [source-root]",
		Short: "Run a scan on the Temporal worker fleet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				submitFlags.source = args[0]
			}
			return runSubmit(cmd.Context(), g, submitFlags, submitWait)
		},
	}
	submitCmd.Flags().StringVar(&submitFlags.source, "source", "", "Source root as seen by the worker")
	submitCmd.Flags().StringVar(&submitFlags.project, "project", "", "Project id")
	submitCmd.Flags().StringVar(&submitFlags.configDir, "config-dir", "", "Placeholder directory as seen by the worker")
	submitCmd.Flags().StringSliceVar(&submitFlags.providers, "providers", nil, "Providers to run, in order (default all)")
	submitCmd.Flags().BoolVar(&submitFlags.publish, "publish", true, "Publish the graph from the worker")
	submitCmd.Flags().BoolVar(&submitWait, "wait", false, "Wait for the workflow result")

	rootCmd.AddCommand(scanCmd, providersCmd, statsCmd, exportCmd, diffCmd, checkCmd,
		storeCmd, calleesCmd, indexCmd, searchCmd, publishCmd, submitCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
