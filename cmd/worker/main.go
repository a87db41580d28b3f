package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/efebarandurmaz/flowgraph/internal/config"
	"github.com/efebarandurmaz/flowgraph/internal/graph/neo4j"
	"github.com/efebarandurmaz/flowgraph/internal/logging"
	"github.com/efebarandurmaz/flowgraph/internal/observability"
	"github.com/efebarandurmaz/flowgraph/internal/publish"
	"github.com/efebarandurmaz/flowgraph/internal/secrets"
	"github.com/efebarandurmaz/flowgraph/internal/server"
	temporalmod "github.com/efebarandurmaz/flowgraph/internal/temporal"
	"github.com/efebarandurmaz/flowgraph/internal/vector"
	"github.com/efebarandurmaz/flowgraph/internal/vector/qdrant"

	"github.com/spf13/cobra"
	temporalclient "go.temporal.io/sdk/client"
)

var version = "dev"

func main() {
	var configPath, healthAddr string
	cmd := &cobra.Command{
		Use:           "flowgraph-worker",
		Short:         "Run scan workflows from the Temporal task queue",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, healthAddr)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Config file path (default ./flowgraph.yaml)")
	cmd.Flags().StringVar(&healthAddr, "health-addr", ":8080", "Address for the health endpoints")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
}

func run(configPath, healthAddr string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(os.Stderr, cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	sm, err := secrets.NewManager(cfg.Secrets)
	if err != nil {
		return err
	}
	sm.Apply(ctx, cfg)

	tp, err := observability.InitTracing(ctx, observability.FromConfig(cfg.Tracing, "flowgraph-worker", version))
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	health := server.NewHealthServer(server.HealthConfig{
		Version:   version,
		TaskQueue: cfg.Temporal.TaskQueue,
		Logger:    logger,
	})
	shutdown := server.NewShutdownHandler(server.ShutdownConfig{Logger: logger})
	shutdown.Register(server.TracingHook(tp.Shutdown))

	deps := &temporalmod.Dependencies{Logger: logger}

	// Sinks are optional: a worker with none configured still scans and
	// returns counts.
	if cfg.Graph.URI != "" {
		repo, err := neo4j.Open(ctx, cfg.Graph)
		if err != nil {
			return err
		}
		deps.Graph = repo
		health.RegisterCheck("graph", server.GraphStoreChecker(cfg.Graph.URI, repo.Ping))
		shutdown.Register(server.ShutdownHook{Name: "neo4j", Priority: server.PriorityStores, Fn: repo.Close})
	}
	if cfg.Vector.Host != "" {
		repo, err := qdrant.Open(ctx, cfg.Vector)
		if err != nil {
			logger.Warn("vector store unavailable, indexing disabled", "host", cfg.Vector.Host, "error", err)
		} else {
			deps.Indexer = vector.NewIndexer(repo, cfg.Vector.Dimension)
			addr := cfg.Vector.Host + ":" + strconv.Itoa(cfg.Vector.Port)
			health.RegisterCheck("vector", server.VectorStoreChecker(addr, repo.Ping))
			shutdown.Register(server.CloserHook("qdrant", server.PriorityStores, repo.Close))
		}
	}
	sinks, err := publish.FromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	deps.Publishers = sinks
	shutdown.Register(server.CloserHook("sinks", server.PrioritySinks, func() error { return publish.Close(sinks) }))
	temporalmod.SetDependencies(deps)

	c, err := temporalmod.Dial(cfg.Temporal, logger)
	if err != nil {
		return err
	}
	health.RegisterCheck("temporal", server.TemporalChecker(cfg.Temporal.Host, func(ctx context.Context) error {
		_, err := c.CheckHealth(ctx, &temporalclient.CheckHealthRequest{})
		return err
	}))
	shutdown.Register(server.CloserHook("temporal-client", server.PriorityStores, func() error {
		c.Close()
		return nil
	}))

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		return err
	}
	shutdown.Register(
		server.HealthServerHook(health),
		server.TemporalWorkerHook(w.Stop),
	)

	go func() {
		if err := health.ListenAndServe(healthAddr); err != nil {
			logger.Error("health server stopped", "error", err)
			shutdown.Shutdown()
		}
	}()
	health.SetReady(true)
	shutdown.Start()

	logger.Info("worker started",
		"task_queue", cfg.Temporal.TaskQueue,
		"graph_store", deps.Graph != nil,
		"vector_index", deps.Indexer != nil,
		"sinks", len(sinks),
	)
	return shutdown.Wait()
}
