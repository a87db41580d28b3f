package temporal

import (
	"context"
	"fmt"
	"log/slog"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/efebarandurmaz/flowgraph/internal/config"
)

// Dial connects to the Temporal frontend named in cfg. SDK logs go through logger.
func Dial(cfg config.TemporalConfig, logger *slog.Logger) (client.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Host,
		Namespace: cfg.Namespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("temporal client: %w", err)
	}
	return c, nil
}

// StartWorker creates and starts a Temporal worker.
func StartWorker(c client.Client, taskQueue string) (worker.Worker, error) {
	w := worker.New(c, taskQueue, worker.Options{})

	w.RegisterWorkflow(ScanWorkflow)
	w.RegisterActivity(CollectFactsActivity)
	w.RegisterActivity(AssembleActivity)
	w.RegisterActivity(PublishActivity)

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}
	return w, nil
}

// NewScanID returns a workflow id of the form scan-<nanoid>.
func NewScanID() (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generating scan id: %w", err)
	}
	return "scan-" + id, nil
}

// Submit starts a ScanWorkflow and returns its run handle.
func Submit(ctx context.Context, c client.Client, taskQueue string, input ScanInput) (client.WorkflowRun, error) {
	id, err := NewScanID()
	if err != nil {
		return nil, err
	}
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: taskQueue,
	}, ScanWorkflow, input)
	if err != nil {
		return nil, fmt.Errorf("starting workflow %s: %w", id, err)
	}
	return run, nil
}
