package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ScanInput holds the workflow parameters.
type ScanInput struct {
	ProjectID  string
	SourceRoot string
	ConfigDir  string
	Providers  []string
	FactsFile  string
	Workers    int
	Stopwords  []string

	// Publish runs the sink activity after assembly.
	Publish bool
}

// ScanOutput holds the workflow result.
type ScanOutput struct {
	GraphID     string
	Nodes       int
	Edges       int
	Facts       int
	Diagnostics []string
	Locations   []string
}

// ScanWorkflow collects facts, assembles the graph and optionally publishes
// it. Activities exchange JSON strings so each one can run on any worker.
func ScanWorkflow(ctx workflow.Context, input ScanInput) (*ScanOutput, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	// Step 1: providers
	var collected ActivityResult
	if err := workflow.ExecuteActivity(ctx, CollectFactsActivity, input).Get(ctx, &collected); err != nil {
		return nil, fmt.Errorf("collect facts: %w", err)
	}

	// Step 2: assembler
	var assembled ActivityResult
	if err := workflow.ExecuteActivity(ctx, AssembleActivity, input, collected.FactsJSON).Get(ctx, &assembled); err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}

	output := &ScanOutput{
		GraphID:     assembled.GraphID,
		Nodes:       assembled.Nodes,
		Edges:       assembled.Edges,
		Facts:       collected.Facts,
		Diagnostics: append(collected.Diagnostics, assembled.Diagnostics...),
	}

	// Step 3: sinks
	if input.Publish {
		var locations []string
		if err := workflow.ExecuteActivity(ctx, PublishActivity, assembled.GraphJSON).Get(ctx, &locations); err != nil {
			return nil, fmt.Errorf("publish: %w", err)
		}
		output.Locations = locations
	}

	return output, nil
}
