// Package publish ships finished graphs to object storage and message
// brokers.
package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/efebarandurmaz/flowgraph/internal/export"
	"github.com/efebarandurmaz/flowgraph/internal/observability"
	"github.com/efebarandurmaz/flowgraph/internal/unified"
)

// Publisher delivers a graph somewhere outside the process.
type Publisher interface {
	// Name identifies the sink in logs and spans.
	Name() string
	// Publish delivers g and returns where it went.
	Publish(ctx context.Context, g *unified.Graph) (string, error)
}

// PublishAll publishes to each sink in order and returns the locations that
// succeeded. A failing sink does not stop the others; errors are joined.
func PublishAll(ctx context.Context, g *unified.Graph, sinks ...Publisher) ([]string, error) {
	var locs []string
	var errs []error
	for _, p := range sinks {
		loc, err := publishTraced(ctx, p, g)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		locs = append(locs, loc)
	}
	return locs, errors.Join(errs...)
}

func publishTraced(ctx context.Context, p Publisher, g *unified.Graph) (string, error) {
	ctx, span := observability.StartSinkSpan(ctx, p.Name(), g.ID())
	defer span.End()
	loc, err := p.Publish(ctx, g)
	if err != nil {
		observability.RecordError(span, err)
	}
	return loc, err
}

func encode(g *unified.Graph) ([]byte, error) {
	data, err := export.JSON(g)
	if err != nil {
		return nil, fmt.Errorf("encoding graph %s: %w", g.ID(), err)
	}
	return data, nil
}
