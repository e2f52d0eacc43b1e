package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/DrSkyle/vapora/pkg/engine/policy"
	"github.com/DrSkyle/vapora/pkg/graph"
	"github.com/DrSkyle/vapora/pkg/sink"
	"github.com/DrSkyle/vapora/pkg/storage"
)

// Analysis is a stored run re-analysed from its checkpoint.
type Analysis struct {
	Run    RunRef
	RunID  string
	Tables *graph.Tables
}

// AnalyzeRun loads the checkpoint of ref and recomputes its tables with the
// hub percentile the run was made with, when its summary is available.
func (e *Engine) AnalyzeRun(ctx context.Context, ref string) (*Analysis, error) {
	run, err := e.ResolveRun(ctx, ref)
	if err != nil {
		return nil, err
	}
	state, err := e.LoadState(ctx, run)
	if err != nil {
		return nil, err
	}

	hub, runID := e.config.HubPercentile, run.Dir()
	summary, err := e.LoadSummary(ctx, run)
	switch {
	case err == nil:
		if summary.Params.HubPercentile > 0 {
			hub = summary.Params.HubPercentile
		}
		if summary.RunID != "" {
			runID = summary.RunID
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, err
	}

	tables, err := graph.Analyze(ctx, state, hub)
	if err != nil {
		return nil, err
	}
	return &Analysis{Run: run, RunID: runID, Tables: tables}, nil
}

// Query returns the node rows of a stored run for which the CEL expression
// where holds.
func (e *Engine) Query(ctx context.Context, ref, where string) (*Analysis, []graph.NodeRow, error) {
	rules, err := policy.NewCELEngine(e.Logger)
	if err != nil {
		return nil, nil, err
	}
	if err := rules.Compile([]policy.Rule{{ID: "query", Condition: where}}); err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}

	a, err := e.AnalyzeRun(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	matches, err := rules.Scan(ctx, a.Tables.Nodes)
	if err != nil {
		return a, nil, err
	}
	rows := make([]graph.NodeRow, len(matches))
	for i, m := range matches {
		rows[i] = m.Node
	}
	return a, rows, nil
}

// Push merges a stored run into the graph database behind client.
func (e *Engine) Push(ctx context.Context, ref string, client sink.Client) (*Analysis, sink.PushStats, error) {
	a, err := e.AnalyzeRun(ctx, ref)
	if err != nil {
		return nil, sink.PushStats{}, err
	}
	stats, err := sink.NewPusher(client, sink.WithLogger(e.Logger)).Push(ctx, a.RunID, a.Run.Seed, a.Tables)
	return a, stats, err
}
