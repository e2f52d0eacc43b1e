package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/DrSkyle/vapora/pkg/engine/crawler"
	"github.com/DrSkyle/vapora/pkg/engine/report"
	"github.com/DrSkyle/vapora/pkg/graph"
	"github.com/DrSkyle/vapora/pkg/scorer"
	"github.com/DrSkyle/vapora/pkg/storage"
	"github.com/DrSkyle/vapora/pkg/traversal"
)

// Run resolves target (Steam64 id, vanity name or profile URL) and performs
// a fresh crawl around it.
func (e *Engine) Run(ctx context.Context, target string) (*report.Summary, error) {
	if e.client == nil {
		return nil, ErrNoClient
	}
	seed, err := e.client.ResolveIdentity(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", target, err)
	}
	e.Logger.Info("resolved target", "target", target, "seed", seed)
	return e.execute(ctx, seed, nil)
}

// ResumeLast continues the newest run of seed, or the newest run overall
// when seed is empty. The result is written to a new run directory.
func (e *Engine) ResumeLast(ctx context.Context, seed string) (*report.Summary, error) {
	if e.client == nil {
		return nil, ErrNoClient
	}
	if seed != "" {
		resolved, err := e.client.ResolveIdentity(ctx, seed)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", seed, err)
		}
		seed = resolved
	}
	run, err := e.LatestRun(ctx, seed)
	if err != nil {
		return nil, err
	}
	state, err := e.LoadState(ctx, run)
	if err != nil {
		return nil, err
	}
	e.Logger.Info("resuming run", "run", run.Dir(),
		"nodes", len(state.Nodes), "visited", len(state.Visited), "queue", len(state.Queue))
	return e.execute(ctx, state.Seed, state)
}

func (e *Engine) execute(ctx context.Context, seed string, resume *traversal.State) (summary *report.Summary, err error) {
	ctx, span := e.Tracer.Start(ctx, "Pipeline.Run", trace.WithAttributes(
		attribute.String("seed", seed),
		attribute.Bool("resumed", resume != nil),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	defer e.recoverPanic(ctx, &err)

	cfg := e.config
	started := e.now()
	run := newRunRef(seed, started)
	runID := e.newID()
	span.SetAttributes(attribute.String("run.id", runID), attribute.String("run.dir", run.Dir()))

	c := crawler.New(e.client,
		crawler.WithLogger(e.Logger),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithProgress(e.progress),
	)
	state, err := c.Crawl(ctx, seed, crawler.Params{
		MaxDepth:          cfg.Depth,
		MaxNodes:          cfg.MaxNodes,
		SkipPrivate:       cfg.SkipPrivateProfiles,
		IncludeGroupLinks: cfg.IncludeGroupLinks,
	}, resume)
	if err != nil {
		if state == nil {
			return nil, fmt.Errorf("crawl: %w", err)
		}
		// The caller's context is likely cancelled; the checkpoint must still land.
		saveCtx := context.WithoutCancel(ctx)
		if perr := e.put(saveCtx, storage.Join(run.Dir(), ScanFile), writeCheckpoint(state)); perr != nil {
			return nil, fmt.Errorf("crawl interrupted (%v) and checkpoint failed: %w", err, perr)
		}
		loc := e.store.Location(storage.Join(run.Dir(), ScanFile))
		e.Logger.Warn("crawl interrupted, checkpoint saved",
			"location", loc, "nodes", len(state.Nodes), "queue", len(state.Queue))
		return nil, fmt.Errorf("crawl interrupted, checkpoint saved to %s: %w", loc, err)
	}

	tables, err := graph.Analyze(ctx, state, cfg.HubPercentile)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	candidates := scorer.Score(state, cfg.Weights)

	var flagged []report.FlaggedRow
	if e.rules.Len() > 0 {
		matches, err := e.rules.Scan(ctx, tables.Nodes)
		if err != nil {
			return nil, fmt.Errorf("evaluate rules: %w", err)
		}
		for _, m := range matches {
			flagged = append(flagged, report.FlaggedRow{Rule: m.RuleID, Node: m.Node})
		}
	}

	summary = &report.Summary{
		RunID:     runID,
		Seed:      seed,
		SeedLabel: seed,
		Resumed:   resume != nil,
		StartedAt: started,
		Params: report.Params{
			MaxDepth:          cfg.Depth,
			MaxNodes:          cfg.MaxNodes,
			RateLimitRPM:      cfg.RateLimitRPM,
			SkipPrivate:       cfg.SkipPrivateProfiles,
			IncludeGroupLinks: cfg.IncludeGroupLinks,
			HubPercentile:     cfg.HubPercentile,
		},
		Complete:       state.Complete(),
		QueueRemaining: len(state.Queue),
		Graph:          tables.Summary,
		Candidates:     len(candidates),
		TopCandidates:  report.Top(candidates, report.TopCandidates),
		Flagged:        len(flagged),
		Location:       e.store.Location(run.Dir()),
	}
	if n, ok := state.Nodes[seed]; ok {
		summary.SeedLabel = n.Label()
	}

	artifacts := []artifact{
		{ScanFile, writeCheckpoint(state)},
		{NodesFile, func(w io.Writer) error { return report.WriteNodes(w, tables.Nodes) }},
		{EdgesFile, func(w io.Writer) error { return report.WriteEdges(w, tables.Edges) }},
		{CandidatesFile, func(w io.Writer) error { return report.WriteCandidates(w, candidates) }},
	}
	if e.rules.Len() > 0 {
		artifacts = append(artifacts, artifact{FlaggedFile, func(w io.Writer) error { return report.WriteFlagged(w, flagged) }})
	}
	for _, a := range artifacts {
		if err := e.put(ctx, storage.Join(run.Dir(), a.name), a.write); err != nil {
			return nil, err
		}
	}

	summary.FinishedAt = e.now()
	if err := e.put(ctx, storage.Join(run.Dir(), SummaryFile), func(w io.Writer) error {
		return report.WriteJSON(w, summary)
	}); err != nil {
		return nil, err
	}

	e.Logger.Info("run complete",
		"run", run.Dir(),
		"nodes", tables.Summary.Nodes,
		"edges", tables.Summary.Edges,
		"communities", tables.Summary.Communities,
		"hubs", len(tables.Summary.Hubs),
		"flagged", len(flagged),
		"complete", summary.Complete,
	)

	if e.notifier != nil {
		if err := e.notifier.SendRunSummary(ctx, *summary); err != nil {
			e.Logger.Warn("slack notification failed", "error", err)
		}
	}
	return summary, nil
}

type artifact struct {
	name  string
	write func(io.Writer) error
}

func (e *Engine) put(ctx context.Context, key string, write func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return fmt.Errorf("render %s: %w", key, err)
	}
	if err := e.store.Put(ctx, key, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func writeCheckpoint(state *traversal.State) func(io.Writer) error {
	return func(w io.Writer) error {
		data, err := state.Marshal()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
}
