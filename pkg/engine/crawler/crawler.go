// Package crawler performs the bounded breadth-first expansion of the friend
// graph, then enriches every discovered identity and optionally links
// identities that share groups.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/DrSkyle/vapora/pkg/directory"
	"github.com/DrSkyle/vapora/pkg/engine/swarm"
	"github.com/DrSkyle/vapora/pkg/traversal"
)

// Params bounds a crawl.
type Params struct {
	MaxDepth          int
	MaxNodes          int
	SkipPrivate       bool
	IncludeGroupLinks bool
}

// Phase names a crawl stage for progress reporting.
type Phase string

const (
	PhaseCrawl  Phase = "crawl"
	PhaseEnrich Phase = "enrich"
	PhaseGroups Phase = "groups"
	PhaseDone   Phase = "done"
)

// Progress is published after every completed fetch.
type Progress struct {
	Visited int
	Nodes   int
	Queue   int
	Depth   int
	Phase   Phase
}

// ErrCheckpointOutOfBounds means a resumed state already exceeds the
// requested depth or node bound.
var ErrCheckpointOutOfBounds = errors.New("checkpoint exceeds crawl bounds")

// Crawler drives a directory client over a traversal state.
type Crawler struct {
	client   directory.Client
	pool     *swarm.Pool
	logger   *slog.Logger
	tracer   trace.Tracer
	progress func(Progress)
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets the logger for crawl progress and tolerated failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) { c.logger = l }
}

// WithWorkers sets the enrichment pool ceiling. The pool starts at half of
// it and adapts to directory throttling.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		c.pool = swarm.New(n,
			swarm.WithBounds(max(n/2, 1), 1, n),
			swarm.WithThrottleCheck(func(err error) bool {
				return errors.Is(err, directory.ErrThrottled)
			}),
		)
	}
}

// WithProgress registers a callback for progress events. It is invoked on
// the crawling goroutine and must not block.
func WithProgress(fn func(Progress)) Option {
	return func(c *Crawler) { c.progress = fn }
}

// New returns a crawler over client. Wrap client with directory.WithLimiter
// to enforce the request ceiling.
func New(client directory.Client, opts ...Option) *Crawler {
	c := &Crawler{
		client: client,
		logger: slog.Default(),
		tracer: otel.Tracer("vapora/crawler"),
	}
	WithWorkers(4)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PoolStats reports the enrichment pool counters.
func (c *Crawler) PoolStats() swarm.Stats {
	return c.pool.Stats()
}

func (c *Crawler) emit(s *traversal.State, depth int, phase Phase) {
	if c.progress == nil {
		return
	}
	c.progress(Progress{
		Visited: len(s.Visited),
		Nodes:   len(s.Nodes),
		Queue:   len(s.Queue),
		Depth:   depth,
		Phase:   phase,
	})
}

// Crawl expands the graph around seed. When resume is non-nil the crawl
// continues from a deep copy of it; resume itself is never modified. The
// returned state is always usable as a checkpoint, including alongside a
// cancellation error.
func (c *Crawler) Crawl(ctx context.Context, seed string, p Params, resume *traversal.State) (state *traversal.State, err error) {
	if p.MaxNodes < 1 {
		p.MaxNodes = 1
	}
	if p.MaxDepth < 0 {
		p.MaxDepth = 0
	}

	ctx, span := c.tracer.Start(ctx, "Crawler.Crawl", trace.WithAttributes(
		attribute.String("seed", seed),
		attribute.Int("max_depth", p.MaxDepth),
		attribute.Int("max_nodes", p.MaxNodes),
		attribute.Bool("resumed", resume != nil),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if state != nil {
			span.SetAttributes(
				attribute.Int("nodes", len(state.Nodes)),
				attribute.Int("edges", len(state.Edges)),
				attribute.Int("queue", len(state.Queue)),
			)
		}
		span.End()
	}()

	state, err = c.prepare(seed, p, resume)
	if err != nil {
		return nil, err
	}

	if err := c.expand(ctx, state, p); err != nil {
		return state, err
	}
	if err := c.enrich(ctx, state); err != nil {
		return state, err
	}
	if p.IncludeGroupLinks {
		if err := c.linkGroups(ctx, state, p.SkipPrivate); err != nil {
			return state, err
		}
	}
	c.emit(state, 0, PhaseDone)
	return state, nil
}

func (c *Crawler) prepare(seed string, p Params, resume *traversal.State) (*traversal.State, error) {
	if resume == nil {
		if seed == "" {
			return nil, errors.New("crawl requires a seed identity")
		}
		state := traversal.New(seed, p.MaxDepth)
		state.Enqueue(seed, 0)
		return state, nil
	}

	if seed != "" && seed != resume.Seed {
		return nil, fmt.Errorf("checkpoint seed %s does not match %s", resume.Seed, seed)
	}
	if deepest := resume.DeepestNode(); deepest > p.MaxDepth {
		return nil, fmt.Errorf("%w: checkpoint holds nodes at depth %d, max depth is %d",
			ErrCheckpointOutOfBounds, deepest, p.MaxDepth)
	}
	if len(resume.Nodes) > p.MaxNodes {
		return nil, fmt.Errorf("%w: checkpoint holds %d nodes, max nodes is %d",
			ErrCheckpointOutOfBounds, len(resume.Nodes), p.MaxNodes)
	}

	state := resume.Clone()
	state.Meta.Depth = p.MaxDepth
	if dropped := state.DropVisitedFromQueue(); dropped > 0 {
		c.logger.Debug("dropped stale queue entries", "count", dropped)
	}
	if dropped := state.DropDeeperFromQueue(p.MaxDepth); dropped > 0 {
		c.logger.Info("dropped queue entries beyond max depth", "count", dropped, "max_depth", p.MaxDepth)
	}
	if len(state.Queue) == 0 && !state.IsVisited(state.Seed) {
		state.Enqueue(state.Seed, 0)
	}
	c.logger.Info("resuming crawl", "seed", state.Seed, "nodes", len(state.Nodes), "queue", len(state.Queue))
	return state, nil
}

// expand runs the strictly sequential BFS.
func (c *Crawler) expand(ctx context.Context, state *traversal.State, p Params) error {
	for len(state.Queue) > 0 && len(state.Nodes) < p.MaxNodes {
		if err := ctx.Err(); err != nil {
			return err
		}

		item, _ := state.Pop()
		if state.IsVisited(item.ID) {
			continue
		}

		friends, err := c.client.Friends(ctx, item.ID)
		if err != nil {
			if ctx.Err() != nil {
				// unfinished fetch: put the identity back so the checkpoint resumes it
				state.Queue = append([]traversal.QueueItem{item}, state.Queue...)
				return ctx.Err()
			}
			c.logger.Debug("friend list unavailable", "steamid", item.ID, "error", err)
			friends = []string{}
		}

		node := state.EnsureNode(item.ID, item.Depth)
		node.Friends = friends
		for _, f := range friends {
			state.AddEdge(item.ID, f, traversal.KindFriend)
			if item.Depth+1 <= p.MaxDepth && !state.IsVisited(f) {
				state.Enqueue(f, item.Depth+1)
			}
		}
		state.MarkVisited(item.ID)
		c.emit(state, item.Depth, PhaseCrawl)

		if len(state.Nodes) >= p.MaxNodes {
			c.logger.Info("max nodes reached", "max_nodes", p.MaxNodes, "queue", len(state.Queue))
			break
		}
	}
	return nil
}

// enrich attaches summaries and ban records to every node.
func (c *Crawler) enrich(ctx context.Context, state *traversal.State) (err error) {
	ctx, span := c.tracer.Start(ctx, "Crawler.Enrich")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	batches := directory.Batches(state.NodeIDs(), directory.BatchSize)
	span.SetAttributes(attribute.Int("batches", len(batches)))
	summaries := make([]map[string]directory.Summary, len(batches))
	bans := make([]map[string]directory.BanRecord, len(batches))

	tasks := make([]swarm.Task, 0, 2*len(batches))
	for i, batch := range batches {
		tasks = append(tasks,
			func(ctx context.Context) error {
				got, err := c.client.Summaries(ctx, batch)
				summaries[i] = got
				return c.tolerate(ctx, "summaries", err)
			},
			func(ctx context.Context) error {
				got, err := c.client.Bans(ctx, batch)
				bans[i] = got
				return c.tolerate(ctx, "bans", err)
			},
		)
	}
	runErr := c.pool.Run(ctx, tasks)

	// merge whatever completed, even when cancelled
	for i := range batches {
		for id, s := range summaries[i] {
			node, ok := state.Nodes[id]
			if !ok {
				continue
			}
			node.DisplayName = s.Name
			node.ProfileURL = s.ProfileURL
			node.Public = s.Public()
		}
		for id, b := range bans[i] {
			node, ok := state.Nodes[id]
			if !ok {
				continue
			}
			rec := b
			node.Bans = &rec
		}
	}
	c.logger.Debug("enrichment finished", "batches", len(batches), "concurrency", c.pool.Stats().Concurrency)
	c.emit(state, 0, PhaseEnrich)
	return runErr
}

// tolerate downgrades per-call failures to log lines; only cancellation
// aborts the pool. Tolerated errors still reach the pool's throttle check.
func (c *Crawler) tolerate(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.logger.Debug("directory lookup failed", "op", op, "error", err)
	return swarm.Tolerated(err)
}

// linkGroups adds one group edge per unordered pair of identities sharing at
// least one group.
func (c *Crawler) linkGroups(ctx context.Context, state *traversal.State, skipPrivate bool) (err error) {
	ctx, span := c.tracer.Start(ctx, "Crawler.Groups")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var ids []string
	for _, id := range state.NodeIDs() {
		if skipPrivate && !state.Nodes[id].Public {
			continue
		}
		ids = append(ids, id)
	}

	results := make([][]string, len(ids))
	fetched := make([]bool, len(ids))
	tasks := make([]swarm.Task, len(ids))
	for i, id := range ids {
		tasks[i] = func(ctx context.Context) error {
			groups, err := c.client.Groups(ctx, id)
			if err != nil {
				return c.tolerate(ctx, "groups", err)
			}
			results[i] = groups
			fetched[i] = true
			return nil
		}
	}
	runErr := c.pool.Run(ctx, tasks)

	members := make(map[string][]string)
	var order []string
	for i, id := range ids {
		if !fetched[i] {
			continue
		}
		state.Nodes[id].Groups = results[i]
		seen := make(map[string]struct{}, len(results[i]))
		for _, g := range results[i] {
			if _, dup := seen[g]; dup {
				continue
			}
			seen[g] = struct{}{}
			if _, known := members[g]; !known {
				order = append(order, g)
			}
			members[g] = append(members[g], id)
		}
	}
	if runErr != nil {
		return runErr
	}

	added := 0
	for _, g := range order {
		m := members[g]
		for i := 0; i < len(m); i++ {
			for j := i + 1; j < len(m); j++ {
				if state.AddEdge(m[i], m[j], traversal.KindGroup) {
					added++
				}
			}
		}
	}
	span.SetAttributes(attribute.Int("group_edges", added))
	c.logger.Debug("group links added", "edges", added, "groups", len(order))
	c.emit(state, 0, PhaseGroups)
	return nil
}
