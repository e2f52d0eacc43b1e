package sink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DrSkyle/vapora/pkg/graph"
	"github.com/DrSkyle/vapora/pkg/traversal"
)

// DefaultBatchSize bounds the rows sent per UNWIND statement.
const DefaultBatchSize = 500

const (
	constraintCypher = `CREATE CONSTRAINT identity_steamid IF NOT EXISTS
FOR (p:Identity) REQUIRE p.steamid IS UNIQUE`

	nodeCypher = `UNWIND $rows AS row
MERGE (p:Identity {steamid: row.id})
SET p.label = row.label,
    p.degree = row.degree,
    p.betweenness = row.betweenness,
    p.community = row.community,
    p.is_hub = row.is_hub,
    p.is_banned = row.is_banned,
    p.is_public = row.is_public,
    p.depth = row.depth,
    p.last_run = $run`

	seedCypher = `MATCH (p:Identity {steamid: $seed}) SET p:Seed`
)

func edgeCypher(kind traversal.EdgeKind) string {
	rel := "FRIEND"
	if kind == traversal.KindGroup {
		rel = "SHARES_GROUP"
	}
	return `UNWIND $rows AS row
MATCH (a:Identity {steamid: row.source})
MATCH (b:Identity {steamid: row.target})
MERGE (a)-[r:` + rel + `]-(b)
SET r.last_run = $run`
}

// PushStats reports what Push sent.
type PushStats struct {
	Nodes      int
	Edges      int
	Statements int
}

// Pusher writes analysis tables to a graph database.
type Pusher struct {
	client    Client
	batchSize int
	logger    *slog.Logger
}

type PushOption func(*Pusher)

func WithBatchSize(n int) PushOption {
	return func(p *Pusher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithLogger(l *slog.Logger) PushOption {
	return func(p *Pusher) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewPusher(client Client, opts ...PushOption) *Pusher {
	p := &Pusher{client: client, batchSize: DefaultBatchSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Push merges every node row, then every edge row, tagging each with runID.
// Re-pushing the same run is idempotent.
func (p *Pusher) Push(ctx context.Context, runID, seed string, tables *graph.Tables) (PushStats, error) {
	var stats PushStats
	if tables == nil {
		return stats, fmt.Errorf("push: nil tables")
	}

	if _, err := p.client.ExecuteWrite(ctx, constraintCypher, nil); err != nil {
		return stats, fmt.Errorf("ensure constraint: %w", err)
	}
	stats.Statements++

	nodeRows := make([]any, len(tables.Nodes))
	for i, n := range tables.Nodes {
		nodeRows[i] = map[string]any{
			"id":          n.ID,
			"label":       n.Label,
			"degree":      int64(n.Degree),
			"betweenness": n.Betweenness,
			"community":   int64(n.Community),
			"is_hub":      n.IsHub,
			"is_banned":   n.IsBanned,
			"is_public":   n.IsPublic,
			"depth":       int64(n.Depth),
		}
	}
	sent, err := p.batches(ctx, nodeCypher, runID, nodeRows)
	stats.Statements += sent
	if err != nil {
		return stats, fmt.Errorf("push nodes: %w", err)
	}
	stats.Nodes = len(nodeRows)

	byKind := map[traversal.EdgeKind][]any{}
	for _, e := range tables.Edges {
		byKind[e.Kind] = append(byKind[e.Kind], map[string]any{"source": e.Source, "target": e.Target})
	}
	for _, kind := range []traversal.EdgeKind{traversal.KindFriend, traversal.KindGroup} {
		rows := byKind[kind]
		if len(rows) == 0 {
			continue
		}
		sent, err := p.batches(ctx, edgeCypher(kind), runID, rows)
		stats.Statements += sent
		if err != nil {
			return stats, fmt.Errorf("push %s edges: %w", kind, err)
		}
		stats.Edges += len(rows)
	}

	if seed != "" {
		if _, err := p.client.ExecuteWrite(ctx, seedCypher, map[string]any{"seed": seed}); err != nil {
			return stats, fmt.Errorf("mark seed: %w", err)
		}
		stats.Statements++
	}

	p.logger.Info("pushed run to graph database",
		"run", runID, "nodes", stats.Nodes, "edges", stats.Edges, "statements", stats.Statements)
	return stats, nil
}

func (p *Pusher) batches(ctx context.Context, cypher, runID string, rows []any) (int, error) {
	sent := 0
	for start := 0; start < len(rows); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		end := min(start+p.batchSize, len(rows))
		params := map[string]any{"rows": rows[start:end], "run": runID}
		if _, err := p.client.ExecuteWrite(ctx, cypher, params); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
