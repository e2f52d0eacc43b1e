// Package graph turns a crawl snapshot into per-identity structural metrics:
// degree, betweenness, Louvain communities and hub flags.
package graph

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/DrSkyle/vapora/pkg/traversal"
)

var tracer = otel.Tracer("vapora/graph")

// NodeRow is one vertex of the exported node table.
type NodeRow struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Degree      int     `json:"degree"`
	Betweenness float64 `json:"betweenness"`
	Community   int     `json:"community"`
	IsSeed      bool    `json:"is_seed"`
	IsHub       bool    `json:"is_hub"`
	IsBanned    bool    `json:"is_banned"`
	IsPublic    bool    `json:"is_public"`
	Depth       int     `json:"depth"`
}

// EdgeRow is one cleaned edge.
type EdgeRow struct {
	Source string             `json:"source"`
	Target string             `json:"target"`
	Kind   traversal.EdgeKind `json:"kind"`
}

// Summary aggregates graph-level figures.
type Summary struct {
	Nodes        int      `json:"nodes"`
	Edges        int      `json:"edges"`
	DroppedEdges int      `json:"dropped_edges"`
	Components   int      `json:"components"`
	Communities  int      `json:"communities"`
	Modularity   float64  `json:"modularity"`
	HubCutoff    float64  `json:"hub_cutoff"`
	Hubs         []string `json:"hubs"`
}

// Tables is the analysis result.
type Tables struct {
	Nodes   []NodeRow
	Edges   []EdgeRow
	Summary Summary
}

// CleanEdges drops edges that touch identities missing from the node map or
// repeat an unordered pair and kind. The first occurrence keeps its
// orientation.
func CleanEdges(state *traversal.State) []traversal.Edge {
	seen := make(map[traversal.EdgeKey]struct{}, len(state.Edges))
	out := make([]traversal.Edge, 0, len(state.Edges))
	for _, e := range state.Edges {
		if e.A == "" || e.B == "" || e.A == e.B {
			continue
		}
		if _, ok := state.Nodes[e.A]; !ok {
			continue
		}
		if _, ok := state.Nodes[e.B]; !ok {
			continue
		}
		if e.Kind == "" {
			e.Kind = traversal.KindFriend
		}
		key := e.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

// HubCutoff returns the betweenness value at rank max(0, floor(N·p)-1) of
// the descending scores.
func HubCutoff(scores []float64, percentile float64) float64 {
	if len(scores) == 0 {
		return math.Inf(1)
	}
	sorted := append([]float64(nil), scores...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	idx := int(math.Floor(float64(len(sorted))*percentile)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

var labelCleaner = strings.NewReplacer("\r", " ", "\n", " ")

// Analyze computes the node and edge tables for state. The state is read
// only.
func Analyze(ctx context.Context, state *traversal.State, hubPercentile float64) (_ *Tables, err error) {
	ctx, span := tracer.Start(ctx, "graph.Analyze")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if state == nil {
		return nil, fmt.Errorf("analyze: nil state")
	}
	if hubPercentile <= 0 || hubPercentile > 1 {
		return nil, fmt.Errorf("analyze: hub percentile %v outside (0, 1]", hubPercentile)
	}

	edges := CleanEdges(state)
	pairs := make([][2]string, len(edges))
	for i, e := range edges {
		pairs[i] = [2]string{e.A, e.B}
	}
	g := Build(state.NodeIDs(), pairs)
	span.SetAttributes(attribute.Int("nodes", g.Order()), attribute.Int("edges", g.Size()))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bet := Betweenness(g)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	communities := Louvain(g)

	hasEdges := g.Size() > 0
	cutoff := HubCutoff(bet, hubPercentile)

	t := &Tables{
		Nodes: make([]NodeRow, g.Order()),
		Edges: make([]EdgeRow, len(edges)),
	}
	numCommunities := 0
	for i, id := range g.IDs {
		n := state.Nodes[id]
		label := strings.TrimSpace(labelCleaner.Replace(n.Label()))
		if label == "" {
			label = id
		}
		row := NodeRow{
			ID:          id,
			Label:       label,
			Degree:      g.Degree(i),
			Betweenness: bet[i],
			Community:   communities[i],
			IsSeed:      id == state.Seed,
			IsHub:       hasEdges && bet[i] >= cutoff,
			IsBanned:    n.Bans.Banned(),
			IsPublic:    n.Public,
			Depth:       n.Depth,
		}
		if row.IsHub {
			t.Summary.Hubs = append(t.Summary.Hubs, id)
		}
		if communities[i]+1 > numCommunities {
			numCommunities = communities[i] + 1
		}
		t.Nodes[i] = row
	}
	for i, e := range edges {
		t.Edges[i] = EdgeRow{Source: e.A, Target: e.B, Kind: e.Kind}
	}

	t.Summary.Nodes = g.Order()
	t.Summary.Edges = len(edges)
	t.Summary.DroppedEdges = len(state.Edges) - len(edges)
	t.Summary.Components = g.Components()
	t.Summary.Communities = numCommunities
	t.Summary.Modularity = Modularity(g, communities)
	if hasEdges {
		t.Summary.HubCutoff = cutoff
	}
	span.SetAttributes(
		attribute.Int("communities", numCommunities),
		attribute.Int("hubs", len(t.Summary.Hubs)),
	)
	return t, nil
}
