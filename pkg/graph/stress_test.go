package graph

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/vapora/pkg/traversal"
)

// A large sparse graph with duplicate and dangling edges must analyze without
// panicking and keep every derived table consistent with the node map.
func TestAnalyzeChaos(t *testing.T) {
	if testing.Short() {
		t.Skip("stress test")
	}
	const nodeCount = 2000
	rng := rand.New(rand.NewSource(7))

	s := traversal.New("node-0", 3)
	for i := 0; i < nodeCount; i++ {
		s.EnsureNode(fmt.Sprintf("node-%d", i), i%4)
	}
	for i := 0; i < nodeCount*3; i++ {
		a := fmt.Sprintf("node-%d", rng.Intn(nodeCount))
		b := fmt.Sprintf("node-%d", rng.Intn(nodeCount))
		s.Edges = append(s.Edges, traversal.Edge{A: a, B: b, Kind: traversal.KindFriend})
	}
	for i := 0; i < 100; i++ {
		s.Edges = append(s.Edges, traversal.Edge{A: "node-1", B: fmt.Sprintf("ghost-%d", i), Kind: traversal.KindFriend})
	}

	start := time.Now()
	tables, err := Analyze(context.Background(), s, 0.99)
	require.NoError(t, err)
	t.Logf("analyzed %d nodes, %d edges in %v", tables.Summary.Nodes, tables.Summary.Edges, time.Since(start))

	assert.Len(t, tables.Nodes, nodeCount)
	assert.Equal(t, len(tables.Edges), tables.Summary.Edges)
	assert.GreaterOrEqual(t, tables.Summary.DroppedEdges, 100)
	assert.NotEmpty(t, tables.Summary.Hubs)

	degrees := 0
	for _, n := range tables.Nodes {
		assert.GreaterOrEqual(t, n.Betweenness, 0.0)
		assert.LessOrEqual(t, n.Betweenness, 1.0)
		assert.GreaterOrEqual(t, n.Community, 0)
		degrees += n.Degree
	}
	assert.Equal(t, 2*tables.Summary.Edges, degrees)
}

func TestAnalyzeCancelled(t *testing.T) {
	s := stateWith("a", []string{"a", "b"}, [2]string{"a", "b"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Analyze(ctx, s, 0.99)
	assert.ErrorIs(t, err, context.Canceled)
}
