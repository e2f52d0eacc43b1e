package graph

import "sort"

// Undirected is a simple graph over dense vertex indices. Vertex i carries
// identity IDs[i]; IDs are sorted so every derived ordering is reproducible.
type Undirected struct {
	IDs   []string
	index map[string]int
	adj   [][]int
	edges int
}

// NewUndirected returns a graph with one vertex per identity and no edges.
func NewUndirected(ids []string) *Undirected {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	g := &Undirected{index: make(map[string]int, len(sorted))}
	for _, id := range sorted {
		if _, dup := g.index[id]; dup {
			continue
		}
		g.index[id] = len(g.IDs)
		g.IDs = append(g.IDs, id)
	}
	g.adj = make([][]int, len(g.IDs))
	return g
}

// Index returns the vertex index of id.
func (g *Undirected) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Connect adds the edge a-b unless it is a loop, unknown, or already present.
func (g *Undirected) Connect(a, b string) bool {
	i, okA := g.index[a]
	j, okB := g.index[b]
	if !okA || !okB || i == j {
		return false
	}
	for _, n := range g.adj[i] {
		if n == j {
			return false
		}
	}
	g.adj[i] = append(g.adj[i], j)
	g.adj[j] = append(g.adj[j], i)
	g.edges++
	return true
}

// Order is the vertex count.
func (g *Undirected) Order() int { return len(g.IDs) }

// Size is the edge count.
func (g *Undirected) Size() int { return g.edges }

// Degree returns the number of neighbours of vertex i.
func (g *Undirected) Degree(i int) int { return len(g.adj[i]) }

// Neighbors returns the adjacency of vertex i, in ascending index order for
// graphs made by Build.
func (g *Undirected) Neighbors(i int) []int { return g.adj[i] }

// Build returns the graph over ids with the given identity pairs connected.
func Build(ids []string, pairs [][2]string) *Undirected {
	g := NewUndirected(ids)
	for _, p := range pairs {
		g.Connect(p[0], p[1])
	}
	g.finalize()
	return g
}

// finalize sorts adjacency lists so traversal order does not depend on edge
// insertion order.
func (g *Undirected) finalize() {
	for _, a := range g.adj {
		sort.Ints(a)
	}
}

// Components counts connected components.
func (g *Undirected) Components() int {
	uf := NewUnionFind(g.Order())
	for i, nbrs := range g.adj {
		for _, j := range nbrs {
			if i < j {
				uf.Union(i, j)
			}
		}
	}
	return uf.Count()
}
