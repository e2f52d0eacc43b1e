package graph

// UnionFind is a disjoint-set forest with path compression and union by
// rank.
type UnionFind struct {
	parent []int
	rank   []int
	sets   int
}

// NewUnionFind initializes n singleton sets.
func NewUnionFind(n int) *UnionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &UnionFind{parent: parent, rank: make([]int, n), sets: n}
}

// Find returns the set representative of i, or -1 when out of range.
func (uf *UnionFind) Find(i int) int {
	if i < 0 || i >= len(uf.parent) {
		return -1
	}
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

// Union merges the sets holding i and j.
func (uf *UnionFind) Union(i, j int) {
	ri, rj := uf.Find(i), uf.Find(j)
	if ri == -1 || rj == -1 || ri == rj {
		return
	}
	switch {
	case uf.rank[ri] < uf.rank[rj]:
		uf.parent[ri] = rj
	case uf.rank[ri] > uf.rank[rj]:
		uf.parent[rj] = ri
	default:
		uf.parent[rj] = ri
		uf.rank[ri]++
	}
	uf.sets--
}

// Connected reports whether i and j share a set.
func (uf *UnionFind) Connected(i, j int) bool {
	return uf.Find(i) == uf.Find(j)
}

// Count is the number of disjoint sets.
func (uf *UnionFind) Count() int { return uf.sets }
