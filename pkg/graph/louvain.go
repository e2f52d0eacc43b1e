package graph

import "sort"

// minGain is the smallest modularity gain treated as an improvement.
const minGain = 1e-12

type arc struct {
	to int
	w  float64
}

// weighted is the working graph of one Louvain level. Loops are kept apart
// from the adjacency so that vertex degree counts them twice.
type weighted struct {
	nbrs [][]arc
	loop []float64
	deg  []float64
	m    float64
}

func fromUndirected(g *Undirected) *weighted {
	n := g.Order()
	w := &weighted{
		nbrs: make([][]arc, n),
		loop: make([]float64, n),
		deg:  make([]float64, n),
		m:    float64(g.Size()),
	}
	for i, adj := range g.adj {
		w.nbrs[i] = make([]arc, len(adj))
		for k, j := range adj {
			w.nbrs[i][k] = arc{to: j, w: 1}
		}
		w.deg[i] = float64(len(adj))
	}
	return w
}

// Louvain partitions g by greedy modularity maximisation. Vertices are
// visited in index order and ties keep the earliest candidate, so the result
// is fully deterministic. Community labels are numbered by first appearance
// in vertex order; isolated vertices end up as singletons.
func Louvain(g *Undirected) []int {
	n := g.Order()
	membership := make([]int, n)
	for i := range membership {
		membership[i] = i
	}
	if g.Size() == 0 {
		return membership
	}

	level := fromUndirected(g)
	for {
		comm, moved := level.movePass()
		if !moved {
			break
		}
		comm, k := relabel(comm)
		for i := range membership {
			membership[i] = comm[membership[i]]
		}
		if k == len(level.nbrs) {
			break
		}
		level = level.aggregate(comm, k)
	}
	membership, _ = relabel(membership)
	return membership
}

// movePass repeatedly moves single vertices to the neighbouring community
// with the best modularity gain until no vertex moves.
func (w *weighted) movePass() ([]int, bool) {
	n := len(w.nbrs)
	comm := make([]int, n)
	tot := make([]float64, n)
	for i := range comm {
		comm[i] = i
		tot[i] = w.deg[i]
	}

	m2 := 2 * w.m * w.m
	improved := false
	for {
		moves := 0
		for u := 0; u < n; u++ {
			own := comm[u]
			deg := w.deg[u]

			// edge weight from u into each neighbouring community, in
			// first-seen order
			links := make(map[int]float64)
			var order []int
			for _, a := range w.nbrs[u] {
				c := comm[a.to]
				if _, seen := links[c]; !seen {
					order = append(order, c)
				}
				links[c] += a.w
			}

			tot[own] -= deg
			removeCost := -links[own]/w.m + tot[own]*deg/m2

			best, bestGain := own, 0.0
			for _, c := range order {
				gain := removeCost + links[c]/w.m - tot[c]*deg/m2
				if gain > bestGain+minGain {
					best, bestGain = c, gain
				}
			}
			tot[best] += deg
			if best != own {
				comm[u] = best
				moves++
			}
		}
		if moves == 0 {
			break
		}
		improved = true
	}
	return comm, improved
}

// aggregate collapses each community into one vertex.
func (w *weighted) aggregate(comm []int, k int) *weighted {
	next := &weighted{
		nbrs: make([][]arc, k),
		loop: make([]float64, k),
		deg:  make([]float64, k),
		m:    w.m,
	}
	between := make([]map[int]float64, k)
	for u := range w.nbrs {
		cu := comm[u]
		next.loop[cu] += w.loop[u]
		next.deg[cu] += w.deg[u]
		for _, a := range w.nbrs[u] {
			if a.to < u {
				continue
			}
			cv := comm[a.to]
			if cu == cv {
				next.loop[cu] += a.w
				continue
			}
			if between[cu] == nil {
				between[cu] = make(map[int]float64)
			}
			if between[cv] == nil {
				between[cv] = make(map[int]float64)
			}
			between[cu][cv] += a.w
			between[cv][cu] += a.w
		}
	}
	for c, row := range between {
		keys := make([]int, 0, len(row))
		for d := range row {
			keys = append(keys, d)
		}
		sort.Ints(keys)
		for _, d := range keys {
			next.nbrs[c] = append(next.nbrs[c], arc{to: d, w: row[d]})
		}
	}
	return next
}

// relabel renumbers labels 0..k-1 by first appearance.
func relabel(labels []int) ([]int, int) {
	seen := make(map[int]int)
	out := make([]int, len(labels))
	for i, l := range labels {
		id, ok := seen[l]
		if !ok {
			id = len(seen)
			seen[l] = id
		}
		out[i] = id
	}
	return out, len(seen)
}

// Modularity scores a partition of g.
func Modularity(g *Undirected, membership []int) float64 {
	m := float64(g.Size())
	if m == 0 {
		return 0
	}
	internal := make([]float64, len(membership))
	degree := make([]float64, len(membership))
	for i, adj := range g.adj {
		c := membership[i]
		degree[c] += float64(len(adj))
		for _, j := range adj {
			if i < j && membership[j] == c {
				internal[c]++
			}
		}
	}
	q := 0.0
	for c, d := range degree {
		if d == 0 {
			continue
		}
		q += internal[c]/m - (d/(2*m))*(d/(2*m))
	}
	return q
}
