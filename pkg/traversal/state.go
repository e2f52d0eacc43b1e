// Package traversal holds the resumable BFS frontier and everything the crawl
// has discovered so far. A State is a plain value: the crawler receives one,
// clones it, and returns the new snapshot.
package traversal

import "sort"

// EdgeKind tags how two identities are related.
type EdgeKind string

const (
	KindFriend EdgeKind = "friend"
	KindGroup  EdgeKind = "group"
)

// BanRecord mirrors the directory's ban payload.
type BanRecord struct {
	VACBanned        bool `json:"VACBanned"`
	NumberOfVACBans  int  `json:"NumberOfVACBans"`
	NumberOfGameBans int  `json:"NumberOfGameBans"`
}

// Banned reports whether the record carries any ban.
func (b *BanRecord) Banned() bool {
	if b == nil {
		return false
	}
	return b.VACBanned || b.NumberOfGameBans > 0
}

// Node is one discovered identity.
type Node struct {
	ID          string     `json:"steamid"`
	DisplayName string     `json:"personaname,omitempty"`
	ProfileURL  string     `json:"profileurl,omitempty"`
	Public      bool       `json:"is_public"`
	Friends     []string   `json:"friends"` // nil until crawled
	Bans        *BanRecord `json:"bans,omitempty"`
	Groups      []string   `json:"groups"` // nil unless group linking ran
	Depth       int        `json:"depth"`
}

// Label is the display name, falling back to the identity.
func (n *Node) Label() string {
	if n.DisplayName != "" {
		return n.DisplayName
	}
	return n.ID
}

func (n *Node) clone() *Node {
	c := *n
	if n.Friends != nil {
		c.Friends = append(make([]string, 0, len(n.Friends)), n.Friends...)
	}
	if n.Groups != nil {
		c.Groups = append(make([]string, 0, len(n.Groups)), n.Groups...)
	}
	if n.Bans != nil {
		b := *n.Bans
		c.Bans = &b
	}
	return &c
}

// Edge is an undirected relation between two identities.
type Edge struct {
	A    string   `json:"a"`
	B    string   `json:"b"`
	Kind EdgeKind `json:"type"`
}

// EdgeKey identifies an edge irrespective of direction.
type EdgeKey struct {
	Lo, Hi string
	Kind   EdgeKind
}

// Key returns the unordered key of e.
func (e Edge) Key() EdgeKey {
	if e.A < e.B {
		return EdgeKey{Lo: e.A, Hi: e.B, Kind: e.Kind}
	}
	return EdgeKey{Lo: e.B, Hi: e.A, Kind: e.Kind}
}

// QueueItem is a pending (identity, depth) pair.
type QueueItem struct {
	ID    string
	Depth int
}

// Meta carries crawl parameters persisted with the checkpoint.
type Meta struct {
	Depth int `json:"depth"`
}

// State is the unit of resumability.
type State struct {
	Seed    string
	Nodes   map[string]*Node
	Edges   []Edge
	Visited []string
	Queue   []QueueItem
	Meta    Meta

	visited map[string]struct{}
	edges   map[EdgeKey]struct{}
}

// New returns an empty state for seed.
func New(seed string, maxDepth int) *State {
	s := &State{
		Seed:  seed,
		Nodes: make(map[string]*Node),
		Meta:  Meta{Depth: maxDepth},
	}
	s.reindex()
	return s
}

func (s *State) reindex() {
	s.visited = make(map[string]struct{}, len(s.Visited))
	for _, id := range s.Visited {
		s.visited[id] = struct{}{}
	}
	s.edges = make(map[EdgeKey]struct{}, len(s.Edges))
	for _, e := range s.Edges {
		s.edges[e.Key()] = struct{}{}
	}
}

// Clone returns a deep copy that shares nothing with s.
func (s *State) Clone() *State {
	c := &State{
		Seed:    s.Seed,
		Nodes:   make(map[string]*Node, len(s.Nodes)),
		Edges:   append([]Edge(nil), s.Edges...),
		Visited: append([]string(nil), s.Visited...),
		Queue:   append([]QueueItem(nil), s.Queue...),
		Meta:    s.Meta,
	}
	for id, n := range s.Nodes {
		c.Nodes[id] = n.clone()
	}
	c.reindex()
	return c
}

// IsVisited reports whether id's friend list has been fetched.
func (s *State) IsVisited(id string) bool {
	_, ok := s.visited[id]
	return ok
}

// MarkVisited records id as crawl-complete.
func (s *State) MarkVisited(id string) {
	if s.IsVisited(id) {
		return
	}
	s.visited[id] = struct{}{}
	s.Visited = append(s.Visited, id)
}

// EnsureNode returns the node for id, creating it at depth if absent.
// An existing node keeps its original depth.
func (s *State) EnsureNode(id string, depth int) *Node {
	if n, ok := s.Nodes[id]; ok {
		return n
	}
	n := &Node{ID: id, Depth: depth}
	s.Nodes[id] = n
	return n
}

// AddEdge appends an edge unless it is a self-loop or already present in
// either direction. It reports whether the edge was added.
func (s *State) AddEdge(a, b string, kind EdgeKind) bool {
	if a == "" || b == "" || a == b {
		return false
	}
	e := Edge{A: a, B: b, Kind: kind}
	key := e.Key()
	if _, ok := s.edges[key]; ok {
		return false
	}
	s.edges[key] = struct{}{}
	s.Edges = append(s.Edges, e)
	return true
}

// Enqueue appends a pending identity.
func (s *State) Enqueue(id string, depth int) {
	s.Queue = append(s.Queue, QueueItem{ID: id, Depth: depth})
}

// Pop removes the head of the queue.
func (s *State) Pop() (QueueItem, bool) {
	if len(s.Queue) == 0 {
		return QueueItem{}, false
	}
	item := s.Queue[0]
	s.Queue = s.Queue[1:]
	return item, true
}

// DropVisitedFromQueue removes stale queue entries whose identity was visited
// through another path. Order of the remaining entries is preserved.
func (s *State) DropVisitedFromQueue() int {
	kept := s.Queue[:0]
	dropped := 0
	for _, item := range s.Queue {
		if s.IsVisited(item.ID) {
			dropped++
			continue
		}
		kept = append(kept, item)
	}
	s.Queue = kept
	return dropped
}

// DropDeeperFromQueue removes queue entries beyond maxDepth. Order of the
// remaining entries is preserved.
func (s *State) DropDeeperFromQueue(maxDepth int) int {
	kept := s.Queue[:0]
	dropped := 0
	for _, item := range s.Queue {
		if item.Depth > maxDepth {
			dropped++
			continue
		}
		kept = append(kept, item)
	}
	s.Queue = kept
	return dropped
}

// DeepestNode returns the largest discovery depth in the node map, or -1
// when the map is empty.
func (s *State) DeepestNode() int {
	deepest := -1
	for _, n := range s.Nodes {
		if n.Depth > deepest {
			deepest = n.Depth
		}
	}
	return deepest
}

// NodeIDs returns the node identities in sorted order.
func (s *State) NodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Complete reports whether the frontier is exhausted.
func (s *State) Complete() bool {
	return len(s.Queue) == 0
}
