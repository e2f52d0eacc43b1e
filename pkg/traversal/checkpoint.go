package traversal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorruptCheckpoint is returned when a checkpoint lacks required fields or
// cannot be decoded. Callers must not fall back to a fresh crawl.
var ErrCorruptCheckpoint = errors.New("corrupt checkpoint")

var requiredFields = []string{"seed", "nodes", "edges", "visited", "queue", "meta"}

type checkpoint struct {
	Seed    string           `json:"seed"`
	Nodes   map[string]*Node `json:"nodes"`
	Edges   []Edge           `json:"edges"`
	Visited []string         `json:"visited"`
	Queue   []QueueItem      `json:"queue"`
	Meta    *Meta            `json:"meta"`
}

// MarshalJSON encodes the item as an [identity, depth] pair.
func (q QueueItem) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{q.ID, q.Depth})
}

// UnmarshalJSON decodes an [identity, depth] pair.
func (q *QueueItem) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("queue entry: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("queue entry has %d elements, want 2", len(pair))
	}
	if err := json.Unmarshal(pair[0], &q.ID); err != nil {
		return fmt.Errorf("queue entry identity: %w", err)
	}
	if err := json.Unmarshal(pair[1], &q.Depth); err != nil {
		return fmt.Errorf("queue entry depth: %w", err)
	}
	return nil
}

// Marshal encodes the state as an indented checkpoint document.
func (s *State) Marshal() ([]byte, error) {
	cp := checkpoint{
		Seed:    s.Seed,
		Nodes:   s.Nodes,
		Edges:   s.Edges,
		Visited: s.Visited,
		Queue:   s.Queue,
		Meta:    &s.Meta,
	}
	if cp.Nodes == nil {
		cp.Nodes = map[string]*Node{}
	}
	if cp.Edges == nil {
		cp.Edges = []Edge{}
	}
	if cp.Visited == nil {
		cp.Visited = []string{}
	}
	if cp.Queue == nil {
		cp.Queue = []QueueItem{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cp); err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes and validates a checkpoint. Stale queue entries that
// reference visited identities are dropped.
func Unmarshal(data []byte) (*State, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCheckpoint, err)
	}
	for _, field := range requiredFields {
		v, ok := raw[field]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return nil, fmt.Errorf("%w: missing %q", ErrCorruptCheckpoint, field)
		}
	}

	var cp checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCheckpoint, err)
	}
	if cp.Seed == "" {
		return nil, fmt.Errorf("%w: empty seed", ErrCorruptCheckpoint)
	}
	var meta map[string]json.RawMessage
	if err := json.Unmarshal(raw["meta"], &meta); err != nil {
		return nil, fmt.Errorf("%w: meta: %v", ErrCorruptCheckpoint, err)
	}
	if _, ok := meta["depth"]; !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrCorruptCheckpoint, "meta.depth")
	}

	for id, n := range cp.Nodes {
		if n == nil {
			return nil, fmt.Errorf("%w: node %q is null", ErrCorruptCheckpoint, id)
		}
		if n.ID == "" {
			n.ID = id
		}
		if n.ID != id {
			return nil, fmt.Errorf("%w: node key %q holds %q", ErrCorruptCheckpoint, id, n.ID)
		}
	}
	for _, item := range cp.Queue {
		if item.ID == "" || item.Depth < 0 {
			return nil, fmt.Errorf("%w: invalid queue entry %v", ErrCorruptCheckpoint, item)
		}
	}

	s := &State{
		Seed:    cp.Seed,
		Nodes:   cp.Nodes,
		Edges:   cp.Edges,
		Visited: cp.Visited,
		Queue:   cp.Queue,
		Meta:    *cp.Meta,
	}
	s.reindex()
	s.DropVisitedFromQueue()
	return s, nil
}
