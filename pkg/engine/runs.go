package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/DrSkyle/vapora/pkg/engine/report"
	"github.com/DrSkyle/vapora/pkg/storage"
	"github.com/DrSkyle/vapora/pkg/traversal"
)

// Run directory layout, relative to the output store.
const (
	StampLayout    = "20060102_150405"
	ScanFile       = "scan.json"
	NodesFile      = "gephi/nodes.csv"
	EdgesFile      = "gephi/edges.csv"
	CandidatesFile = "probable_friends.csv"
	FlaggedFile    = "flagged_nodes.csv"
	SummaryFile    = "summary.json"
)

// RunRef names one run directory: <seed>/<stamp>.
type RunRef struct {
	Seed  string `json:"seed"`
	Stamp string `json:"stamp"`
}

// Dir is the store key prefix of the run.
func (r RunRef) Dir() string { return storage.Join(r.Seed, r.Stamp) }

// Time parses the stamp. The zero time is returned for foreign names.
func (r RunRef) Time() time.Time {
	t, err := time.ParseInLocation(StampLayout, r.Stamp, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

func newRunRef(seed string, at time.Time) RunRef {
	return RunRef{Seed: seed, Stamp: at.Format(StampLayout)}
}

// ParseRunRef accepts "<seed>/<stamp>".
func ParseRunRef(s string) (RunRef, error) {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RunRef{}, fmt.Errorf("run %q: want <seed>/<stamp>", s)
	}
	return RunRef{Seed: parts[0], Stamp: parts[1]}, nil
}

// ListRuns returns every run holding a checkpoint, oldest first per seed.
// An empty seed lists all seeds.
func (e *Engine) ListRuns(ctx context.Context, seed string) ([]RunRef, error) {
	keys, err := e.store.List(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	var runs []RunRef
	for _, key := range keys {
		parts := strings.Split(key, "/")
		if len(parts) != 3 || parts[2] != ScanFile {
			continue
		}
		if seed != "" && parts[0] != seed {
			continue
		}
		runs = append(runs, RunRef{Seed: parts[0], Stamp: parts[1]})
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].Seed != runs[j].Seed {
			return runs[i].Seed < runs[j].Seed
		}
		return runs[i].Stamp < runs[j].Stamp
	})
	return runs, nil
}

// LatestRun returns the newest run for seed, or across all seeds when seed
// is empty. Stamps order lexicographically.
func (e *Engine) LatestRun(ctx context.Context, seed string) (RunRef, error) {
	runs, err := e.ListRuns(ctx, seed)
	if err != nil {
		return RunRef{}, err
	}
	if len(runs) == 0 {
		if seed == "" {
			return RunRef{}, ErrNoSeed
		}
		return RunRef{}, fmt.Errorf("%w for seed %s", ErrNoSeed, seed)
	}
	latest := runs[0]
	for _, r := range runs[1:] {
		if r.Stamp > latest.Stamp || (r.Stamp == latest.Stamp && r.Seed > latest.Seed) {
			latest = r
		}
	}
	return latest, nil
}

// ResolveRun turns a user reference into a run: "" is the newest run, a
// bare seed is that seed's newest run, "<seed>/<stamp>" is taken as is.
func (e *Engine) ResolveRun(ctx context.Context, ref string) (RunRef, error) {
	ref = strings.Trim(ref, "/")
	if strings.Contains(ref, "/") {
		return ParseRunRef(ref)
	}
	return e.LatestRun(ctx, ref)
}

// LoadState reads and validates the checkpoint of run.
func (e *Engine) LoadState(ctx context.Context, run RunRef) (*traversal.State, error) {
	data, err := e.store.Get(ctx, storage.Join(run.Dir(), ScanFile))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s has no checkpoint", ErrNoSeed, run.Dir())
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	state, err := traversal.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", run.Dir(), err)
	}
	return state, nil
}

// LoadSummary reads the summary of run. Interrupted runs have none and
// return storage.ErrNotFound.
func (e *Engine) LoadSummary(ctx context.Context, run RunRef) (*report.Summary, error) {
	data, err := e.store.Get(ctx, storage.Join(run.Dir(), SummaryFile))
	if err != nil {
		return nil, err
	}
	var s report.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &s, nil
}
