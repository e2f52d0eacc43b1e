package engine

import (
	"context"
	"fmt"
)

// EstimateSample bounds how many seed friends are probed by Estimate.
const EstimateSample = 50

// Estimate is a dry-run projection of a depth-2 crawl.
type Estimate struct {
	Seed        string  `json:"seed"`
	SeedFriends int     `json:"seed_friends"`
	Sampled     int     `json:"sampled"`
	AvgFriends  float64 `json:"avg_friends"`
	Nodes       int     `json:"estimated_nodes"`
	MaxNodes    int     `json:"max_nodes"`
}

// Estimate fetches the seed's friends and the friend lists of up to
// EstimateSample of them, then projects min(max_nodes, unique + avg*5).
// Failed samples are left out of the average.
func (e *Engine) Estimate(ctx context.Context, target string) (*Estimate, error) {
	if e.client == nil {
		return nil, ErrNoClient
	}
	seed, err := e.client.ResolveIdentity(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", target, err)
	}
	friends, err := e.client.Friends(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("fetch seed friends: %w", err)
	}

	unique := make(map[string]struct{}, len(friends))
	for _, f := range friends {
		unique[f] = struct{}{}
	}

	sample := friends[:min(EstimateSample, len(friends))]
	total, ok := 0, 0
	for _, f := range sample {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		list, err := e.client.Friends(ctx, f)
		if err != nil {
			e.Logger.Debug("estimate sample failed", "id", f, "error", err)
			continue
		}
		total += len(list)
		ok++
	}

	est := &Estimate{
		Seed:        seed,
		SeedFriends: len(friends),
		Sampled:     ok,
		MaxNodes:    e.config.MaxNodes,
	}
	if ok > 0 {
		est.AvgFriends = float64(total) / float64(ok)
	}
	est.Nodes = min(e.config.MaxNodes, int(float64(len(unique))+est.AvgFriends*5))
	return est, nil
}
