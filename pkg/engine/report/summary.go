package report

import (
	"time"

	"github.com/DrSkyle/vapora/pkg/graph"
	"github.com/DrSkyle/vapora/pkg/scorer"
)

// TopCandidates is how many ranked associates the summary keeps.
const TopCandidates = 10

// Params records the crawl settings of a run.
type Params struct {
	MaxDepth          int     `json:"max_depth"`
	MaxNodes          int     `json:"max_nodes"`
	RateLimitRPM      int     `json:"rate_limit_rpm"`
	SkipPrivate       bool    `json:"skip_private_profiles"`
	IncludeGroupLinks bool    `json:"include_group_links"`
	HubPercentile     float64 `json:"hub_percentile"`
}

// Summary describes one completed run.
type Summary struct {
	RunID          string             `json:"run_id"`
	Seed           string             `json:"seed"`
	SeedLabel      string             `json:"seed_label"`
	Resumed        bool               `json:"resumed"`
	StartedAt      time.Time          `json:"started_at"`
	FinishedAt     time.Time          `json:"finished_at"`
	Params         Params             `json:"params"`
	Complete       bool               `json:"complete"`
	QueueRemaining int                `json:"queue_remaining"`
	Graph          graph.Summary      `json:"graph"`
	Candidates     int                `json:"candidates"`
	TopCandidates  []scorer.Candidate `json:"top_candidates"`
	Flagged        int                `json:"flagged"`
	Location       string             `json:"location"`
}

// Duration is the wall time of the run.
func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Top returns at most n leading candidates.
func Top(cs []scorer.Candidate, n int) []scorer.Candidate {
	if len(cs) > n {
		cs = cs[:n]
	}
	return append([]scorer.Candidate(nil), cs...)
}
