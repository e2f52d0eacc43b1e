// Package scorer ranks the seed's direct friends as probable close
// associates.
package scorer

import (
	"sort"

	"github.com/DrSkyle/vapora/pkg/traversal"
)

// Weights scale each scoring term.
type Weights struct {
	Mutual  float64 `mapstructure:"mutual" yaml:"mutual" json:"mutual"`
	Jaccard float64 `mapstructure:"jaccard" yaml:"jaccard" json:"jaccard"`
	Groups  float64 `mapstructure:"groups" yaml:"groups" json:"groups"`
	Games   float64 `mapstructure:"games" yaml:"games" json:"games"`
}

// DefaultWeights returns the stock weighting.
func DefaultWeights() Weights {
	return Weights{Mutual: 1.0, Jaccard: 1.0, Groups: 0.5, Games: 0}
}

// Candidate is one ranked friend of the seed.
type Candidate struct {
	ID           string  `json:"steamid"`
	Score        float64 `json:"score"`
	Mutual       int     `json:"mutual_count"`
	Jaccard      float64 `json:"jaccard_with_seed"`
	SharedGroups int     `json:"shared_groups"`
	SharedGames  int     `json:"shared_games"`
}

type set map[string]struct{}

func toSet(items []string) set {
	s := make(set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s set) has(k string) bool {
	_, ok := s[k]
	return ok
}

// Score ranks the seed's friends by score, highest first. Candidates are
// considered in the seed's friend-list order and the sort is stable, so
// equal scores keep that order.
func Score(state *traversal.State, w Weights) []Candidate {
	seed, ok := state.Nodes[state.Seed]
	if !ok {
		return nil
	}

	var order []string
	seedFriends := make(set, len(seed.Friends))
	for _, f := range seed.Friends {
		if f == state.Seed || seedFriends.has(f) {
			continue
		}
		seedFriends[f] = struct{}{}
		order = append(order, f)
	}

	neighbors := make(map[string]set, len(state.Nodes))
	for id, n := range state.Nodes {
		neighbors[id] = toSet(n.Friends)
	}
	seedGroups := toSet(seed.Groups)

	out := make([]Candidate, 0, len(order))
	for _, c := range order {
		mutual := 0
		for f := range seedFriends {
			if f != c && neighbors[f].has(c) {
				mutual++
			}
		}

		own := neighbors[c]
		inter := 0
		for f := range own {
			if seedFriends.has(f) {
				inter++
			}
		}
		union := len(own) + len(seedFriends) - inter
		if union < 1 {
			union = 1
		}
		jaccard := float64(inter) / float64(union)

		shared := 0
		if n, ok := state.Nodes[c]; ok {
			for g := range toSet(n.Groups) {
				if seedGroups.has(g) {
					shared++
				}
			}
		}

		games := 0
		out = append(out, Candidate{
			ID:           c,
			Score:        float64(mutual)*w.Mutual + jaccard*w.Jaccard + float64(shared)*w.Groups + float64(games)*w.Games,
			Mutual:       mutual,
			Jaccard:      jaccard,
			SharedGroups: shared,
			SharedGames:  games,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
