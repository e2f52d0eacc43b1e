package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/vapora/pkg/traversal"
)

func friendState() *traversal.State {
	s := traversal.New("S", 2)
	lists := map[string][]string{
		"S": {"A", "B", "C"},
		"A": {"S", "B"},
		"B": {"S", "A", "C"},
		"C": {"S", "B"},
	}
	for id, friends := range lists {
		s.EnsureNode(id, 1).Friends = friends
	}
	return s
}

func byID(cs []Candidate) map[string]Candidate {
	out := make(map[string]Candidate, len(cs))
	for _, c := range cs {
		out[c.ID] = c
	}
	return out
}

func TestScoreRanksMostConnectedFriendFirst(t *testing.T) {
	got := Score(friendState(), DefaultWeights())
	require.Len(t, got, 3)

	assert.Equal(t, "B", got[0].ID)
	c := byID(got)
	assert.Equal(t, 1, c["A"].Mutual)
	assert.Equal(t, 2, c["B"].Mutual)
	assert.Equal(t, 1, c["C"].Mutual)
	assert.InDelta(t, 0.5, c["B"].Jaccard, 1e-12)
	assert.InDelta(t, 2.5, c["B"].Score, 1e-12)
	assert.Zero(t, c["B"].SharedGames)
}

func TestScoreSharedGroups(t *testing.T) {
	s := friendState()
	s.Nodes["S"].Groups = []string{"g1", "g2"}
	s.Nodes["C"].Groups = []string{"g1", "g2", "g1", "g3"}

	c := byID(Score(s, DefaultWeights()))
	assert.Equal(t, 2, c["C"].SharedGroups)
	assert.Equal(t, 0, c["A"].SharedGroups)
}

func TestScoreUncrawledCandidate(t *testing.T) {
	s := traversal.New("S", 1)
	s.EnsureNode("S", 0).Friends = []string{"X", "X"}

	got := Score(s, DefaultWeights())
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Mutual)
	assert.Zero(t, got[0].Jaccard)
}

func TestScoreWithoutFriends(t *testing.T) {
	s := traversal.New("S", 1)
	s.EnsureNode("S", 0).Friends = []string{}
	assert.Empty(t, Score(s, DefaultWeights()))
	assert.Nil(t, Score(traversal.New("missing", 1), DefaultWeights()))
}

func TestScoreWeights(t *testing.T) {
	got := Score(friendState(), Weights{Jaccard: 1})
	c := byID(got)
	assert.InDelta(t, c["B"].Jaccard, c["B"].Score, 1e-12)
}
