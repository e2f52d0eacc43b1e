package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIdentity(t *testing.T) {
	tests := []struct {
		in         string
		id, vanity string
	}{
		{"76561197960287930", "76561197960287930", ""},
		{"  76561197960287930 ", "76561197960287930", ""},
		{"gabelogannewell", "", "gabelogannewell"},
		{"https://steamcommunity.com/id/gabelogannewell/", "", "gabelogannewell"},
		{"https://steamcommunity.com/profiles/76561197960287930", "76561197960287930", ""},
		{"steamcommunity.com/id/robin", "", "robin"},
		{"", "", ""},
		{"https://steamcommunity.com/", "", ""},
	}
	for _, tt := range tests {
		id, vanity := ParseIdentity(tt.in)
		assert.Equal(t, tt.id, id, "id for %q", tt.in)
		assert.Equal(t, tt.vanity, vanity, "vanity for %q", tt.in)
	}
}

func TestBatches(t *testing.T) {
	ids := make([]string, 250)
	for i := range ids {
		ids[i] = "x"
	}
	batches := Batches(ids, BatchSize)
	if assert.Len(t, batches, 3) {
		assert.Len(t, batches[0], 100)
		assert.Len(t, batches[1], 100)
		assert.Len(t, batches[2], 50)
	}
	assert.Empty(t, Batches(nil, BatchSize))
}

func TestSyntheticIsDeterministic(t *testing.T) {
	a, seedA := Synthetic(60, 7)
	b, seedB := Synthetic(60, 7)
	assert.Equal(t, seedA, seedB)
	assert.Equal(t, a.FriendLists, b.FriendLists)
	assert.NotEmpty(t, a.FriendLists[seedA])

	for id, friends := range a.FriendLists {
		for _, f := range friends {
			assert.NotEqual(t, id, f)
			assert.Contains(t, a.FriendLists[f], id, "friendship is symmetric")
		}
	}
}
