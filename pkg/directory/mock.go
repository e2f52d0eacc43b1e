package directory

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"sync"
)

// Mock is an in-memory directory. Lookups for unknown identities return
// empty data; identities listed in Fail return an error instead.
type Mock struct {
	FriendLists map[string][]string
	GroupLists  map[string][]string
	Profiles    map[string]Summary
	BanRecords  map[string]BanRecord
	Vanity      map[string]string
	Fail        map[string]bool

	mu    sync.Mutex
	calls map[string]int
}

// NewMock returns an empty mock.
func NewMock() *Mock {
	return &Mock{
		FriendLists: make(map[string][]string),
		GroupLists:  make(map[string][]string),
		Profiles:    make(map[string]Summary),
		BanRecords:  make(map[string]BanRecord),
		Vanity:      make(map[string]string),
		Fail:        make(map[string]bool),
	}
}

func (m *Mock) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
}

// Calls returns how many times op was invoked.
func (m *Mock) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *Mock) ResolveIdentity(ctx context.Context, text string) (string, error) {
	m.record("resolve")
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, vanity := ParseIdentity(text)
	if id != "" {
		return id, nil
	}
	if resolved, ok := m.Vanity[vanity]; ok {
		return resolved, nil
	}
	return "", fmt.Errorf("vanity %q: %w", vanity, ErrNotFound)
}

func (m *Mock) Friends(ctx context.Context, id string) ([]string, error) {
	m.record("friends")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Fail[id] {
		return nil, fmt.Errorf("friends %s: mock failure", id)
	}
	return append([]string{}, m.FriendLists[id]...), nil
}

func (m *Mock) Summaries(ctx context.Context, ids []string) (map[string]Summary, error) {
	m.record("summaries")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]Summary, len(ids))
	for _, id := range ids {
		if s, ok := m.Profiles[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (m *Mock) Bans(ctx context.Context, ids []string) (map[string]BanRecord, error) {
	m.record("bans")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]BanRecord, len(ids))
	for _, id := range ids {
		if b, ok := m.BanRecords[id]; ok {
			out[id] = b
		}
	}
	return out, nil
}

func (m *Mock) Groups(ctx context.Context, id string) ([]string, error) {
	m.record("groups")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Fail[id] {
		return nil, fmt.Errorf("groups %s: mock failure", id)
	}
	return append([]string{}, m.GroupLists[id]...), nil
}

// Synthetic builds a reproducible mock population of size identities
// clustered into loose cliques, for offline runs. The first identity is
// returned as the seed.
func Synthetic(size int, seed uint64) (*Mock, string) {
	if size < 2 {
		size = 2
	}
	m := NewMock()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	ids := make([]string, size)
	for i := range ids {
		ids[i] = strconv.FormatUint(76561198000000000+uint64(i), 10)
	}

	const clusterSize = 12
	links := make(map[string]map[string]struct{}, size)
	link := func(a, b string) {
		if a == b {
			return
		}
		for _, pair := range [][2]string{{a, b}, {b, a}} {
			if links[pair[0]] == nil {
				links[pair[0]] = make(map[string]struct{})
			}
			links[pair[0]][pair[1]] = struct{}{}
		}
	}

	for i, id := range ids {
		cluster := i / clusterSize
		for j := cluster * clusterSize; j < min(size, (cluster+1)*clusterSize); j++ {
			if j != i && rng.IntN(3) > 0 {
				link(id, ids[j])
			}
		}
		// a few bridges between clusters
		if rng.IntN(4) == 0 {
			link(id, ids[rng.IntN(size)])
		}
		if i > 0 && i%clusterSize == 0 {
			link(ids[0], id)
		}

		m.Profiles[id] = Summary{
			ID:         id,
			Name:       fmt.Sprintf("player-%d", i),
			ProfileURL: "https://steamcommunity.com/profiles/" + id + "/",
			Visibility: VisibilityPublic,
		}
		if i%7 == 6 {
			m.Profiles[id] = Summary{ID: id, Name: fmt.Sprintf("player-%d", i), Visibility: 1}
		}
		if i%13 == 5 {
			m.BanRecords[id] = BanRecord{VACBanned: true, NumberOfVACBans: 1}
		} else {
			m.BanRecords[id] = BanRecord{}
		}
		m.GroupLists[id] = []string{fmt.Sprintf("1035827914%08d", cluster)}
	}

	for _, id := range ids {
		friends := make([]string, 0, len(links[id]))
		for f := range links[id] {
			friends = append(friends, f)
		}
		sort.Strings(friends)
		m.FriendLists[id] = friends
	}
	m.Vanity["mock"] = ids[0]
	return m, ids[0]
}
