package engine

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/vapora/pkg/config"
	"github.com/DrSkyle/vapora/pkg/directory"
	"github.com/DrSkyle/vapora/pkg/engine/crawler"
	"github.com/DrSkyle/vapora/pkg/engine/policy"
	"github.com/DrSkyle/vapora/pkg/sink"
	"github.com/DrSkyle/vapora/pkg/storage"
	"github.com/DrSkyle/vapora/pkg/traversal"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// 100 - 101 - 103 - 105
//   \    |
//    102 - 104
func smallWorld() *directory.Mock {
	m := directory.NewMock()
	m.FriendLists = map[string][]string{
		"100": {"101", "102"},
		"101": {"100", "102", "103"},
		"102": {"100", "101", "104"},
		"103": {"101", "105"},
		"104": {"102"},
		"105": {"103"},
	}
	for id := range m.FriendLists {
		m.Profiles[id] = directory.Summary{ID: id, Name: "p" + id, Visibility: directory.VisibilityPublic}
		m.BanRecords[id] = directory.BanRecord{}
	}
	m.BanRecords["104"] = directory.BanRecord{VACBanned: true, NumberOfVACBans: 2}
	m.Vanity["seedling"] = "100"
	return m
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newTestEngine(t *testing.T, client directory.Client, opts ...Option) (*Engine, *storage.LocalStore) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Workers = 2
	cfg.Rules = []policy.Rule{{ID: "banned", Condition: "is_banned"}}

	store := storage.NewLocalStore(t.TempDir())
	clk := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ids := 0
	base := []Option{
		WithLogger(quietLogger()),
		WithConfig(cfg),
		WithClient(client),
		WithStore(store),
		WithClock(clk.now, func() string { ids++; return "run-" + string(rune('0'+ids)) }),
	}
	e, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return e, store
}

func readCSV(t *testing.T, store storage.BlobStore, key string) [][]string {
	t.Helper()
	data, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRunWritesRunDirectory(t *testing.T) {
	e, store := newTestEngine(t, smallWorld())
	ctx := context.Background()

	summary, err := e.Run(ctx, "https://steamcommunity.com/id/seedling/")
	require.NoError(t, err)

	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, "100", summary.Seed)
	assert.Equal(t, "p100", summary.SeedLabel)
	assert.True(t, summary.Complete)
	assert.False(t, summary.Resumed)
	// depth 2 reaches 100..104; 105 is three hops out
	assert.Equal(t, 5, summary.Graph.Nodes)
	assert.Equal(t, 1, summary.Flagged)
	assert.Equal(t, 2, summary.Candidates)

	dir := "100/20260301_120100"
	keys, err := store.List(ctx, "100")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		dir + "/scan.json",
		dir + "/gephi/nodes.csv",
		dir + "/gephi/edges.csv",
		dir + "/probable_friends.csv",
		dir + "/flagged_nodes.csv",
		dir + "/summary.json",
	}, keys)

	nodes := readCSV(t, store, dir+"/gephi/nodes.csv")
	assert.Equal(t, []string{"Id", "Label", "degree", "betweenness", "modularity_class", "is_seed", "is_hub", "is_banned", "is_public"}, nodes[0])
	assert.Len(t, nodes, 6)

	flagged := readCSV(t, store, dir+"/flagged_nodes.csv")
	require.Len(t, flagged, 2)
	assert.Equal(t, "banned", flagged[1][0])
	assert.Equal(t, "104", flagged[1][1])

	state, err := e.LoadState(ctx, RunRef{Seed: "100", Stamp: "20260301_120100"})
	require.NoError(t, err)
	assert.Len(t, state.Nodes, 5)

	stored, err := e.LoadSummary(ctx, RunRef{Seed: "100", Stamp: "20260301_120100"})
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, stored.RunID)
	assert.Equal(t, summary.Graph.Edges, stored.Graph.Edges)
}

func TestRunUnresolvableTarget(t *testing.T) {
	e, _ := newTestEngine(t, smallWorld())
	_, err := e.Run(context.Background(), "nobody-here")
	assert.ErrorIs(t, err, directory.ErrNotFound)
}

func TestInterruptedRunCheckpointsAndResumes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := 0
	progress := func(p crawler.Progress) {
		if p.Phase == crawler.PhaseCrawl {
			events++
			if events == 2 {
				cancel()
			}
		}
	}
	e, store := newTestEngine(t, smallWorld(), WithProgress(progress))

	_, err := e.Run(ctx, "100")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "checkpoint saved")

	run, err := e.LatestRun(context.Background(), "100")
	require.NoError(t, err)
	_, err = store.Get(context.Background(), storage.Join(run.Dir(), SummaryFile))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	partial, err := e.LoadState(context.Background(), run)
	require.NoError(t, err)
	assert.Len(t, partial.Visited, 2)
	assert.NotEmpty(t, partial.Queue)

	resumed, err := e.ResumeLast(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, resumed.Resumed)
	assert.True(t, resumed.Complete)
	assert.Equal(t, 5, resumed.Graph.Nodes)

	runs, err := e.ListRuns(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestResumeWithoutRuns(t *testing.T) {
	e, _ := newTestEngine(t, smallWorld())
	_, err := e.ResumeLast(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoSeed)

	_, err = e.ResumeLast(context.Background(), "100")
	assert.ErrorIs(t, err, ErrNoSeed)
}

func TestResumeRejectsCorruptCheckpoint(t *testing.T) {
	e, store := newTestEngine(t, smallWorld())
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "100/20260101_000000/scan.json", []byte(`{"seed":"100"}`)))

	_, err := e.ResumeLast(ctx, "100")
	assert.ErrorIs(t, err, traversal.ErrCorruptCheckpoint)
}

func TestLatestRunOrdersByStamp(t *testing.T) {
	e, store := newTestEngine(t, smallWorld())
	ctx := context.Background()
	for _, key := range []string{
		"100/20260101_000000/scan.json",
		"100/20260301_000000/scan.json",
		"200/20260201_000000/scan.json",
		"200/20260201_000000/summary.json",
		"notes.txt",
	} {
		require.NoError(t, store.Put(ctx, key, []byte("{}")))
	}

	latest, err := e.LatestRun(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, RunRef{Seed: "100", Stamp: "20260301_000000"}, latest)

	latest, err = e.LatestRun(ctx, "200")
	require.NoError(t, err)
	assert.Equal(t, "200/20260201_000000", latest.Dir())

	runs, err := e.ListRuns(ctx, "")
	require.NoError(t, err)
	assert.Len(t, runs, 3)

	ref, err := e.ResolveRun(ctx, "100/20260101_000000")
	require.NoError(t, err)
	assert.Equal(t, "20260101_000000", ref.Stamp)
}

func TestEstimate(t *testing.T) {
	m := smallWorld()
	m.Fail["102"] = true
	e, _ := newTestEngine(t, m)

	est, err := e.Estimate(context.Background(), "seedling")
	require.NoError(t, err)
	assert.Equal(t, "100", est.Seed)
	assert.Equal(t, 2, est.SeedFriends)
	assert.Equal(t, 1, est.Sampled)
	assert.Equal(t, 3.0, est.AvgFriends)
	// 2 unique + 3*5
	assert.Equal(t, 17, est.Nodes)
}

func TestQueryAndPushStoredRun(t *testing.T) {
	e, _ := newTestEngine(t, smallWorld())
	ctx := context.Background()
	summary, err := e.Run(ctx, "100")
	require.NoError(t, err)

	a, rows, err := e.Query(ctx, "100", "degree >= 3")
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, a.RunID)
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"101", "102"}, ids)

	_, _, err = e.Query(ctx, "100", "degree +")
	assert.Error(t, err)

	mem := sink.NewMemoryClient()
	_, stats, err := e.Push(ctx, "", mem)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Nodes)
	assert.Equal(t, summary.Graph.Edges, stats.Edges)
	calls := mem.WriteCalls()
	require.NotEmpty(t, calls)
	assert.Equal(t, summary.RunID, calls[1].Params["run"])
}

func TestNewRequiresDependencies(t *testing.T) {
	offline, err := New(WithStore(storage.NewLocalStore(t.TempDir())))
	require.NoError(t, err)
	_, err = offline.Run(context.Background(), "100")
	assert.ErrorIs(t, err, ErrNoClient)
	runs, err := offline.ListRuns(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = New(WithClient(directory.NewMock()))
	assert.Error(t, err)

	cfg := config.Defaults()
	cfg.Rules = []policy.Rule{{ID: "bad", Condition: "degree"}}
	_, err = New(WithClient(directory.NewMock()), WithStore(storage.NewLocalStore(t.TempDir())), WithConfig(cfg))
	assert.Error(t, err)
}

func TestOpenDirectory(t *testing.T) {
	cfg := config.Defaults()
	_, err := OpenDirectory(cfg, nil, quietLogger())
	assert.True(t, errors.Is(err, ErrMissingAPIKey))

	cfg.MockMode = true
	cfg.CacheDir = t.TempDir()
	d, err := OpenDirectory(cfg, nil, quietLogger())
	require.NoError(t, err)
	defer d.Close()
	require.NotNil(t, d.Mock)

	seed, err := d.ResolveIdentity(context.Background(), "mock")
	require.NoError(t, err)
	friends, err := d.Friends(context.Background(), seed)
	require.NoError(t, err)
	assert.NotEmpty(t, friends)
	// vanity lookup and friend list each cost one slot
	assert.Len(t, d.Limiter.Recorded(), 2)

	again, err := d.Friends(context.Background(), seed)
	require.NoError(t, err)
	assert.Equal(t, friends, again)
	assert.Len(t, d.Limiter.Recorded(), 2)
}
