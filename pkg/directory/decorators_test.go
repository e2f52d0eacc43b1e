package directory

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type countingLimiter struct {
	n atomic.Int32
}

func (c *countingLimiter) Acquire(ctx context.Context) error {
	c.n.Add(1)
	return ctx.Err()
}

func populated() *Mock {
	m := NewMock()
	m.FriendLists["1"] = []string{"2", "3"}
	m.GroupLists["1"] = []string{"g"}
	m.Vanity["robin"] = "1"
	for i := 0; i < 250; i++ {
		id := strconv.Itoa(i)
		m.Profiles[id] = Summary{ID: id, Name: "p" + id, Visibility: VisibilityPublic}
		m.BanRecords[id] = BanRecord{}
	}
	return m
}

func TestLimitedChargesOneSlotPerRequest(t *testing.T) {
	limiter := &countingLimiter{}
	client := WithLimiter(populated(), limiter)
	ctx := context.Background()

	ids := make([]string, 250)
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}
	got, err := client.Summaries(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, got, 250)
	assert.Equal(t, int32(3), limiter.n.Load())

	_, err = client.Friends(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int32(4), limiter.n.Load())

	// numeric identities resolve locally and cost nothing
	id, err := client.ResolveIdentity(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Equal(t, int32(4), limiter.n.Load())
}

func TestLimitedStopsOnCancellation(t *testing.T) {
	client := WithLimiter(populated(), &countingLimiter{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Friends(ctx, "1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCacheServesRepeatLookups(t *testing.T) {
	mock := populated()
	cache, err := NewCache(mock, CacheConfig{InMemory: true, TTL: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		friends, err := cache.Friends(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, []string{"2", "3"}, friends)
	}
	assert.Equal(t, 1, mock.Calls("friends"))

	// an empty list is cached too
	for i := 0; i < 2; i++ {
		friends, err := cache.Friends(ctx, "9")
		require.NoError(t, err)
		assert.Empty(t, friends)
	}
	assert.Equal(t, 2, mock.Calls("friends"))

	_, err = cache.Summaries(ctx, []string{"1", "2"})
	require.NoError(t, err)
	got, err := cache.Summaries(ctx, []string{"1", "2", "3"})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "p3", got["3"].Name)
	assert.Equal(t, 2, mock.Calls("summaries"))
	got, err = cache.Summaries(ctx, []string{"3", "1"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, mock.Calls("summaries"))

	id, err := cache.ResolveIdentity(ctx, "robin")
	require.NoError(t, err)
	assert.Equal(t, "1", id)
	_, err = cache.ResolveIdentity(ctx, "robin")
	require.NoError(t, err)
	assert.Equal(t, 1, mock.Calls("resolve"))
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	mock := populated()
	mock.Fail["1"] = true
	cache, err := NewCache(mock, CacheConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	_, err = cache.Groups(context.Background(), "1")
	assert.Error(t, err)
	_, err = cache.Groups(context.Background(), "1")
	assert.Error(t, err)
	assert.Equal(t, 2, mock.Calls("groups"))
}

func TestCacheRequiresPath(t *testing.T) {
	_, err := NewCache(NewMock(), CacheConfig{})
	assert.Error(t, err)
}

func TestInstrumentedCountsOutcomes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	mock := populated()
	mock.Fail["bad"] = true

	client, err := Instrument(mock, provider.Meter("test"))
	require.NoError(t, err)
	ctx := context.Background()
	_, _ = client.Friends(ctx, "1")
	_, _ = client.Friends(ctx, "1")
	_, _ = client.Friends(ctx, "bad")
	_, _ = client.ResolveIdentity(ctx, "nobody")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
	m := rm.ScopeMetrics[0].Metrics[0]
	assert.Equal(t, "vapora.directory.calls", m.Name)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		op, _ := dp.Attributes.Value("op")
		out, _ := dp.Attributes.Value("outcome")
		counts[op.AsString()+"/"+out.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{
		"friends/ok":        2,
		"friends/error":     1,
		"resolve/not_found": 1,
	}, counts)
}
