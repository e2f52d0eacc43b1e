package directory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSteamServer(t *testing.T, handler http.HandlerFunc) *Steam {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSteam("secret", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestSteamFriends(t *testing.T) {
	client := newSteamServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ISteamUser/GetFriendList/v1/", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "friend", r.URL.Query().Get("relationship"))
		assert.Equal(t, "1", r.URL.Query().Get("steamid"))
		w.Write([]byte(`{"friendslist":{"friends":[{"steamid":"2","relationship":"friend"},{"steamid":"3"}]}}`))
	})

	friends, err := client.Friends(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, friends)
}

func TestSteamFriendsPrivateList(t *testing.T) {
	client := newSteamServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	friends, err := client.Friends(context.Background(), "1")
	assert.Error(t, err)
	assert.Nil(t, friends)
}

func TestSteamThrottled(t *testing.T) {
	client := newSteamServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Groups(context.Background(), "1")
	assert.ErrorIs(t, err, ErrThrottled)
}

func TestSteamResolveIdentity(t *testing.T) {
	client := newSteamServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("vanityurl") {
		case "robin":
			w.Write([]byte(`{"response":{"steamid":"76561197960287930","success":1}}`))
		default:
			w.Write([]byte(`{"response":{"success":42,"message":"No match"}}`))
		}
	})

	ctx := context.Background()
	id, err := client.ResolveIdentity(ctx, "https://steamcommunity.com/id/robin/")
	require.NoError(t, err)
	assert.Equal(t, "76561197960287930", id)

	id, err = client.ResolveIdentity(ctx, "76561190000000001")
	require.NoError(t, err)
	assert.Equal(t, "76561190000000001", id)

	_, err = client.ResolveIdentity(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSteamSummariesBatchesAndVisibility(t *testing.T) {
	var requests atomic.Int32
	client := newSteamServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		ids := strings.Split(r.URL.Query().Get("steamids"), ",")
		assert.LessOrEqual(t, len(ids), BatchSize)
		var players []string
		for _, id := range ids {
			vis := "3"
			if id == "5" {
				vis = "1"
			}
			players = append(players, `{"steamid":"`+id+`","personaname":"p`+id+`","profileurl":"u","communityvisibilitystate":`+vis+`}`)
		}
		w.Write([]byte(`{"response":{"players":[` + strings.Join(players, ",") + `]}}`))
	})

	ids := make([]string, 150)
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}
	got, err := client.Summaries(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, int32(2), requests.Load())
	assert.Len(t, got, 150)
	assert.True(t, got["4"].Public())
	assert.False(t, got["5"].Public())
	assert.Equal(t, "p7", got["7"].Name)
}

func TestSteamBansPartialFailure(t *testing.T) {
	client := newSteamServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Query().Get("steamids"), "bad") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"players":[{"SteamId":"1","VACBanned":true,"NumberOfVACBans":2,"NumberOfGameBans":0},{"SteamId":"2","VACBanned":false,"NumberOfVACBans":0,"NumberOfGameBans":1}]}`))
	})

	ids := []string{"1", "2"}
	got, err := client.Bans(context.Background(), ids)
	require.NoError(t, err)
	assert.True(t, got["1"].Banned())
	assert.True(t, got["2"].Banned())
	assert.Equal(t, 2, got["1"].NumberOfVACBans)

	got, err = client.Bans(context.Background(), []string{"bad"})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrThrottled))
	assert.Empty(t, got)
}

func TestSteamGroupsNumericIDs(t *testing.T) {
	client := newSteamServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"success":true,"groups":[{"gid":"103582791429521412"},{"gid":4}]}}`))
	})

	groups, err := client.Groups(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"103582791429521412", "4"}, groups)
}
