package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DrSkyle/vapora/pkg/version"
)

// DefaultBaseURL is the public Steam Web API endpoint.
const DefaultBaseURL = "https://api.steampowered.com"

// DefaultTimeout bounds a single HTTP exchange.
const DefaultTimeout = 25 * time.Second

// Steam is the Steam Web API implementation of Client.
type Steam struct {
	apiKey  string
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// SteamOption configures a Steam client.
type SteamOption func(*Steam)

// WithBaseURL points the client at another host (tests, proxies).
func WithBaseURL(u string) SteamOption {
	return func(s *Steam) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) SteamOption {
	return func(s *Steam) { s.http = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SteamOption {
	return func(s *Steam) { s.logger = l }
}

// NewSteam returns a client authenticated with apiKey.
func NewSteam(apiKey string, opts ...SteamOption) *Steam {
	s := &Steam{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// flexString accepts both quoted and bare numeric JSON values.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (s *Steam) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", s.apiKey)
	endpoint := s.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		s.logger.Debug("directory throttled", "path", path)
		return fmt.Errorf("%s: %w", path, ErrThrottled)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		s.logger.Debug("directory call rejected", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// ResolveIdentity turns a numeric id, vanity name, or profile URL into a
// numeric identity.
func (s *Steam) ResolveIdentity(ctx context.Context, text string) (string, error) {
	id, vanity := ParseIdentity(text)
	if id != "" {
		return id, nil
	}
	if vanity == "" {
		return "", fmt.Errorf("%q: %w", text, ErrNotFound)
	}

	var body struct {
		Response struct {
			Success int        `json:"success"`
			SteamID flexString `json:"steamid"`
		} `json:"response"`
	}
	if err := s.get(ctx, "/ISteamUser/ResolveVanityURL/v1/", url.Values{"vanityurl": {vanity}}, &body); err != nil {
		return "", err
	}
	if body.Response.Success != 1 || body.Response.SteamID == "" {
		return "", fmt.Errorf("vanity %q: %w", vanity, ErrNotFound)
	}
	return string(body.Response.SteamID), nil
}

// Friends returns the friend list of id. Private lists surface as errors.
func (s *Steam) Friends(ctx context.Context, id string) ([]string, error) {
	var body struct {
		FriendsList struct {
			Friends []struct {
				SteamID flexString `json:"steamid"`
			} `json:"friends"`
		} `json:"friendslist"`
	}
	params := url.Values{"steamid": {id}, "relationship": {"friend"}}
	if err := s.get(ctx, "/ISteamUser/GetFriendList/v1/", params, &body); err != nil {
		return nil, err
	}

	friends := make([]string, 0, len(body.FriendsList.Friends))
	for _, f := range body.FriendsList.Friends {
		if f.SteamID != "" {
			friends = append(friends, string(f.SteamID))
		}
	}
	return friends, nil
}

// Summaries fetches profile summaries in batches. Failed batches are skipped
// and reported in the joined error alongside the partial result.
func (s *Steam) Summaries(ctx context.Context, ids []string) (map[string]Summary, error) {
	out := make(map[string]Summary, len(ids))
	var errs []error
	for _, batch := range Batches(ids, BatchSize) {
		var body struct {
			Response struct {
				Players []struct {
					SteamID    flexString `json:"steamid"`
					Name       string     `json:"personaname"`
					ProfileURL string     `json:"profileurl"`
					Visibility int        `json:"communityvisibilitystate"`
				} `json:"players"`
			} `json:"response"`
		}
		params := url.Values{"steamids": {strings.Join(batch, ",")}}
		if err := s.get(ctx, "/ISteamUser/GetPlayerSummaries/v2/", params, &body); err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			errs = append(errs, err)
			continue
		}
		for _, p := range body.Response.Players {
			out[string(p.SteamID)] = Summary{
				ID:         string(p.SteamID),
				Name:       p.Name,
				ProfileURL: p.ProfileURL,
				Visibility: p.Visibility,
			}
		}
	}
	return out, errors.Join(errs...)
}

// Bans fetches ban records in batches with the same partial-failure contract
// as Summaries.
func (s *Steam) Bans(ctx context.Context, ids []string) (map[string]BanRecord, error) {
	out := make(map[string]BanRecord, len(ids))
	var errs []error
	for _, batch := range Batches(ids, BatchSize) {
		var body struct {
			Players []struct {
				SteamID          flexString `json:"SteamId"`
				VACBanned        bool       `json:"VACBanned"`
				NumberOfVACBans  int        `json:"NumberOfVACBans"`
				NumberOfGameBans int        `json:"NumberOfGameBans"`
			} `json:"players"`
		}
		params := url.Values{"steamids": {strings.Join(batch, ",")}}
		if err := s.get(ctx, "/ISteamUser/GetPlayerBans/v1/", params, &body); err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			errs = append(errs, err)
			continue
		}
		for _, p := range body.Players {
			out[string(p.SteamID)] = BanRecord{
				VACBanned:        p.VACBanned,
				NumberOfVACBans:  p.NumberOfVACBans,
				NumberOfGameBans: p.NumberOfGameBans,
			}
		}
	}
	return out, errors.Join(errs...)
}

// Groups returns the group ids id belongs to.
func (s *Steam) Groups(ctx context.Context, id string) ([]string, error) {
	var body struct {
		Response struct {
			Groups []struct {
				GID flexString `json:"gid"`
			} `json:"groups"`
		} `json:"response"`
	}
	if err := s.get(ctx, "/ISteamUser/GetUserGroupList/v1/", url.Values{"steamid": {id}}, &body); err != nil {
		return nil, err
	}

	groups := make([]string, 0, len(body.Response.Groups))
	for _, g := range body.Response.Groups {
		if g.GID != "" {
			groups = append(groups, string(g.GID))
		}
	}
	return groups, nil
}
