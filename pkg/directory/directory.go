// Package directory talks to the social directory service that owns the
// friend graph. The Steam Web API is the production implementation; Mock is
// a deterministic in-memory stand-in, and the Limited, Cached and Instrumented
// decorators compose around any Client.
package directory

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/DrSkyle/vapora/pkg/traversal"
)

var (
	// ErrNotFound means an identity could not be resolved.
	ErrNotFound = errors.New("identity not found")
	// ErrThrottled means the service rejected the call for exceeding its quota.
	ErrThrottled = errors.New("directory throttled")
)

// BatchSize is the per-request cap for summary and ban lookups.
const BatchSize = 100

// VisibilityPublic is the community visibility code for public profiles.
const VisibilityPublic = 3

// Summary is the profile payload for one identity.
type Summary struct {
	ID         string `json:"steamid"`
	Name       string `json:"personaname"`
	ProfileURL string `json:"profileurl"`
	Visibility int    `json:"communityvisibilitystate"`
}

// Public reports whether the profile is publicly visible.
func (s Summary) Public() bool {
	return s.Visibility == VisibilityPublic
}

// BanRecord aliases the checkpointed ban payload.
type BanRecord = traversal.BanRecord

// Client is the directory surface the crawler depends on.
type Client interface {
	ResolveIdentity(ctx context.Context, text string) (string, error)
	Friends(ctx context.Context, id string) ([]string, error)
	Summaries(ctx context.Context, ids []string) (map[string]Summary, error)
	Bans(ctx context.Context, ids []string) (map[string]BanRecord, error)
	Groups(ctx context.Context, id string) ([]string, error)
}

var numericID = regexp.MustCompile(`^[0-9]+$`)

// ParseIdentity splits user input into either a numeric identity or a vanity
// name. Profile URLs of the form .../profiles/<id> and .../id/<vanity> are
// accepted as well as bare values.
func ParseIdentity(text string) (id, vanity string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}
	if numericID.MatchString(text) {
		return text, ""
	}

	path := text
	if u, err := url.Parse(text); err == nil && u.Host != "" {
		path = u.Path
	} else if i := strings.Index(text, "/"); i >= 0 && strings.Contains(text[:i], ".") {
		path = text[i:]
	}

	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	for i := 0; i+1 < len(parts); i++ {
		switch parts[i] {
		case "profiles":
			if numericID.MatchString(parts[i+1]) {
				return parts[i+1], ""
			}
		case "id":
			return "", parts[i+1]
		}
	}
	if len(parts) == 1 {
		return "", parts[0]
	}
	return "", ""
}

// Batches splits ids into chunks of at most size.
func Batches(ids []string, size int) [][]string {
	if size <= 0 {
		size = BatchSize
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
