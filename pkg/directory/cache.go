package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// DefaultCacheTTL is how long cached responses stay valid.
const DefaultCacheTTL = 24 * time.Hour

// CacheConfig configures the response cache.
type CacheConfig struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	TTL      time.Duration
	Logger   *slog.Logger
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Cached serves repeated lookups from a badger store. Hits never reach the
// wrapped client, so placing Cached outside Limited keeps them free of quota.
type Cached struct {
	next   Client
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache opens the store described by cfg and wraps next with it.
func NewCache(next Client, cfg CacheConfig) (*Cached, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("cache path is required for a persistent cache")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(&badgerLogger{logger: cfg.Logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return &Cached{next: next, db: db, ttl: cfg.TTL, logger: cfg.Logger}, nil
}

// Close releases the underlying store.
func (c *Cached) Close() error {
	return c.db.Close()
}

func (c *Cached) load(key string, out any) bool {
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Debug("cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Debug("cache entry unreadable", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Cached) store(entries map[string]any) {
	if len(entries) == 0 {
		return
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		for key, v := range entries {
			raw, err := json.Marshal(v)
			if err != nil {
				return err
			}
			if err := txn.SetEntry(badger.NewEntry([]byte(key), raw).WithTTL(c.ttl)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.logger.Debug("cache write failed", "error", err)
	}
}

func (c *Cached) ResolveIdentity(ctx context.Context, text string) (string, error) {
	id, vanity := ParseIdentity(text)
	if id != "" {
		return id, nil
	}
	key := "vanity/" + vanity
	if c.load(key, &id) {
		return id, nil
	}
	id, err := c.next.ResolveIdentity(ctx, text)
	if err != nil {
		return "", err
	}
	c.store(map[string]any{key: id})
	return id, nil
}

func (c *Cached) Friends(ctx context.Context, id string) ([]string, error) {
	return c.list(ctx, "friends/"+id, id, c.next.Friends)
}

func (c *Cached) Groups(ctx context.Context, id string) ([]string, error) {
	return c.list(ctx, "groups/"+id, id, c.next.Groups)
}

func (c *Cached) list(ctx context.Context, key, id string, fetch func(context.Context, string) ([]string, error)) ([]string, error) {
	var out []string
	if c.load(key, &out) {
		if out == nil {
			out = []string{}
		}
		return out, nil
	}
	out, err := fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(map[string]any{key: out})
	return out, nil
}

func (c *Cached) Summaries(ctx context.Context, ids []string) (map[string]Summary, error) {
	return cachedBatch(ctx, c, "summary/", ids, c.next.Summaries)
}

func (c *Cached) Bans(ctx context.Context, ids []string) (map[string]BanRecord, error) {
	return cachedBatch(ctx, c, "bans/", ids, c.next.Bans)
}

func cachedBatch[V any](ctx context.Context, c *Cached, prefix string, ids []string, fetch func(context.Context, []string) (map[string]V, error)) (map[string]V, error) {
	out := make(map[string]V, len(ids))
	var missing []string
	for _, id := range ids {
		var v V
		if c.load(prefix+id, &v) {
			out[id] = v
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	got, err := fetch(ctx, missing)
	fresh := make(map[string]any, len(got))
	for id, v := range got {
		out[id] = v
		fresh[prefix+id] = v
	}
	c.store(fresh)
	return out, err
}
