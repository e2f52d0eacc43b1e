package directory

import (
	"context"
	"errors"
)

// Acquirer admits one outbound call, blocking until the window allows it.
type Acquirer interface {
	Acquire(ctx context.Context) error
}

// Limited gates every outbound request of the wrapped client behind a shared
// limiter. Batched lookups are split so that each request costs one slot.
type Limited struct {
	next    Client
	limiter Acquirer
}

// WithLimiter wraps next so every request passes through limiter.
func WithLimiter(next Client, limiter Acquirer) *Limited {
	return &Limited{next: next, limiter: limiter}
}

func (l *Limited) ResolveIdentity(ctx context.Context, text string) (string, error) {
	if id, _ := ParseIdentity(text); id != "" {
		return id, nil
	}
	if err := l.limiter.Acquire(ctx); err != nil {
		return "", err
	}
	return l.next.ResolveIdentity(ctx, text)
}

func (l *Limited) Friends(ctx context.Context, id string) ([]string, error) {
	if err := l.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	return l.next.Friends(ctx, id)
}

func (l *Limited) Groups(ctx context.Context, id string) ([]string, error) {
	if err := l.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	return l.next.Groups(ctx, id)
}

func (l *Limited) Summaries(ctx context.Context, ids []string) (map[string]Summary, error) {
	return limitBatches(ctx, l.limiter, ids, l.next.Summaries)
}

func (l *Limited) Bans(ctx context.Context, ids []string) (map[string]BanRecord, error) {
	return limitBatches(ctx, l.limiter, ids, l.next.Bans)
}

func limitBatches[V any](ctx context.Context, limiter Acquirer, ids []string, fetch func(context.Context, []string) (map[string]V, error)) (map[string]V, error) {
	out := make(map[string]V, len(ids))
	var errs []error
	for _, batch := range Batches(ids, BatchSize) {
		if err := limiter.Acquire(ctx); err != nil {
			return out, err
		}
		got, err := fetch(ctx, batch)
		for k, v := range got {
			out[k] = v
		}
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			errs = append(errs, err)
		}
	}
	return out, errors.Join(errs...)
}
