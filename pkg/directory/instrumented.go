package directory

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/DrSkyle/vapora/pkg/directory"

// CallsMetric is the counter recorded by Instrumented.
const CallsMetric = "vapora.directory.calls"

// Instrumented counts calls to the wrapped client by operation and outcome.
type Instrumented struct {
	next  Client
	calls metric.Int64Counter
}

// Instrument wraps next with a call counter. A nil meter uses the global
// provider.
func Instrument(next Client, meter metric.Meter) (*Instrumented, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	calls, err := meter.Int64Counter(CallsMetric,
		metric.WithDescription("Directory service calls by operation and outcome."),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}
	return &Instrumented{next: next, calls: calls}, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrThrottled):
		return "throttled"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

func (i *Instrumented) count(ctx context.Context, op string, err error) {
	i.calls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome(err)),
	))
}

func (i *Instrumented) ResolveIdentity(ctx context.Context, text string) (string, error) {
	id, err := i.next.ResolveIdentity(ctx, text)
	i.count(ctx, "resolve", err)
	return id, err
}

func (i *Instrumented) Friends(ctx context.Context, id string) ([]string, error) {
	out, err := i.next.Friends(ctx, id)
	i.count(ctx, "friends", err)
	return out, err
}

func (i *Instrumented) Summaries(ctx context.Context, ids []string) (map[string]Summary, error) {
	out, err := i.next.Summaries(ctx, ids)
	i.count(ctx, "summaries", err)
	return out, err
}

func (i *Instrumented) Bans(ctx context.Context, ids []string) (map[string]BanRecord, error) {
	out, err := i.next.Bans(ctx, ids)
	i.count(ctx, "bans", err)
	return out, err
}

func (i *Instrumented) Groups(ctx context.Context, id string) ([]string, error) {
	out, err := i.next.Groups(ctx, id)
	i.count(ctx, "groups", err)
	return out, err
}
