// Package engine runs the crawl, analyse, score and export pipeline and
// manages the run directories it writes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/DrSkyle/vapora/pkg/config"
	"github.com/DrSkyle/vapora/pkg/directory"
	"github.com/DrSkyle/vapora/pkg/engine/crawler"
	"github.com/DrSkyle/vapora/pkg/engine/notifier"
	"github.com/DrSkyle/vapora/pkg/engine/policy"
	"github.com/DrSkyle/vapora/pkg/storage"
)

var (
	// ErrNoSeed is returned when no previous run exists to resume or inspect.
	ErrNoSeed = errors.New("no previous run found")
	// ErrNoClient is returned by operations that need the directory when the
	// engine was built without one.
	ErrNoClient = errors.New("engine: no directory client configured")
	// ErrMissingAPIKey is returned when a live run has no Steam Web API key.
	ErrMissingAPIKey = errors.New("STEAM_API_KEY is not set (use --mock for an offline run)")
)

// Engine is the runtime core.
type Engine struct {
	Logger *slog.Logger
	Tracer trace.Tracer

	config   config.Config
	client   directory.Client
	store    storage.BlobStore
	rules    *policy.CELEngine
	notifier *notifier.SlackClient
	progress func(crawler.Progress)

	now   func() time.Time
	newID func() string
}

// Option defines a functional configuration override.
type Option func(*Engine)

// New initializes the Engine. A blob store is required; the directory client
// only for operations that reach the directory.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		Logger: slog.Default(),
		Tracer: otel.Tracer("vapora/engine"),
		config: config.Defaults(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.store == nil {
		return nil, errors.New("engine: output store is required")
	}
	if err := e.config.Validate(); err != nil {
		return nil, err
	}

	rules, err := policy.NewCELEngine(e.Logger)
	if err != nil {
		return nil, err
	}
	if err := rules.Compile(e.config.Rules); err != nil {
		return nil, fmt.Errorf("compile rules: %w", err)
	}
	e.rules = rules

	if e.notifier == nil && e.config.SlackWebhook != "" {
		e.notifier = notifier.NewSlackClient(e.config.SlackWebhook, "")
	}
	return e, nil
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.Logger = l
		}
	}
}

// WithConfig sets the run configuration.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) { e.config = cfg }
}

// WithClient sets the directory client, already wrapped with any limiter
// and cache.
func WithClient(c directory.Client) Option {
	return func(e *Engine) { e.client = c }
}

// WithStore sets where run directories are written.
func WithStore(s storage.BlobStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithNotifier overrides the Slack client built from the config.
func WithNotifier(n *notifier.SlackClient) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithProgress forwards crawler progress events.
func WithProgress(fn func(crawler.Progress)) Option {
	return func(e *Engine) { e.progress = fn }
}

// WithClock replaces the wall clock and run id source, for tests.
func WithClock(now func() time.Time, newID func() string) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
		if newID != nil {
			e.newID = newID
		}
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() config.Config { return e.config }

// Store returns the output store.
func (e *Engine) Store() storage.BlobStore { return e.store }

// recoverPanic turns a panic in the pipeline into an error and records it.
func (e *Engine) recoverPanic(ctx context.Context, errp *error) {
	r := recover()
	if r == nil {
		return
	}
	_, span := e.Tracer.Start(ctx, "CriticalPanic")
	stack := debug.Stack()

	span.RecordError(fmt.Errorf("%v", r), trace.WithStackTrace(true))
	span.SetStatus(codes.Error, "CRITICAL FAILURE")
	span.SetAttributes(
		attribute.String("crash.stack", string(stack)),
		attribute.String("crash.reason", fmt.Sprintf("%v", r)),
	)
	span.End()

	e.Logger.Error("CRITICAL FAILURE", "error", r, "stack", string(stack))
	*errp = fmt.Errorf("pipeline panic: %v", r)
}
