package commands

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/term"

	"github.com/DrSkyle/vapora/pkg/directory"
	"github.com/DrSkyle/vapora/pkg/engine"
	"github.com/DrSkyle/vapora/pkg/storage"
	"github.com/DrSkyle/vapora/pkg/telemetry"
)

// openEngine builds an engine over the configured output store. With
// withDirectory the directory client stack is opened as well; callers must
// Close the returned directory.
func openEngine(ctx context.Context, withDirectory bool, opts ...engine.Option) (*engine.Engine, *engine.Directory, error) {
	store, err := storage.Open(ctx, cfg.Output, cfg.S3)
	if err != nil {
		return nil, nil, fmt.Errorf("open output: %w", err)
	}

	base := []engine.Option{
		engine.WithLogger(logger),
		engine.WithConfig(cfg),
		engine.WithStore(store),
	}

	var dir *engine.Directory
	if withDirectory {
		var meter metric.Meter
		if tel != nil {
			meter = tel.Meter("vapora/directory")
		}
		dir, err = engine.OpenDirectory(cfg, meter, logger)
		if err != nil {
			return nil, nil, err
		}
		base = append(base, engine.WithClient(dir))
	}

	e, err := engine.New(append(base, opts...)...)
	if err != nil {
		if dir != nil {
			_ = dir.Close()
		}
		return nil, nil, err
	}
	return e, dir, nil
}

// logDirectoryCalls reports how many directory requests the run made.
func logDirectoryCalls(ctx context.Context) {
	if tel == nil {
		return
	}
	totals, err := tel.CounterTotals(ctx, directory.CallsMetric, "op")
	if err != nil || len(totals) == 0 {
		return
	}
	args := make([]any, 0, 2*len(totals))
	for _, op := range telemetry.SortedKeys(totals) {
		args = append(args, op, totals[op])
	}
	logger.Info("directory calls", args...)
}

func interactive() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}
