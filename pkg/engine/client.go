package engine

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	"github.com/DrSkyle/vapora/pkg/config"
	"github.com/DrSkyle/vapora/pkg/directory"
	"github.com/DrSkyle/vapora/pkg/ratelimit"
)

// MockPopulation is the size of the synthetic directory used by --mock.
const MockPopulation = 1500

// Directory is an assembled directory client and the resources it holds.
type Directory struct {
	directory.Client
	Limiter *ratelimit.Limiter
	// Mock is set in mock mode.
	Mock  *directory.Mock
	cache *directory.Cached
}

// Close releases the response cache, if any.
func (d *Directory) Close() error {
	if d.cache == nil {
		return nil
	}
	return d.cache.Close()
}

// OpenDirectory builds Cached(Limited(Instrumented(base))) from cfg. The
// base is the Steam Web API client or, in mock mode, a synthetic
// population. meter may be nil.
func OpenDirectory(cfg config.Config, meter metric.Meter, logger *slog.Logger) (*Directory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Directory{}

	var base directory.Client
	if cfg.MockMode {
		mock, seed := directory.Synthetic(MockPopulation, 1)
		d.Mock = mock
		base = mock
		logger.Info("using synthetic directory", "population", MockPopulation, "seed", seed)
	} else {
		if cfg.SteamAPIKey == "" {
			return nil, ErrMissingAPIKey
		}
		base = directory.NewSteam(cfg.SteamAPIKey, directory.WithLogger(logger))
	}

	if meter != nil {
		inst, err := directory.Instrument(base, meter)
		if err != nil {
			return nil, fmt.Errorf("instrument directory: %w", err)
		}
		base = inst
	}

	d.Limiter = ratelimit.New(cfg.RateLimitRPM)
	d.Client = directory.WithLimiter(base, d.Limiter)

	if cfg.CacheDir != "" {
		cached, err := directory.NewCache(d.Client, directory.CacheConfig{
			Path:   cfg.CacheDir,
			TTL:    cfg.CacheTTL,
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		d.cache = cached
		d.Client = cached
	}
	return d, nil
}
