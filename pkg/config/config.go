// Package config loads run settings from flags, environment, the config file
// and named profiles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/DrSkyle/vapora/pkg/engine/policy"
	"github.com/DrSkyle/vapora/pkg/scorer"
	"github.com/DrSkyle/vapora/pkg/sink"
	"github.com/DrSkyle/vapora/pkg/storage"
)

// EnvPrefix namespaces environment overrides, e.g. VAPORA_MAX_NODES.
const EnvPrefix = "VAPORA"

// Defaults.
const (
	DefaultDepth         = 2
	DefaultMaxNodes      = 500
	DefaultRateLimitRPM  = 60
	DefaultHubPercentile = 0.99
	DefaultOutput        = "vapora-out"
	DefaultWorkers       = 4
	DefaultCacheTTL      = 24 * time.Hour
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
)

// Config holds everything a run needs.
type Config struct {
	SteamAPIKey string `mapstructure:"steam_api_key" yaml:"-"`
	Preset      string `mapstructure:"preset" yaml:"preset,omitempty"`

	Depth               int     `mapstructure:"depth" yaml:"depth"`
	MaxNodes            int     `mapstructure:"max_nodes" yaml:"max_nodes"`
	RateLimitRPM        int     `mapstructure:"rate_limit_rpm" yaml:"rate_limit_rpm"`
	SkipPrivateProfiles bool    `mapstructure:"skip_private_profiles" yaml:"skip_private_profiles"`
	IncludeGroupLinks   bool    `mapstructure:"include_group_links" yaml:"include_group_links"`
	HubPercentile       float64 `mapstructure:"hub_percentile" yaml:"hub_percentile"`
	Workers             int     `mapstructure:"workers" yaml:"workers"`

	Weights scorer.Weights `mapstructure:"weights" yaml:"weights"`
	Rules   []policy.Rule  `mapstructure:"rules" yaml:"rules,omitempty"`

	Output   string            `mapstructure:"output" yaml:"output"`
	S3       storage.S3Options `mapstructure:"s3" yaml:"s3,omitempty"`
	CacheDir string            `mapstructure:"cache_dir" yaml:"cache_dir,omitempty"`
	CacheTTL time.Duration     `mapstructure:"cache_ttl" yaml:"cache_ttl"`

	Neo4j        sink.Options `mapstructure:"neo4j" yaml:"neo4j,omitempty"`
	SlackWebhook string       `mapstructure:"slack_webhook" yaml:"-"`

	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat    string `mapstructure:"log_format" yaml:"log_format"`
	OTelEndpoint string `mapstructure:"otel_endpoint" yaml:"otel_endpoint,omitempty"`

	MockMode bool `mapstructure:"mock" yaml:"-"`
}

// Defaults returns the stock configuration.
func Defaults() Config {
	return Config{
		Depth:               DefaultDepth,
		MaxNodes:            DefaultMaxNodes,
		RateLimitRPM:        DefaultRateLimitRPM,
		SkipPrivateProfiles: true,
		IncludeGroupLinks:   false,
		HubPercentile:       DefaultHubPercentile,
		Workers:             DefaultWorkers,
		Weights:             scorer.DefaultWeights(),
		Output:              DefaultOutput,
		CacheTTL:            DefaultCacheTTL,
		LogLevel:            DefaultLogLevel,
		LogFormat:           DefaultLogFormat,
	}
}

// SetDefaults registers Defaults() on v so unset keys resolve.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("depth", d.Depth)
	v.SetDefault("max_nodes", d.MaxNodes)
	v.SetDefault("rate_limit_rpm", d.RateLimitRPM)
	v.SetDefault("skip_private_profiles", d.SkipPrivateProfiles)
	v.SetDefault("include_group_links", d.IncludeGroupLinks)
	v.SetDefault("hub_percentile", d.HubPercentile)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("weights.mutual", d.Weights.Mutual)
	v.SetDefault("weights.jaccard", d.Weights.Jaccard)
	v.SetDefault("weights.groups", d.Weights.Groups)
	v.SetDefault("weights.games", d.Weights.Games)
	v.SetDefault("output", d.Output)
	v.SetDefault("cache_ttl", d.CacheTTL)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
}

// BindEnv enables VAPORA_* overrides and the conventional STEAM_API_KEY.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("steam_api_key", EnvPrefix+"_STEAM_API_KEY", "STEAM_API_KEY")
	_ = v.BindEnv("slack_webhook", EnvPrefix+"_SLACK_WEBHOOK", "SLACK_WEBHOOK_URL")
	_ = v.BindEnv("neo4j.password", EnvPrefix+"_NEO4J_PASSWORD", "NEO4J_PASSWORD")
}

// Load resolves v into a Config. A preset, when named, replaces the default
// depth and node budget; explicit values still win over it.
func Load(v *viper.Viper) (Config, error) {
	if name := v.GetString("preset"); name != "" {
		p, ok := Presets[name]
		if !ok {
			return Config{}, fmt.Errorf("unknown preset %q (want one of %s)", name, strings.Join(PresetNames(), ", "))
		}
		v.SetDefault("depth", p.Depth)
		v.SetDefault("max_nodes", p.MaxNodes)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no run could honour.
func (c *Config) Validate() error {
	var errs []error
	if c.Depth < 0 {
		errs = append(errs, fmt.Errorf("depth must be >= 0, got %d", c.Depth))
	}
	if c.MaxNodes < 1 {
		errs = append(errs, fmt.Errorf("max_nodes must be >= 1, got %d", c.MaxNodes))
	}
	if c.RateLimitRPM < 1 {
		c.RateLimitRPM = 1
	}
	if c.HubPercentile <= 0 || c.HubPercentile > 1 {
		errs = append(errs, fmt.Errorf("hub_percentile must be in (0, 1], got %v", c.HubPercentile))
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	w := c.Weights
	if w.Mutual < 0 || w.Jaccard < 0 || w.Groups < 0 || w.Games < 0 {
		errs = append(errs, errors.New("weights must be non-negative"))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("cache_ttl must be >= 0, got %s", c.CacheTTL))
	}
	seen := map[string]bool{}
	for i, r := range c.Rules {
		if r.ID == "" {
			errs = append(errs, fmt.Errorf("rules[%d]: missing id", i))
			continue
		}
		if seen[r.ID] {
			errs = append(errs, fmt.Errorf("rules[%d]: duplicate id %q", i, r.ID))
		}
		seen[r.ID] = true
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
