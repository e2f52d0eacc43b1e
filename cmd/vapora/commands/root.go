package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DrSkyle/vapora/pkg/config"
	"github.com/DrSkyle/vapora/pkg/logging"
	"github.com/DrSkyle/vapora/pkg/telemetry"
	"github.com/DrSkyle/vapora/pkg/version"
)

var (
	cfgFile     string
	profileName string
	configErr   error

	cfg    config.Config
	logger = slog.Default()
	tel    *telemetry.Provider
)

var rootCmd = &cobra.Command{
	Use:   "vapora",
	Short: "Map the social graph around a Steam profile",
	Long: `vapora - Steam social graph mapper

Crawl. Measure. Rank.`,
	Version:           version.Current,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if tel == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			logger.Debug("telemetry shutdown", "error", err)
		}
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error:"), err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "Config file (default ~/.vapora.yaml)")
	f.StringVar(&profileName, "profile", "", "Load a saved profile")
	f.String("preset", "", "Crawl budget preset (inner-circle, community)")
	f.Int("depth", config.DefaultDepth, "Maximum BFS depth from the seed")
	f.Int("max-nodes", config.DefaultMaxNodes, "Hard cap on crawled identities")
	f.Int("rpm", config.DefaultRateLimitRPM, "Directory requests per minute")
	f.Bool("skip-private", true, "Skip private profiles when linking groups")
	f.Bool("groups", false, "Add shared-group edges")
	f.Float64("hub-percentile", config.DefaultHubPercentile, "Betweenness percentile for hub flags")
	f.Int("workers", config.DefaultWorkers, "Concurrent enrichment requests")
	f.StringP("output", "o", config.DefaultOutput, "Output directory or s3://bucket/prefix")
	f.String("cache-dir", "", "Cache directory for directory responses")
	f.Duration("cache-ttl", config.DefaultCacheTTL, "Cache entry lifetime")
	f.String("slack-webhook", "", "Slack webhook for run summaries")
	f.String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	f.String("log-format", config.DefaultLogFormat, "Log format (text, json)")
	f.String("otel-endpoint", "", "OTLP HTTP endpoint for traces")
	f.Bool("mock", false, "Use a synthetic offline directory")

	for key, flag := range map[string]string{
		"preset":                "preset",
		"depth":                 "depth",
		"max_nodes":             "max-nodes",
		"rate_limit_rpm":        "rpm",
		"skip_private_profiles": "skip-private",
		"include_group_links":   "groups",
		"hub_percentile":        "hub-percentile",
		"workers":               "workers",
		"output":                "output",
		"cache_dir":             "cache-dir",
		"cache_ttl":             "cache-ttl",
		"slack_webhook":         "slack-webhook",
		"log_level":             "log-level",
		"log_format":            "log-format",
		"otel_endpoint":         "otel-endpoint",
		"mock":                  "mock",
	} {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(cmd)
	})
}

func initConfig() {
	v := viper.GetViper()
	config.SetDefaults(v)
	config.BindEnv(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		v.SetConfigFile(filepath.Join(home, ".vapora.yaml"))
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			configErr = fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
		}
	}
}

func setup(cmd *cobra.Command, args []string) error {
	if configErr != nil {
		return configErr
	}
	v := viper.GetViper()
	if profileName != "" {
		profiles, err := userProfiles()
		if err != nil {
			return err
		}
		if err := profiles.Merge(v, profileName); err != nil {
			return err
		}
	}

	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = loaded

	logger = logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slog.SetDefault(logger)

	tel, err = telemetry.Init(cmd.Context(), telemetry.Config{
		ServiceName:    version.AppName,
		ServiceVersion: version.Current,
		Endpoint:       cfg.OTelEndpoint,
	})
	if err != nil {
		logger.Warn("Telemetry failed", "error", err)
		tel = nil
	}
	return nil
}

func userProfiles() (config.Profiles, error) {
	dir, err := config.DefaultDir()
	if err != nil {
		return config.Profiles{}, fmt.Errorf("locate config dir: %w", err)
	}
	return config.Profiles{Dir: dir}, nil
}
