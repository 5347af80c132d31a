package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/aluiziolira/go-scrape-goodreads/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	cfg     = config.DefaultConfig()
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "scraper",
	Short:         "scraper collects Goodreads popular-by-year rankings.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, level := newLogger(verbose)
		slog.SetDefault(logger)
		slog.SetLogLoggerLevel(level.Level())

		return applyEnv(cmd, cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Goodreads base URL")
	rootCmd.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	rootCmd.PersistentFlags().DurationVar(&cfg.Delay, "delay", cfg.Delay, "Delay between requests")
	rootCmd.PersistentFlags().DurationVar(&cfg.RandomDelay, "random-delay", cfg.RandomDelay, "Random jitter added to delay")
	rootCmd.PersistentFlags().IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Maximum retry attempts per URL")
	rootCmd.PersistentFlags().DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Initial retry backoff")
	rootCmd.PersistentFlags().DurationVar(&cfg.RetryBackoffMax, "retry-backoff-max", cfg.RetryBackoffMax, "Maximum retry backoff")
	rootCmd.PersistentFlags().BoolVar(&cfg.RespectRobotsTxt, "respect-robots", cfg.RespectRobotsTxt, "Respect robots.txt directives")
	rootCmd.PersistentFlags().StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "User-Agent header")
}

// applyEnv overlays SCRAPER_* variables on the defaults. Flags given on the
// command line win over the environment.
func applyEnv(cmd *cobra.Command, cfg *config.Config) error {
	changed := make(map[string]string)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	for name, value := range changed {
		if err := cmd.Flags().Set(name, value); err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
	}
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	cfg.Renderer = strings.ToLower(cfg.Renderer)
	return nil
}
