package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aluiziolira/go-scrape-goodreads/config"
	"github.com/aluiziolira/go-scrape-goodreads/pipeline"
	"github.com/aluiziolira/go-scrape-goodreads/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--start-year N] [--end-year N] [--genres]",
	Short: "Scrapes the popular books of each year and writes a ranked export.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrape(cmd.Context(), cfg)
	},
}

func init() {
	f := scrapeCmd.Flags()
	f.IntVar(&cfg.StartYear, "start-year", cfg.StartYear, "First year to scrape")
	f.IntVar(&cfg.EndYear, "end-year", cfg.EndYear, "Last year to scrape")
	f.StringVar(&cfg.Renderer, "renderer", cfg.Renderer, "Listing renderer: http or browser")
	f.BoolVar(&cfg.Headless, "headless", cfg.Headless, "Run the browser headless")
	f.IntVar(&cfg.MaxClicks, "max-clicks", cfg.MaxClicks, "Maximum \"Show more books\" clicks per listing")
	f.DurationVar(&cfg.LoadWait, "load-wait", cfg.LoadWait, "Wait after loading a listing in the browser")
	f.DurationVar(&cfg.ClickWait, "click-wait", cfg.ClickWait, "Wait after each \"Show more books\" click")
	f.IntVar(&cfg.Parallelism, "parallel", cfg.Parallelism, "Concurrent requests and pipeline workers")
	f.BoolVar(&cfg.IncludeGenres, "genres", cfg.IncludeGenres, "Look up genres on each book's detail page")
	f.IntVar(&cfg.MaxGenres, "max-genres", cfg.MaxGenres, "Genres kept per book")
	f.BoolVar(&cfg.GenreNavFilter, "nav-filter", cfg.GenreNavFilter, "Drop genre links that look like site navigation")
	f.IntVar(&cfg.DetailParallelism, "detail-parallel", cfg.DetailParallelism, "Concurrent detail-page lookups")
	f.DurationVar(&cfg.DetailRate, "detail-rate", cfg.DetailRate, "Minimum interval between detail-page lookups")
	f.StringVarP(&cfg.OutputFile, "output", "o", cfg.OutputFile, "Output file path (default output/goodreads_<start>_to_<end>_books.csv)")
	f.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Output format: csv, json, or dual")
	f.StringVar(&cfg.Schema, "schema", cfg.Schema, "Columns: listing, genres, legacy, or a comma-separated list")
	f.BoolVar(&cfg.IntegerCounts, "integer-counts", cfg.IntegerCounts, "Write ratings_count as an integer")
	f.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	schema, err := outputSchema(cfg)
	if err != nil {
		return err
	}
	output := cfg.Output()

	slog.Info("starting scrape",
		slog.Int("start_year", cfg.StartYear),
		slog.Int("end_year", cfg.EndYear),
		slog.String("renderer", cfg.Renderer),
		slog.Bool("genres", cfg.IncludeGenres),
		slog.Int("workers", cfg.Parallelism),
	)

	metrics := scraper.NewMetrics()
	opts := []scraper.Option{scraper.WithMetrics(metrics)}
	if cfg.Renderer == config.RendererBrowser {
		browser, err := scraper.NewBrowser(ctx, cfg, metrics)
		if err != nil {
			return fmt.Errorf("starting browser: %w", err)
		}
		defer browser.Close()
		opts = append(opts, scraper.WithListingSource(browser))
	}

	s, err := scraper.NewScraper(cfg, opts...)
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}

	writer, err := createWriter(cfg.OutputFormat, output, schema)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}

	stopMetrics := serveMetrics(cfg.MetricsAddr, metrics)
	defer stopMetrics()

	p := pipeline.NewPipeline(ctx, writer, cfg)
	p.Start(cfg.Parallelism)
	if verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	result, runErr := s.Run(ctx, p)
	if runErr != nil {
		if scraper.IsFatal(runErr) {
			slog.Error("scrape stopped early, writing what was collected", slog.Any("error", runErr))
		} else {
			slog.Error("scraping failed", slog.Any("error", runErr))
		}
	}

	// Close ranks and writes; it runs even after a failed year.
	closeErr := p.Close()
	if err := writer.Close(); err != nil && closeErr == nil {
		closeErr = fmt.Errorf("close writer: %w", err)
	}
	if closeErr == nil {
		if err := writer.Validate(); err != nil {
			closeErr = fmt.Errorf("output validation failed: %w", err)
		}
	}

	printSummary(result, p.GetMetrics(), output)
	return errors.Join(runErr, closeErr)
}

func outputSchema(cfg *config.Config) (pipeline.Schema, error) {
	var schema pipeline.Schema
	if cfg.Schema == "" {
		schema = pipeline.ListingSchema(cfg.IncludeGenres)
	} else {
		parsed, err := pipeline.ParseSchema(cfg.Schema)
		if err != nil {
			return pipeline.Schema{}, fmt.Errorf("invalid schema: %w", err)
		}
		schema = parsed
	}
	schema.IntegerCounts = cfg.IntegerCounts
	return schema, nil
}

func createWriter(format, filename string, schema pipeline.Schema) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename, schema)
	case "csv":
		return pipeline.NewCSVWriter(filename, schema)
	case "dual":
		return pipeline.NewDualWriter(filename, pipeline.JSONPath(filename), schema)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// serveMetrics exposes the registry while the run lasts. The returned func
// shuts the server down.
func serveMetrics(addr string, metrics *scraper.Metrics) func() {
	if addr == "" || metrics == nil {
		return func() {}
	}

	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}
