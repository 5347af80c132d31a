package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-goodreads/config"
	"github.com/aluiziolira/go-scrape-goodreads/models"
	"github.com/aluiziolira/go-scrape-goodreads/pipeline"
	"github.com/aluiziolira/go-scrape-goodreads/scraper"
	"github.com/spf13/cobra"
)

var genresOutput string

var genresCmd = &cobra.Command{
	Use:   "genres <input.csv> [--output <path>]",
	Short: "Re-derives the genres column of an earlier export from each book's detail page.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenres(cmd.Context(), cfg, args[0], genresOutput)
	},
}

func init() {
	f := genresCmd.Flags()
	f.StringVarP(&genresOutput, "output", "o", "", "Output file path (default <input>_FIXED.csv)")
	f.IntVar(&cfg.MaxGenres, "max-genres", cfg.MaxGenres, "Genres kept per book")
	f.IntVar(&cfg.DetailParallelism, "detail-parallel", cfg.DetailParallelism, "Concurrent search and detail lookups")
	f.DurationVar(&cfg.DetailRate, "detail-rate", cfg.DetailRate, "Minimum interval between lookups")
	f.BoolVar(&cfg.IntegerCounts, "integer-counts", cfg.IntegerCounts, "Write ratings_count as an integer")
	rootCmd.AddCommand(genresCmd)
}

func runGenres(ctx context.Context, cfg *config.Config, input, output string, opts ...scraper.Option) error {
	cfg.GenreNavFilter = true
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if output == "" {
		output = pipeline.FixedPath(input)
	}

	books, err := pipeline.ReadBooksCSV(input)
	if err != nil {
		return err
	}
	slog.Info("fixing genres", slog.String("input", input), slog.Int("books", len(books)))

	s, err := scraper.NewScraper(cfg, opts...)
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}
	enricher := s.Enricher()

	start := time.Now()
	for _, b := range books {
		b.Genres = nil
	}
	if err := enricher.ResolveAll(ctx, books); err != nil {
		return fmt.Errorf("resolve books: %w", err)
	}
	if err := enricher.Enrich(ctx, books); err != nil {
		return fmt.Errorf("look up genres: %w", err)
	}

	schema := pipeline.GenreFixSchema()
	schema.IntegerCounts = cfg.IntegerCounts
	writer, err := pipeline.NewCSVWriter(output, schema)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	if err := writer.Write(books); err != nil {
		writer.Close()
		return fmt.Errorf("write %s: %w", output, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}

	withGenres := 0
	for _, b := range books {
		if len(b.Genres) > 0 {
			withGenres++
		}
	}
	stats := enricher.Stats()
	printGenreSummary(len(books), withGenres, countMissing(books), stats, time.Since(start), output)
	return nil
}

func countMissing(books []*models.Book) int {
	missing := 0
	for _, b := range books {
		if b.URL == "" {
			missing++
		}
	}
	return missing
}
