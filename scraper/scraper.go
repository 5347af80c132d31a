// Package scraper fetches the Goodreads popular-by-year listings and hands
// the extracted books to the pipeline.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aluiziolira/go-scrape-goodreads/config"
	"github.com/aluiziolira/go-scrape-goodreads/extract"
	"github.com/aluiziolira/go-scrape-goodreads/models"
	"github.com/aluiziolira/go-scrape-goodreads/parser"
)

// Processor receives the books of one year. *pipeline.Pipeline satisfies it.
type Processor interface {
	Process(books ...*models.Book) error
}

// Scraper walks the configured years one listing page at a time.
type Scraper struct {
	cfg      *config.Config
	listings PageSource
	fetcher  *Fetcher
	enricher *Enricher
	Metrics  *Metrics

	transport http.RoundTripper
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithListingSource renders listing pages through src instead of plain
// HTTP. Detail and search pages still use the HTTP fetcher.
func WithListingSource(src PageSource) Option {
	return func(s *Scraper) { s.listings = src }
}

// WithMetrics shares an existing metrics bundle.
func WithMetrics(m *Metrics) Option {
	return func(s *Scraper) { s.Metrics = m }
}

// WithTransport sends plain HTTP fetches through rt.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Scraper) { s.transport = rt }
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config, opts ...Option) (*Scraper, error) {
	s := &Scraper{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.Metrics == nil {
		s.Metrics = NewMetrics()
	}

	fetcher, err := NewFetcher(cfg, s.Metrics)
	if err != nil {
		return nil, err
	}
	if s.transport != nil {
		fetcher.collector.WithTransport(s.transport)
	}
	s.fetcher = fetcher
	if s.listings == nil {
		s.listings = fetcher
	}
	s.enricher = NewEnricher(cfg, fetcher, s.Metrics)
	return s, nil
}

// Enricher exposes the detail-page genre lookups.
func (s *Scraper) Enricher() *Enricher {
	return s.enricher
}

// Run scrapes every configured year in ascending order and passes each
// year's books to p. A listing that cannot be fetched ends the run with a
// *FatalError; the result still covers the years before it.
func (s *Scraper) Run(ctx context.Context, p Processor) (*models.ScraperResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	result := models.NewScraperResult(time.Now())
	defer s.finish(result)

	for _, year := range s.cfg.Years() {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		books, err := s.scrapeYear(ctx, year, result)
		if err != nil {
			return result, err
		}

		if s.cfg.IncludeGenres && len(books) > 0 {
			if err := s.enricher.Enrich(ctx, books); err != nil {
				return result, fmt.Errorf("genres for %d: %w", year, err)
			}
		}

		if err := p.Process(books...); err != nil {
			return result, fmt.Errorf("process %d: %w", year, err)
		}
	}
	return result, nil
}

func (s *Scraper) scrapeYear(ctx context.Context, year int, result *models.ScraperResult) ([]*models.Book, error) {
	pageURL := s.cfg.ListingURL(year)
	slog.Info("scraping year", slog.Int("year", year), slog.String("url", pageURL))

	page, err := s.listings.Fetch(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FatalError{Year: year, URL: pageURL, Err: err}
	}
	result.PageCount++

	listing, err := extract.ParseListing(bytes.NewReader(page.Body), page.URL, year)
	if err != nil {
		return nil, &FatalError{Year: year, URL: pageURL, Err: err}
	}
	result.ListingSources[year] = listing.Source

	for _, err := range listing.Errors {
		if field, ok := extract.MissedField(err); ok {
			result.FieldMisses[field]++
			s.Metrics.IncFieldMiss(field)
			continue
		}
		if extract.IsRecordFailure(err) {
			result.FailedRecords++
			slog.Warn("record failed", slog.Int("year", year), slog.Any("error", err))
			continue
		}
		if errors.Is(err, parser.ErrParse) {
			result.ParseErrors++
		}
		slog.Debug("extraction problem", slog.Int("year", year), slog.Any("error", err))
	}

	for _, b := range listing.Books {
		complete := b.Complete()
		if complete {
			result.CompleteCount++
		} else {
			result.PartialCount++
		}
		s.Metrics.IncBook(listing.Source, complete)
		slog.Debug("book extracted",
			slog.Int("year", year),
			slog.Int("position", b.Seq+1),
			slog.String("title", b.Title),
			slog.Bool("complete", complete),
		)
	}
	result.TotalCount += len(listing.Books)
	result.BooksByYear[year] = len(listing.Books)

	if len(listing.Books) == 0 {
		slog.Warn("no books found", slog.Int("year", year), slog.String("url", pageURL))
	} else {
		slog.Info("year scraped",
			slog.Int("year", year),
			slog.String("source", listing.Source),
			slog.Int("books", len(listing.Books)),
		)
	}
	return listing.Books, nil
}

func (s *Scraper) finish(result *models.ScraperResult) {
	result.EndTime = time.Now()

	stats := s.listings.Stats()
	if s.listings != PageSource(s.fetcher) {
		stats.Merge(s.fetcher.Stats())
	}
	result.RequestCount = stats.Requests
	result.ErrorCount = stats.Errors
	result.RetryCount = stats.Retries
	result.FailedURLs = stats.FailedURLs
	for k, v := range stats.ErrorsByType {
		result.ErrorsByType[k] += v
	}

	enrich := s.enricher.Stats()
	result.GenreLookups = enrich.Lookups
	result.GenreMisses = enrich.Misses + enrich.Failures
}
