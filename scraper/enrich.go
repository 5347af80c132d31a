package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-goodreads/config"
	"github.com/aluiziolira/go-scrape-goodreads/extract"
	"github.com/aluiziolira/go-scrape-goodreads/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrNotResolved is returned when a search yields no book.
var ErrNotResolved = errors.New("scraper: no search result")

const searchResultSelector = "a.bookTitle"

const genreCacheSize = 4096

// EnrichStats counts detail-page genre lookups.
type EnrichStats struct {
	Lookups  int
	Misses   int
	Failures int
	Resolved int
}

// Enricher fills in genres from book detail pages. Lookups run in parallel
// up to DetailParallelism, are paced by DetailRate and cached per URL.
type Enricher struct {
	cfg      *config.Config
	source   PageSource
	chain    extract.GenreChain
	limiter  *rate.Limiter
	parallel int
	cache    *lru.Cache[string, extract.GenreResult]
	metrics  *Metrics

	mu    sync.Mutex
	stats EnrichStats
}

// NewEnricher builds an enricher that fetches through source.
func NewEnricher(cfg *config.Config, source PageSource, metrics *Metrics) *Enricher {
	limit := rate.Inf
	if cfg.DetailRate > 0 {
		limit = rate.Every(cfg.DetailRate)
	}
	cache, _ := lru.New[string, extract.GenreResult](genreCacheSize)
	return &Enricher{
		cfg:      cfg,
		source:   source,
		chain:    extract.DefaultGenreChain(cfg.GenreNavFilter, cfg.MaxGenres),
		limiter:  rate.NewLimiter(limit, 1),
		parallel: max(cfg.DetailParallelism, 1),
		cache:    cache,
		metrics:  metrics,
	}
}

// Enrich looks up genres for every book with a detail URL. Books that
// already carry genres are only trimmed to MaxGenres. A failed lookup
// leaves the book without genres; only cancellation is returned.
func (e *Enricher) Enrich(ctx context.Context, books []*models.Book) error {
	return e.each(ctx, books, func(ctx context.Context, b *models.Book) {
		if len(b.Genres) > 0 {
			b.Genres = e.trim(b.Genres)
			return
		}
		if b.URL == "" {
			return
		}
		res, err := e.Genres(ctx, b.URL)
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("genre lookup failed",
					slog.String("title", b.Title),
					slog.String("url", b.URL),
					slog.Any("error", err),
				)
			}
			return
		}
		b.Genres = res.Genres
	})
}

// ResolveAll finds detail URLs for books that lack one by searching for
// their title and author. Unresolved books are left unchanged.
func (e *Enricher) ResolveAll(ctx context.Context, books []*models.Book) error {
	return e.each(ctx, books, func(ctx context.Context, b *models.Book) {
		if b.URL != "" && b.URL != models.NotAvailable {
			return
		}
		b.URL = ""
		u, err := e.Resolve(ctx, b.Title, b.Author)
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("search failed",
					slog.String("title", b.Title),
					slog.String("author", b.Author),
					slog.Any("error", err),
				)
			}
			return
		}
		b.URL = u
	})
}

// Genres returns the genres on one detail page.
func (e *Enricher) Genres(ctx context.Context, detailURL string) (extract.GenreResult, error) {
	if res, ok := e.cache.Get(detailURL); ok {
		return res, nil
	}

	page, err := e.fetch(ctx, detailURL)
	if err != nil {
		e.count(func(s *EnrichStats) { s.Failures++ })
		return extract.GenreResult{}, err
	}
	res, err := extract.DetailGenres(bytes.NewReader(page.Body), detailURL, e.chain)
	if err != nil {
		e.count(func(s *EnrichStats) { s.Failures++ })
		return extract.GenreResult{}, err
	}

	e.metrics.IncGenreLookup(res.Strategy)
	e.count(func(s *EnrichStats) {
		s.Lookups++
		if len(res.Genres) == 0 {
			s.Misses++
		}
	})
	if len(res.Suspect) > 0 {
		slog.Debug("navigation-like genre links",
			slog.String("url", detailURL),
			slog.Any("labels", res.Suspect),
			slog.Bool("dropped", e.chain.NavFilter),
		)
	}
	e.cache.Add(detailURL, res)
	return res, nil
}

// Resolve searches Goodreads for title and author and returns the first
// result's detail URL.
func (e *Enricher) Resolve(ctx context.Context, title, author string) (string, error) {
	query := strings.TrimSpace(cleanQuery(title) + " " + cleanQuery(author))
	if query == "" {
		return "", ErrNotResolved
	}
	searchURL := e.cfg.SearchURL(query)

	page, err := e.fetch(ctx, searchURL)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return "", fmt.Errorf("parse search %s: %w", searchURL, err)
	}
	href, ok := doc.Find(searchResultSelector).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", fmt.Errorf("%w for %q", ErrNotResolved, query)
	}

	base, err := url.Parse(page.URL)
	if err != nil {
		return "", fmt.Errorf("parse search url: %w", err)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parse result href: %w", err)
	}
	e.count(func(s *EnrichStats) { s.Resolved++ })
	return base.ResolveReference(ref).String(), nil
}

// Stats returns the lookup counters.
func (e *Enricher) Stats() EnrichStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *Enricher) each(ctx context.Context, books []*models.Book, fn func(context.Context, *models.Book)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallel)

	start := time.Now()
	for _, b := range books {
		if b == nil {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(gctx, b)
			return gctx.Err()
		})
	}
	err := g.Wait()
	slog.Debug("detail pass finished",
		slog.Int("books", len(books)),
		slog.Duration("elapsed", time.Since(start)),
	)
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (e *Enricher) fetch(ctx context.Context, rawURL string) (*Page, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return e.source.Fetch(ctx, rawURL)
}

func (e *Enricher) trim(genres []string) []string {
	if e.chain.Max > 0 && len(genres) > e.chain.Max {
		return genres[:e.chain.Max]
	}
	return genres
}

func (e *Enricher) count(fn func(*EnrichStats)) {
	e.mu.Lock()
	fn(&e.stats)
	e.mu.Unlock()
}

func cleanQuery(s string) string {
	s = strings.TrimSpace(s)
	if s == models.NotAvailable {
		return ""
	}
	return s
}
