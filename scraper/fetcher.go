package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/aluiziolira/go-scrape-goodreads/config"
	"github.com/gocolly/colly/v2"
)

// Page is a fetched HTML document.
type Page struct {
	URL    string
	Status int
	Body   []byte
}

// PageSource fetches HTML documents. The plain HTTP fetcher and the
// headless browser both implement it.
type PageSource interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
	Stats() FetchStats
	Close() error
}

var errAborted = errors.New("request aborted")

// Fetcher issues plain HTTP requests through colly. Every fetch runs on a
// clone of one base collector, so limits, transport and visited state are
// shared while callbacks stay per request.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	retry     *retryManager
	stats     *fetchStats
	metrics   *Metrics
}

// NewFetcher builds a fetcher restricted to the configured host.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	return &Fetcher{
		cfg:       cfg,
		collector: collector,
		retry:     newRetryManager(cfg, metrics),
		stats:     newFetchStats(),
		metrics:   metrics,
	}, nil
}

// Fetch downloads rawURL, retrying transient failures.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var page *Page
	err := withRetry(ctx, rawURL, f.retry, f.stats, f.metrics, func(ctx context.Context) error {
		p, err := f.fetchOnce(ctx, rawURL)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		f.metrics.IncRequest("failed")
		return nil, err
	}
	f.metrics.IncRequest("succeeded")
	return page, nil
}

// Stats reports what the fetcher has done so far.
func (f *Fetcher) Stats() FetchStats {
	return f.stats.snapshot(f.retry.TotalRetries())
}

// Close is a no-op; idle connections belong to the shared transport.
func (f *Fetcher) Close() error {
	return nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*Page, error) {
	c := f.collector.Clone()

	var (
		page   *Page
		status int
		reqErr error
	)
	c.OnRequest(func(r *colly.Request) {
		if reqCtx, ok := r.Ctx.GetAny("ctx").(context.Context); ok && reqCtx.Err() != nil {
			r.Abort()
			return
		}
		r.Ctx.Put("start", time.Now())
		f.stats.request()
		f.metrics.IncRequest("started")
	})
	c.OnResponse(func(r *colly.Response) {
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			f.metrics.ObserveDuration(time.Since(start))
		}
		status = r.StatusCode
		page = &Page{
			URL:    r.Request.URL.String(),
			Status: r.StatusCode,
			Body:   append([]byte(nil), r.Body...),
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		reqErr = err
	})

	collyCtx := colly.NewContext()
	collyCtx.Put("ctx", ctx)

	err := c.Request(http.MethodGet, rawURL, nil, collyCtx, nil)
	if reqErr == nil {
		reqErr = err
	}
	if reqErr == nil && status >= http.StatusBadRequest {
		reqErr = fmt.Errorf("http status %d", status)
	}
	if reqErr != nil {
		return nil, &FetchError{URL: rawURL, Status: status, Err: classifyError(reqErr, status)}
	}
	if page == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, &FetchError{URL: rawURL, Err: errAborted}
	}
	return page, nil
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		}
	}

	return err
}

func logFetchError(url, category string, err error, retrying bool) {
	if retrying {
		slog.Warn("fetch failed, retrying",
			slog.String("url", url),
			slog.String("category", category),
			slog.Any("error", err),
		)
		return
	}
	slog.Error("fetch failed",
		slog.String("url", url),
		slog.String("category", category),
		slog.Any("error", err),
	)
}
