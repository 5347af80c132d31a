package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-goodreads/config"
	"github.com/chromedp/chromedp"
)

// showMoreScript clicks the listing's "Show more books" button and reports
// whether one was found.
const showMoreScript = `(() => {
	const norm = (s) => (s || '').replace(/\s+/g, ' ').trim().toLowerCase();
	const buttons = Array.from(document.querySelectorAll('button, a'));
	const btn = buttons.find((b) => norm(b.innerText).startsWith('show more books') && !b.disabled);
	if (!btn) return false;
	btn.scrollIntoView({block: 'center'});
	btn.click();
	return true;
})()`

// Browser renders pages in headless Chrome. The allocator and browser
// context live until Close; every fetch opens its own tab.
type Browser struct {
	cfg     *config.Config
	retry   *retryManager
	stats   *fetchStats
	metrics *Metrics

	allocCtx      context.Context
	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
}

// NewBrowser starts a browser session. Callers must Close it.
func NewBrowser(ctx context.Context, cfg *config.Config, metrics *Metrics) (*Browser, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
	)

	b := &Browser{
		cfg:     cfg,
		retry:   newRetryManager(cfg, metrics),
		stats:   newFetchStats(),
		metrics: metrics,
	}
	b.allocCtx, b.cancelAlloc = chromedp.NewExecAllocator(ctx, opts...)
	b.browserCtx, b.cancelBrowser = chromedp.NewContext(b.allocCtx)

	if err := chromedp.Run(b.browserCtx); err != nil {
		b.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return b, nil
}

// Fetch renders rawURL, expanding the listing with up to MaxClicks
// "Show more books" clicks, and returns the resulting HTML.
func (b *Browser) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var html string
	err := withRetry(ctx, rawURL, b.retry, b.stats, b.metrics, func(ctx context.Context) error {
		out, err := b.render(ctx, rawURL)
		if err != nil {
			return &FetchError{URL: rawURL, Err: classifyError(err, 0)}
		}
		html = out
		return nil
	})
	if err != nil {
		b.metrics.IncRequest("failed")
		return nil, err
	}
	b.metrics.IncRequest("succeeded")
	return &Page{URL: rawURL, Status: 200, Body: []byte(html)}, nil
}

func (b *Browser) render(ctx context.Context, rawURL string) (string, error) {
	tab, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()
	budget := b.cfg.Timeout + b.cfg.LoadWait + time.Duration(b.cfg.MaxClicks)*b.cfg.ClickWait
	tabCtx, cancel := context.WithTimeout(tab, budget)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	b.stats.request()
	b.metrics.IncRequest("started")
	start := time.Now()
	defer func() { b.metrics.ObserveDuration(time.Since(start)) }()

	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(rawURL),
		chromedp.Sleep(b.cfg.LoadWait),
	); err != nil {
		return "", err
	}

	for i := 0; i < b.cfg.MaxClicks; i++ {
		var clicked bool
		if err := chromedp.Run(tabCtx, chromedp.Evaluate(showMoreScript, &clicked)); err != nil {
			return "", err
		}
		if !clicked {
			break
		}
		slog.Debug("expanded listing", slog.String("url", rawURL), slog.Int("click", i+1))
		if err := chromedp.Run(tabCtx, chromedp.Sleep(b.cfg.ClickWait)); err != nil {
			return "", err
		}
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Stats reports what the browser has fetched so far.
func (b *Browser) Stats() FetchStats {
	return b.stats.snapshot(b.retry.TotalRetries())
}

// Close shuts the browser down. It is safe to call more than once.
func (b *Browser) Close() error {
	if b.cancelBrowser != nil {
		b.cancelBrowser()
	}
	if b.cancelAlloc != nil {
		b.cancelAlloc()
	}
	return nil
}
