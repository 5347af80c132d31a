package scraper

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-goodreads/config"
)

// retryManager hands out retry attempts per URL with capped exponential
// backoff.
type retryManager struct {
	cfg     *config.Config
	metrics *Metrics

	mu           sync.Mutex
	attempts     map[string]int
	totalRetries int
}

func newRetryManager(cfg *config.Config, metrics *Metrics) *retryManager {
	return &retryManager{
		cfg:      cfg,
		metrics:  metrics,
		attempts: make(map[string]int),
	}
}

// Schedule reserves another attempt for url and returns the delay to wait
// before it. It reports false once MaxRetries is used up.
func (rm *retryManager) Schedule(url string) (time.Duration, bool) {
	if rm.cfg.MaxRetries <= 0 {
		return 0, false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	attempt := rm.attempts[url]
	if attempt >= rm.cfg.MaxRetries {
		return 0, false
	}
	attempt++
	rm.attempts[url] = attempt
	rm.totalRetries++
	rm.metrics.IncRetries()

	return rm.backoff(attempt), true
}

// Reset forgets the attempts made for url.
func (rm *retryManager) Reset(url string) {
	rm.mu.Lock()
	delete(rm.attempts, url)
	rm.mu.Unlock()
}

func (rm *retryManager) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := rm.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if limit := rm.cfg.RetryBackoffMax; limit > 0 && (delay > limit || delay <= 0) {
		delay = limit
	}
	return delay
}

// TotalRetries returns the number of retries handed out so far.
func (rm *retryManager) TotalRetries() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.totalRetries
}

// FetchStats summarizes the requests a page source issued.
type FetchStats struct {
	Requests     int
	Errors       int
	Retries      int
	FailedURLs   []string
	ErrorsByType map[string]int
}

// Merge adds other into s.
func (s *FetchStats) Merge(other FetchStats) {
	s.Requests += other.Requests
	s.Errors += other.Errors
	s.Retries += other.Retries
	s.FailedURLs = append(s.FailedURLs, other.FailedURLs...)
	if s.ErrorsByType == nil {
		s.ErrorsByType = make(map[string]int)
	}
	for k, v := range other.ErrorsByType {
		s.ErrorsByType[k] += v
	}
}

type fetchStats struct {
	mu           sync.Mutex
	requests     int
	errors       int
	failedURLs   []string
	errorsByType map[string]int
}

func newFetchStats() *fetchStats {
	return &fetchStats{errorsByType: make(map[string]int)}
}

func (s *fetchStats) request() {
	s.mu.Lock()
	s.requests++
	s.mu.Unlock()
}

func (s *fetchStats) recordError(category string) {
	s.mu.Lock()
	s.errors++
	s.errorsByType[category]++
	s.mu.Unlock()
}

func (s *fetchStats) fail(url string) {
	s.mu.Lock()
	s.failedURLs = append(s.failedURLs, url)
	s.mu.Unlock()
}

func (s *fetchStats) snapshot(retries int) FetchStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FetchStats{
		Requests:     s.requests,
		Errors:       s.errors,
		Retries:      retries,
		FailedURLs:   append([]string(nil), s.failedURLs...),
		ErrorsByType: maps.Clone(s.errorsByType),
	}
}

// withRetry runs attempt until it succeeds, fails permanently or the
// retries for url run out. Errors are classified and counted on the way.
func withRetry(ctx context.Context, url string, rm *retryManager, stats *fetchStats, metrics *Metrics, attempt func(context.Context) error) error {
	defer rm.Reset(url)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := attempt(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		category := errorTypeLabel(err)
		stats.recordError(category)
		metrics.IncError(category)

		delay, ok := time.Duration(0), false
		if retryable(err) {
			delay, ok = rm.Schedule(url)
		}
		logFetchError(url, category, err, ok)
		if !ok {
			stats.fail(url)
			return err
		}
		if err := sleepWithContext(ctx, delay); err != nil {
			return err
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
