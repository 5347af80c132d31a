package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Renderers understood by the scraper.
const (
	RendererHTTP    = "http"
	RendererBrowser = "browser"
)

// FirstListingYear is the oldest year Goodreads publishes a popular list for.
const FirstListingYear = 1900

// Config holds scraper configuration.
type Config struct {
	BaseURL   string
	StartYear int
	EndYear   int

	// Fetching.
	Renderer         string // http or browser
	Parallelism      int
	Delay            time.Duration
	RandomDelay      time.Duration
	Timeout          time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
	RetryBackoffMax  time.Duration
	UserAgent        string
	RespectRobotsTxt bool

	// Browser rendering.
	Headless  bool
	MaxClicks int
	LoadWait  time.Duration
	ClickWait time.Duration

	// Genre enrichment.
	IncludeGenres     bool
	MaxGenres         int
	GenreNavFilter    bool
	DetailParallelism int
	DetailRate        time.Duration

	// Pipeline.
	PipelineBufferSize int
	BatchSize          int
	DedupeMaxSize      int

	// Output.
	OutputFile    string
	OutputFormat  string // csv, json, or dual
	Schema        string
	IntegerCounts bool
	MetricsAddr   string
	Verbose       bool
}

// DefaultConfig returns conservative defaults for goodreads.com.
func DefaultConfig() *Config {
	year := time.Now().Year()
	return &Config{
		BaseURL:   "https://www.goodreads.com",
		StartYear: year - 5,
		EndYear:   year,

		Renderer:         RendererHTTP,
		Parallelism:      2,
		Delay:            time.Second,
		RandomDelay:      500 * time.Millisecond,
		Timeout:          30 * time.Second,
		MaxRetries:       2,
		RetryBackoff:     500 * time.Millisecond,
		RetryBackoffMax:  5 * time.Second,
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		RespectRobotsTxt: false,

		Headless:  true,
		MaxClicks: 5,
		LoadWait:  3 * time.Second,
		ClickWait: 2 * time.Second,

		IncludeGenres:     false,
		MaxGenres:         1,
		GenreNavFilter:    false,
		DetailParallelism: 2,
		DetailRate:        2 * time.Second,

		PipelineBufferSize: 256,
		BatchSize:          100,
		DedupeMaxSize:      10000,

		OutputFormat:  "csv",
		IntegerCounts: false,
	}
}

// Output returns the configured output path or the per-range default.
func (c *Config) Output() string {
	if c.OutputFile != "" {
		return c.OutputFile
	}
	return DefaultOutputFile(c.StartYear, c.EndYear)
}

// DefaultOutputFile names the export for a year range.
func DefaultOutputFile(start, end int) string {
	return filepath.Join("output", fmt.Sprintf("goodreads_%d_to_%d_books.csv", start, end))
}

// Years lists the configured years in ascending order.
func (c *Config) Years() []int {
	if c.EndYear < c.StartYear {
		return nil
	}
	years := make([]int, 0, c.EndYear-c.StartYear+1)
	for y := c.StartYear; y <= c.EndYear; y++ {
		years = append(years, y)
	}
	return years
}

// ListingURL is the popular-by-year page for year.
func (c *Config) ListingURL(year int) string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/book/popular_by_date/" + strconv.Itoa(year)
}

// SearchURL is the site search for query.
func (c *Config) SearchURL(query string) string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/search?q=" + url.QueryEscape(query)
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	maxYear := time.Now().Year() + 1
	if c.StartYear < FirstListingYear || c.StartYear > maxYear {
		return fmt.Errorf("start year %d outside %d-%d", c.StartYear, FirstListingYear, maxYear)
	}
	if c.EndYear < FirstListingYear || c.EndYear > maxYear {
		return fmt.Errorf("end year %d outside %d-%d", c.EndYear, FirstListingYear, maxYear)
	}
	if c.EndYear < c.StartYear {
		return fmt.Errorf("end year %d before start year %d", c.EndYear, c.StartYear)
	}

	if c.Renderer != RendererHTTP && c.Renderer != RendererBrowser {
		return fmt.Errorf("renderer must be http or browser")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	if c.MaxClicks < 0 {
		return fmt.Errorf("max clicks cannot be negative")
	}
	if c.LoadWait < 0 || c.ClickWait < 0 {
		return fmt.Errorf("browser waits cannot be negative")
	}

	if c.MaxGenres <= 0 {
		return fmt.Errorf("max genres must be positive")
	}
	if c.DetailParallelism <= 0 {
		return fmt.Errorf("detail parallelism must be positive")
	}
	if c.DetailRate < 0 {
		return fmt.Errorf("detail rate cannot be negative")
	}

	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}

	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}

	return nil
}
