// Package models defines data structures for the scraper.
package models

import (
	"strconv"
	"strings"
	"time"
)

// NotAvailable is the sentinel written for fields that could not be extracted.
const NotAvailable = "N/A"

// Output column names understood by Book.Field.
const (
	FieldYear            = "year"
	FieldRank            = "rank"
	FieldTitle           = "title"
	FieldAuthor          = "author"
	FieldRating          = "rating"
	FieldRatingsCount    = "ratings_count"
	FieldShelvingsCount  = "shelvings_count"
	FieldGenres          = "genres"
	FieldURL             = "book_url"
	FieldScrapedAt       = "scraped_at"
	FieldRatingsCountInt = "ratings_count_int"
)

// Book is one popular-books entry. Seq is the discovery position on the
// listing page and breaks ties when ranking.
type Book struct {
	Year             int       `json:"year"`
	Rank             int       `json:"rank"`
	Seq              int       `json:"-"`
	Title            string    `json:"title"`
	Author           string    `json:"author"`
	RatingText       string    `json:"rating"`
	Rating           float64   `json:"rating_numeric"`
	RatingsCount     int64     `json:"ratings_count"`
	RatingsDisplay   string    `json:"ratings_display"`
	ShelvingsDisplay string    `json:"shelvings_count"`
	Genres           []string  `json:"genres,omitempty"`
	URL              string    `json:"book_url,omitempty"`
	ScrapedAt        time.Time `json:"scraped_at"`
}

// NewEmptyBook returns a record whose every text field holds the sentinel.
func NewEmptyBook(year, seq int) *Book {
	return &Book{
		Year:             year,
		Seq:              seq,
		Title:            NotAvailable,
		Author:           NotAvailable,
		RatingText:       NotAvailable,
		RatingsDisplay:   NotAvailable,
		ShelvingsDisplay: NotAvailable,
		ScrapedAt:        time.Now(),
	}
}

// Clone returns a copy that shares nothing mutable with b.
func (b *Book) Clone() *Book {
	if b == nil {
		return nil
	}
	out := *b
	if b.Genres != nil {
		out.Genres = append([]string(nil), b.Genres...)
	}
	return &out
}

// Complete reports whether every ranked field was extracted.
func (b *Book) Complete() bool {
	if b == nil {
		return false
	}
	return present(b.Title) && present(b.Author) && present(b.RatingText) && present(b.RatingsDisplay)
}

// GenreText joins the genre labels the way the CSV export stores them.
func (b *Book) GenreText() string {
	if len(b.Genres) == 0 {
		return NotAvailable
	}
	return strings.Join(b.Genres, ", ")
}

// Field renders the named output column. Unknown names report false.
func (b *Book) Field(name string) (string, bool) {
	switch name {
	case FieldYear:
		if b.Year == 0 {
			return NotAvailable, true
		}
		return strconv.Itoa(b.Year), true
	case FieldRank:
		if b.Rank == 0 {
			return NotAvailable, true
		}
		return strconv.Itoa(b.Rank), true
	case FieldTitle:
		return orSentinel(b.Title), true
	case FieldAuthor:
		return orSentinel(b.Author), true
	case FieldRating:
		return orSentinel(b.RatingText), true
	case FieldRatingsCount:
		return orSentinel(b.RatingsDisplay), true
	case FieldRatingsCountInt:
		return strconv.FormatInt(b.RatingsCount, 10), true
	case FieldShelvingsCount:
		return orSentinel(b.ShelvingsDisplay), true
	case FieldGenres:
		return b.GenreText(), true
	case FieldURL:
		return orSentinel(b.URL), true
	case FieldScrapedAt:
		if b.ScrapedAt.IsZero() {
			return NotAvailable, true
		}
		return b.ScrapedAt.Format(time.RFC3339), true
	default:
		return "", false
	}
}

func present(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && s != NotAvailable
}

func orSentinel(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}

// ScraperResult holds the overall result of a scraping operation
type ScraperResult struct {
	StartTime      time.Time
	EndTime        time.Time
	TotalCount     int
	CompleteCount  int
	PartialCount   int
	FailedRecords  int
	ParseErrors    int
	BooksByYear    map[int]int
	ListingSources map[int]string
	FieldMisses    map[string]int
	ErrorCount     int
	FailedURLs     []string
	ErrorsByType   map[string]int
	RetryCount     int
	RequestCount   int
	PageCount      int
	GenreLookups   int
	GenreMisses    int
}

// NewScraperResult returns a result with its maps allocated.
func NewScraperResult(start time.Time) *ScraperResult {
	return &ScraperResult{
		StartTime:      start,
		BooksByYear:    make(map[int]int),
		ListingSources: make(map[int]string),
		FieldMisses:    make(map[string]int),
		ErrorsByType:   make(map[string]int),
	}
}
