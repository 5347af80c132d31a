package extract

import (
	"regexp"

	"github.com/aluiziolira/go-scrape-goodreads/models"
	"github.com/aluiziolira/go-scrape-goodreads/parser"
)

// RecordSpec groups the field fallbacks for one page representation. A
// FieldSpec without criteria is not part of that representation and is
// skipped without reporting a miss.
type RecordSpec struct {
	Name         string
	Title        FieldSpec
	Author       FieldSpec
	Rating       FieldSpec
	RatingsCount FieldSpec
	Shelvings    FieldSpec
	URL          FieldSpec
	Genres       FieldSpec

	// NumericCounts marks representations that carry exact integer counts;
	// the display form is then derived with parser.FormatCount.
	NumericCounts bool
}

// Container selectors for the DOM representations.
const (
	ListingItemSelector = "article.BookListItem"
	LegacyItemSelector  = "div[itemtype='http://schema.org/Book']"
)

var (
	miniRatingRe = regexp.MustCompile(`([\d.]+)\s+avg rating`)
	miniCountRe  = regexp.MustCompile(`([\d,]+)\s+ratings?`)
	decimalRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
)

// ListingDOMSpec reads the current popular-by-year list items.
var ListingDOMSpec = RecordSpec{
	Name: "listing",
	Title: FieldSpec{Field: models.FieldTitle, Criteria: []Criteria{
		{Selector: "a[data-testid='bookTitle']"},
		{Selector: "[data-testid='bookTitle']"},
		{Selector: "a.bookTitle"},
	}},
	Author: FieldSpec{Field: models.FieldAuthor, Criteria: []Criteria{
		{Selector: "span[data-testid='name']"},
		{Selector: ".ContributorLink__name"},
		{Selector: "a.authorName span"},
	}},
	Rating: FieldSpec{Field: models.FieldRating, Criteria: []Criteria{
		{Selector: "div.AverageRating", Attr: "aria-label", Transform: ariaRating},
		{Selector: "span.minirating", Pattern: miniRatingRe},
	}},
	RatingsCount: FieldSpec{Field: models.FieldRatingsCount, Criteria: []Criteria{
		{Selector: "div.AverageRating", Attr: "aria-label", Transform: ariaCount},
		{Selector: "span.minirating", Pattern: miniCountRe},
	}},
	URL: FieldSpec{Field: models.FieldURL, Criteria: []Criteria{
		{Selector: "a[data-testid='bookTitle']", Attr: "href"},
		{Selector: "a.bookTitle", Attr: "href"},
	}},
}

// LegacyDOMSpec reads schema.org Book containers, where ratings and
// shelvings share one free-text node.
var LegacyDOMSpec = RecordSpec{
	Name: "legacy",
	Title: FieldSpec{Field: models.FieldTitle, Criteria: []Criteria{
		{Selector: "h3[data-testid='bookTitle']"},
		{Selector: "[itemprop='name']"},
	}},
	Author: FieldSpec{Field: models.FieldAuthor, Criteria: []Criteria{
		{Selector: "span[data-testid='name']"},
		{Selector: "[itemprop='author'] [itemprop='name']"},
	}},
	Rating: FieldSpec{Field: models.FieldRating, Criteria: []Criteria{
		{Selector: "[class*='RatingStatistics__rating']", Pattern: decimalRe},
	}},
	RatingsCount: FieldSpec{Field: models.FieldRatingsCount, Criteria: []Criteria{
		{XPath: ".//span[contains(text(),'ratings')]", Transform: statsRatings},
		{Selector: "[class*='RatingStatistics__meta']", Transform: statsRatings},
	}},
	Shelvings: FieldSpec{Field: models.FieldShelvingsCount, Criteria: []Criteria{
		{XPath: ".//span[contains(text(),'shelvings')]", Transform: statsShelvings},
		{Selector: "[class*='RatingStatistics__meta']", Transform: statsShelvings},
	}},
	URL: FieldSpec{Field: models.FieldURL, Criteria: []Criteria{
		{Selector: "a[href*='/book/show/']", Attr: "href"},
	}},
}

// GraphSpec reads a Work entity and the Book it points at.
var GraphSpec = RecordSpec{
	Name: "graph",
	Title: FieldSpec{Field: models.FieldTitle, Criteria: []Criteria{
		{Path: []string{"bestBook", "title"}},
		{Path: []string{"bestBook", "titleComplete"}},
		{Path: []string{"details", "originalTitle"}},
	}},
	Author: FieldSpec{Field: models.FieldAuthor, Criteria: []Criteria{
		{Path: []string{"bestBook", "primaryContributorEdge", "node", "name"}},
		{Path: []string{"primaryContributorEdge", "node", "name"}},
	}},
	Rating: FieldSpec{Field: models.FieldRating, Criteria: []Criteria{
		{Path: []string{"stats", "averageRating"}, Transform: graphRating},
		{Path: []string{"bestBook", "stats", "averageRating"}, Transform: graphRating},
	}},
	RatingsCount: FieldSpec{Field: models.FieldRatingsCount, Criteria: []Criteria{
		{Path: []string{"stats", "ratingsCount"}},
		{Path: []string{"bestBook", "stats", "ratingsCount"}},
	}},
	URL: FieldSpec{Field: models.FieldURL, Criteria: []Criteria{
		{Path: []string{"bestBook", "webUrl"}},
	}},
	Genres: FieldSpec{Field: models.FieldGenres, Criteria: []Criteria{
		{Path: []string{"bestBook", "bookGenres", "[]", "genre", "name"}},
	}},
	NumericCounts: true,
}

func ariaRating(label string) (string, bool) {
	rating, _ := parser.ParseAriaLabel(label)
	return rating, rating != models.NotAvailable
}

func ariaCount(label string) (string, bool) {
	_, count := parser.ParseAriaLabel(label)
	return count, count != models.NotAvailable
}

func statsRatings(text string) (string, bool) {
	ratings, _ := parser.ParseStats(text)
	return ratings, ratings != models.NotAvailable
}

func statsShelvings(text string) (string, bool) {
	_, shelvings := parser.ParseStats(text)
	return shelvings, shelvings != models.NotAvailable
}

// graphRating keeps two decimals, the precision the site displays.
func graphRating(s string) (string, bool) {
	f, err := parser.ParseRating(s)
	if err != nil {
		return "", false
	}
	return formatRating(f), true
}
