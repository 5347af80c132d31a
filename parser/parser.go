// Package parser normalizes the text scraped from Goodreads pages: compact
// rating counts, star ratings and whitespace.
package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-goodreads/models"
)

// ValidateBook rejects records the pipeline cannot place in a ranking.
// Missing fields are not errors; they hold the sentinel.
func ValidateBook(b *models.Book) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if b.Year <= 0 {
		return fmt.Errorf("book missing year for %s", b.Title)
	}
	if b.Seq < 0 {
		return fmt.Errorf("book has negative position for %s", b.Title)
	}
	return nil
}

// NormalizeText collapses runs of whitespace and substitutes the sentinel
// for empty text.
func NormalizeText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return models.NotAvailable
	}
	return text
}

// NormalizeBook cleans b in place and reconciles the two representations of
// its rating count. Parse failures are returned, not fatal.
func NormalizeBook(b *models.Book) []error {
	var errs []error

	b.Title = NormalizeText(b.Title)
	b.Author = NormalizeText(b.Author)
	b.RatingText = NormalizeText(b.RatingText)
	b.RatingsDisplay = NormalizeText(b.RatingsDisplay)
	b.ShelvingsDisplay = NormalizeText(b.ShelvingsDisplay)
	b.URL = strings.TrimSpace(b.URL)

	if b.RatingText != models.NotAvailable {
		rating, err := ParseRating(b.RatingText)
		if err != nil {
			errs = append(errs, err)
			b.RatingText = models.NotAvailable
		}
		b.Rating = rating
	} else {
		b.Rating = 0
	}

	switch {
	case b.RatingsCount > 0 && b.RatingsDisplay == models.NotAvailable:
		b.RatingsDisplay = FormatCount(b.RatingsCount)
	case b.RatingsCount == 0 && b.RatingsDisplay != models.NotAvailable:
		count, err := NormalizeCount(b.RatingsDisplay)
		if err != nil {
			errs = append(errs, err)
			b.RatingsDisplay = models.NotAvailable
		}
		b.RatingsCount = count
	}

	genres := b.Genres[:0]
	for _, g := range b.Genres {
		g = strings.Join(strings.Fields(g), " ")
		if g != "" && g != models.NotAvailable {
			genres = append(genres, g)
		}
	}
	if len(genres) == 0 {
		genres = nil
	}
	b.Genres = genres

	return errs
}
