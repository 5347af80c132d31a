package parser

import (
	"errors"
	"testing"

	"github.com/aluiziolira/go-scrape-goodreads/models"
)

func TestValidateBook(t *testing.T) {
	tests := []struct {
		name    string
		book    *models.Book
		wantErr bool
	}{
		{
			name:    "partial book is valid",
			book:    &models.Book{Year: 2025, Title: models.NotAvailable},
			wantErr: false,
		},
		{
			name:    "nil book",
			book:    nil,
			wantErr: true,
		},
		{
			name:    "missing year",
			book:    &models.Book{Title: "Onyx Storm"},
			wantErr: true,
		},
		{
			name:    "negative position",
			book:    &models.Book{Year: 2025, Seq: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBook(tt.book)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBook() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "collapses whitespace", input: "  The\n  Women  ", expected: "The Women"},
		{name: "already clean", input: "Funny Story", expected: "Funny Story"},
		{name: "empty string", input: "", expected: models.NotAvailable},
		{name: "only spaces", input: " \t ", expected: models.NotAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.input); got != tt.expected {
				t.Errorf("NormalizeText(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeBookDerivesCountFromDisplay(t *testing.T) {
	book := &models.Book{
		Year:           2025,
		Title:          " Fourth   Wing ",
		Author:         "",
		RatingText:     "4.58",
		RatingsDisplay: "1.5m",
		Genres:         []string{" Fantasy ", "", models.NotAvailable},
	}

	if errs := NormalizeBook(book); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if book.Title != "Fourth Wing" {
		t.Fatalf("title = %q", book.Title)
	}
	if book.Author != models.NotAvailable {
		t.Fatalf("author = %q, want sentinel", book.Author)
	}
	if book.RatingsCount != 1_500_000 {
		t.Fatalf("ratings count = %d, want 1500000", book.RatingsCount)
	}
	if book.Rating != 4.58 {
		t.Fatalf("rating = %v, want 4.58", book.Rating)
	}
	if len(book.Genres) != 1 || book.Genres[0] != "Fantasy" {
		t.Fatalf("genres = %v, want [Fantasy]", book.Genres)
	}
}

func TestNormalizeBookDerivesDisplayFromCount(t *testing.T) {
	book := &models.Book{Year: 2025, RatingsCount: 234_567}
	NormalizeBook(book)
	if book.RatingsDisplay != "235k" {
		t.Fatalf("display = %q, want 235k", book.RatingsDisplay)
	}
	if book.RatingText != models.NotAvailable || book.Rating != 0 {
		t.Fatalf("rating = %q/%v, want sentinel/0", book.RatingText, book.Rating)
	}
}

func TestNormalizeBookReportsParseErrors(t *testing.T) {
	book := &models.Book{Year: 2025, RatingText: "7.9", RatingsDisplay: "lots"}
	errs := NormalizeBook(book)
	if len(errs) != 2 {
		t.Fatalf("errors = %v, want 2", errs)
	}
	for _, err := range errs {
		if !errors.Is(err, ErrParse) {
			t.Fatalf("error %v does not match ErrParse", err)
		}
	}
	if book.RatingText != models.NotAvailable || book.RatingsDisplay != models.NotAvailable {
		t.Fatalf("bad fields should fall back to the sentinel, got %q/%q", book.RatingText, book.RatingsDisplay)
	}
	if book.RatingsCount != 0 {
		t.Fatalf("ratings count = %d, want 0", book.RatingsCount)
	}
}
