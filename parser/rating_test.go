package parser

import (
	"testing"

	"github.com/aluiziolira/go-scrape-goodreads/models"
)

func TestParseRating(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{input: "4.21", want: 4.21},
		{input: " 3 ", want: 3},
		{input: "0", want: 0},
		{input: "5.00", want: 5},
		{input: "5.01", wantErr: true},
		{input: "-1", wantErr: true},
		{input: models.NotAvailable, wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRating(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRating(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Fatalf("ParseRating(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseAriaLabel(t *testing.T) {
	tests := []struct {
		name       string
		label      string
		wantRating string
		wantCount  string
	}{
		{name: "millions", label: "4.21 stars, 2 million ratings", wantRating: "4.21", wantCount: "2m"},
		{name: "fractional millions", label: "Average rating 4.5 stars, 1.2 million ratings", wantRating: "4.5", wantCount: "1.2m"},
		{name: "thousands", label: "3.98 stars, 969 thousand ratings", wantRating: "3.98", wantCount: "969k"},
		{name: "compact", label: "4.02 stars, 617k ratings", wantRating: "4.02", wantCount: "617k"},
		{name: "plain", label: "4.1 stars, 12,345 ratings", wantRating: "4.1", wantCount: "12,345"},
		{name: "single rating", label: "5 stars, 1 rating", wantRating: "5", wantCount: "1"},
		{name: "no count", label: "4.44 stars", wantRating: "4.44", wantCount: models.NotAvailable},
		{name: "empty", label: "", wantRating: models.NotAvailable, wantCount: models.NotAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rating, count := ParseAriaLabel(tt.label)
			if rating != tt.wantRating || count != tt.wantCount {
				t.Fatalf("ParseAriaLabel(%q) = %q/%q, want %q/%q", tt.label, rating, count, tt.wantRating, tt.wantCount)
			}
		})
	}
}

func TestParseStats(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		wantRatings   string
		wantShelvings string
	}{
		{name: "both", text: "2m ratings · 3.1m shelvings", wantRatings: "2m", wantShelvings: "3.1m"},
		{name: "ratings only", text: "45,210 ratings", wantRatings: "45,210", wantShelvings: models.NotAvailable},
		{name: "shelvings only", text: "812k shelvings", wantRatings: models.NotAvailable, wantShelvings: "812k"},
		{name: "spaced suffix", text: "1.4 M ratings and 2 K shelvings", wantRatings: "1.4m", wantShelvings: "2k"},
		{name: "neither", text: "Want to read", wantRatings: models.NotAvailable, wantShelvings: models.NotAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratings, shelvings := ParseStats(tt.text)
			if ratings != tt.wantRatings || shelvings != tt.wantShelvings {
				t.Fatalf("ParseStats(%q) = %q/%q, want %q/%q", tt.text, ratings, shelvings, tt.wantRatings, tt.wantShelvings)
			}
		})
	}
}
