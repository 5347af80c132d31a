package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/aluiziolira/go-scrape-goodreads/models"
	"github.com/aluiziolira/go-scrape-goodreads/parser"
	"github.com/google/go-cmp/cmp"
)

func rankedBook(year, seq int, title string, count int64) *models.Book {
	b := models.NewEmptyBook(year, seq)
	b.Title = title
	b.RatingsCount = count
	return b
}

func TestAssemble(t *testing.T) {
	tests := []struct {
		name  string
		books []*models.Book
		want  []string
	}{
		{
			name: "descending by count",
			books: []*models.Book{
				rankedBook(2023, 0, "a", 500),
				rankedBook(2023, 1, "b", 2_500_000),
				rankedBook(2023, 2, "c", 15_000),
			},
			want: []string{"b", "c", "a"},
		},
		{
			name: "ties keep discovery order",
			books: []*models.Book{
				rankedBook(2023, 2, "third", 100),
				rankedBook(2023, 0, "first", 100),
				rankedBook(2023, 1, "second", 100),
			},
			want: []string{"first", "second", "third"},
		},
		{
			name: "zero counts sort last",
			books: []*models.Book{
				rankedBook(2023, 0, "unknown", 0),
				rankedBook(2023, 1, "known", 1),
			},
			want: []string{"known", "unknown"},
		},
		{
			name:  "nil entries skipped",
			books: []*models.Book{nil, rankedBook(2023, 0, "only", 3)},
			want:  []string{"only"},
		},
		{
			name: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Assemble(tt.books)

			var titles []string
			for i, b := range got {
				if b.Rank != i+1 {
					t.Fatalf("rank at %d = %d, want %d", i, b.Rank, i+1)
				}
				titles = append(titles, b.Title)
			}
			if diff := cmp.Diff(tt.want, titles); diff != "" {
				t.Fatalf("order mismatch (-want +got):\n%s", diff)
			}
			for _, b := range tt.books {
				if b != nil && b.Rank != 0 {
					t.Fatalf("input %q was ranked in place", b.Title)
				}
			}
		})
	}
}

func TestAssembleByYear(t *testing.T) {
	books := []*models.Book{
		rankedBook(2025, 0, "late-low", 10),
		rankedBook(2020, 0, "early-low", 5),
		rankedBook(2025, 1, "late-high", 99),
		rankedBook(2020, 1, "early-high", 50),
	}

	type row struct {
		year  int
		rank  int
		title string
	}
	var got []row
	for _, b := range AssembleByYear(books) {
		got = append(got, row{b.Year, b.Rank, b.Title})
	}
	want := []row{
		{2020, 1, "early-high"},
		{2020, 2, "early-low"},
		{2025, 1, "late-high"},
		{2025, 2, "late-low"},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(row{})); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

// Normalizing, ranking and writing the displays "500", "2.5m" and "15k"
// yields the expected ranks in the CSV.
func TestNormalizeRankWrite(t *testing.T) {
	var books []*models.Book
	for i, display := range []string{"500", "2.5m", "15k"} {
		b := models.NewEmptyBook(2023, i)
		b.Title = display
		b.RatingsDisplay = display
		if errs := parser.NormalizeBook(b); len(errs) != 0 {
			t.Fatalf("normalize %q: %v", display, errs)
		}
		books = append(books, b)
	}

	path := filepath.Join(t.TempDir(), "ranked.csv")
	writer, err := NewCSVWriter(path, Schema{Columns: []string{"rank", "title", "ratings_count"}, IntegerCounts: true})
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Write(Assemble(books)); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	want := [][]string{
		{"rank", "title", "ratings_count"},
		{"1", "2.5m", "2500000"},
		{"2", "15k", "15000"},
		{"3", "500", "500"},
	}
	if diff := cmp.Diff(want, readCSV(t, path)); diff != "" {
		t.Fatalf("csv mismatch (-want +got):\n%s", diff)
	}
}
