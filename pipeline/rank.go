package pipeline

import (
	"cmp"
	"maps"
	"slices"

	"github.com/aluiziolira/go-scrape-goodreads/models"
)

// Assemble returns copies of books ordered by ratings count, highest first,
// with Rank set to the 1-based position. Equal counts keep discovery order
// (Seq, then input order). The input is not modified.
func Assemble(books []*models.Book) []*models.Book {
	out := make([]*models.Book, 0, len(books))
	for _, b := range books {
		if b != nil {
			out = append(out, b.Clone())
		}
	}

	slices.SortStableFunc(out, func(a, b *models.Book) int {
		if c := cmp.Compare(b.RatingsCount, a.RatingsCount); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
	for i, b := range out {
		b.Rank = i + 1
	}
	return out
}

// AssembleByYear ranks each year independently and concatenates the years
// in ascending order.
func AssembleByYear(books []*models.Book) []*models.Book {
	byYear := make(map[int][]*models.Book)
	for _, b := range books {
		if b != nil {
			byYear[b.Year] = append(byYear[b.Year], b)
		}
	}

	out := make([]*models.Book, 0, len(books))
	for _, year := range slices.Sorted(maps.Keys(byYear)) {
		out = append(out, Assemble(byYear[year])...)
	}
	return out
}
