package pipeline

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-goodreads/models"
)

// Schema is the ordered list of output columns.
type Schema struct {
	Columns []string

	// IntegerCounts writes ratings_count as the canonical integer instead
	// of the compact display form.
	IntegerCounts bool
}

// ListingSchema is the popular-by-year export, optionally with genres.
func ListingSchema(withGenres bool) Schema {
	cols := []string{
		models.FieldYear,
		models.FieldRank,
		models.FieldTitle,
		models.FieldAuthor,
		models.FieldRating,
		models.FieldRatingsCount,
	}
	if withGenres {
		cols = append(cols, models.FieldGenres)
	}
	return Schema{Columns: cols}
}

// GenreFixSchema is the layout rewritten by the genre fix pass.
func GenreFixSchema() Schema {
	return ListingSchema(true)
}

// LegacySchema is the single-page export of the older site layout.
func LegacySchema() Schema {
	return Schema{Columns: []string{
		models.FieldRank,
		models.FieldTitle,
		models.FieldAuthor,
		models.FieldRating,
		models.FieldRatingsCount,
		models.FieldShelvingsCount,
	}}
}

// ParseSchema accepts a preset name (listing, genres, legacy) or a
// comma-separated column list.
func ParseSchema(spec string) (Schema, error) {
	switch strings.ToLower(strings.TrimSpace(spec)) {
	case "", "listing":
		return ListingSchema(false), nil
	case "genres":
		return GenreFixSchema(), nil
	case "legacy":
		return LegacySchema(), nil
	}

	var cols []string
	for _, col := range strings.Split(spec, ",") {
		col = strings.TrimSpace(col)
		if col == "" {
			return Schema{}, fmt.Errorf("schema %q has an empty column", spec)
		}
		cols = append(cols, col)
	}
	return Schema{Columns: cols}, nil
}

// Header returns the column names verbatim.
func (s Schema) Header() []string {
	return append([]string(nil), s.Columns...)
}

// Row renders b in column order. Columns the record does not know render
// as the sentinel.
func (s Schema) Row(b *models.Book) []string {
	row := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		row[i] = s.value(b, col)
	}
	return row
}

func (s Schema) value(b *models.Book, col string) string {
	if col == models.FieldRatingsCount && s.IntegerCounts {
		col = models.FieldRatingsCountInt
	}
	v, ok := b.Field(col)
	if !ok {
		return models.NotAvailable
	}
	return v
}

// Object renders b as a JSON object restricted to the schema columns.
// Numeric columns keep their numeric type.
func (s Schema) Object(b *models.Book) map[string]any {
	obj := make(map[string]any, len(s.Columns))
	for _, col := range s.Columns {
		switch {
		case col == models.FieldYear && b.Year > 0:
			obj[col] = b.Year
		case col == models.FieldRank && b.Rank > 0:
			obj[col] = b.Rank
		case col == models.FieldRatingsCountInt,
			col == models.FieldRatingsCount && s.IntegerCounts:
			obj[col] = b.RatingsCount
		case col == models.FieldGenres && len(b.Genres) > 0:
			obj[col] = b.Genres
		default:
			obj[col] = s.value(b, col)
		}
	}
	return obj
}
