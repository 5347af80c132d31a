package extract

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/aluiziolira/go-scrape-goodreads/models"
	"github.com/aluiziolira/go-scrape-goodreads/parser"
)

var errNoLocator = errors.New("no locator for record")

// ExtractBook fills one record from loc. Every field falls back to the
// sentinel on its own and reports an ExtractionMiss; a panic anywhere in
// the record yields an all-sentinel record and a RecordFailure.
func ExtractBook(loc Locator, spec RecordSpec, year, seq int) (book *models.Book, errs []error) {
	defer func() {
		if r := recover(); r != nil {
			book = models.NewEmptyBook(year, seq)
			errs = []error{&RecordFailure{Year: year, Seq: seq, Cause: fmt.Errorf("panic: %v", r)}}
		}
	}()

	book = models.NewEmptyBook(year, seq)
	if loc == nil {
		return book, []error{&RecordFailure{Year: year, Seq: seq, Cause: errNoLocator}}
	}

	field := func(fs FieldSpec, dst *string) {
		if len(fs.Criteria) == 0 {
			return
		}
		if v, ok := Lookup(loc, fs); ok {
			*dst = v
			return
		}
		errs = append(errs, &ExtractionMiss{Field: fs.Field, Seq: seq})
	}

	field(spec.Title, &book.Title)
	field(spec.Author, &book.Author)
	field(spec.Rating, &book.RatingText)
	field(spec.RatingsCount, &book.RatingsDisplay)
	field(spec.Shelvings, &book.ShelvingsDisplay)

	if book.RatingText != models.NotAvailable {
		rating, err := parser.ParseRating(book.RatingText)
		if err != nil {
			book.RatingText = models.NotAvailable
			errs = append(errs, err)
		} else {
			book.Rating = rating
		}
	}

	if book.RatingsDisplay != models.NotAvailable {
		n, err := parser.NormalizeCount(book.RatingsDisplay)
		switch {
		case err != nil:
			book.RatingsDisplay = models.NotAvailable
			errs = append(errs, err)
		case spec.NumericCounts:
			book.RatingsCount = n
			book.RatingsDisplay = parser.FormatCount(n)
		default:
			book.RatingsCount = n
		}
	}

	if len(spec.URL.Criteria) > 0 {
		if v, ok := Lookup(loc, spec.URL); ok {
			book.URL = v
		}
	}
	if len(spec.Genres.Criteria) > 0 {
		book.Genres = cleanGenres(LookupAll(loc, spec.Genres))
	}

	return book, errs
}

func formatRating(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
