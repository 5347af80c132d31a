package extract

import (
	"fmt"
	"io"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-goodreads/models"
)

// Listing sources, in order of preference.
const (
	SourceGraph  = "graph"
	SourceDOM    = "dom"
	SourceLegacy = "legacy"
	SourceNone   = "none"
)

// Listing is the outcome of reading one popular-by-year page.
type Listing struct {
	Year   int
	Source string
	Books  []*models.Book
	Errors []error
}

// ParseListing reads a listing page. Only unreadable HTML is an error; a
// page with no recognizable books yields an empty listing.
func ParseListing(r io.Reader, pageURL string, year int) (*Listing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse listing %s: %w", pageURL, err)
	}
	return ListingFromDocument(doc, pageURL, year), nil
}

// ListingFromDocument extracts books from an already parsed page.
func ListingFromDocument(doc *goquery.Document, pageURL string, year int) *Listing {
	l := &Listing{Year: year, Source: SourceNone}

	if g, err := ParseNextData(doc); err == nil {
		if keys := g.Keys(WorkPrefix); len(keys) > 0 {
			l.Source = SourceGraph
			for seq, key := range keys {
				l.add(NewGraphLocator(g, key), GraphSpec, pageURL, seq)
			}
			return l
		}
	}

	for _, rep := range []struct {
		source   string
		selector string
		spec     RecordSpec
	}{
		{SourceDOM, ListingItemSelector, ListingDOMSpec},
		{SourceLegacy, LegacyItemSelector, LegacyDOMSpec},
	} {
		items := doc.Find(rep.selector)
		if items.Length() == 0 {
			continue
		}
		l.Source = rep.source
		items.Each(func(seq int, item *goquery.Selection) {
			l.add(NewDOMLocator(item), rep.spec, pageURL, seq)
		})
		return l
	}
	return l
}

func (l *Listing) add(loc Locator, spec RecordSpec, pageURL string, seq int) {
	book, errs := ExtractBook(loc, spec, l.Year, seq)
	book.URL = absoluteURL(pageURL, book.URL)
	l.Books = append(l.Books, book)
	l.Errors = append(l.Errors, errs...)
}

func absoluteURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if u.IsAbs() {
		return u.String()
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return ref
	}
	return b.ResolveReference(u).String()
}
