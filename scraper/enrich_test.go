package scraper

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aluiziolira/go-scrape-goodreads/extract"
	"github.com/aluiziolira/go-scrape-goodreads/models"
	"github.com/google/go-cmp/cmp"
	"github.com/jarcoal/httpmock"
)

func newTestEnricher(t *testing.T, transport *httpmock.MockTransport, navFilter bool) *Enricher {
	t.Helper()
	cfg := testConfig()
	cfg.GenreNavFilter = navFilter
	cfg.MaxGenres = 2
	s := newTestScraper(t, cfg, transport)
	return s.Enricher()
}

func TestEnricherGenresCachesPerURL(t *testing.T) {
	detailURL := testBaseURL + "/book/show/1-dune"
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", detailURL, htmlResponder(domDetailPage))

	e := newTestEnricher(t, transport, false)
	for i := 0; i < 3; i++ {
		res, err := e.Genres(context.Background(), detailURL)
		if err != nil {
			t.Fatalf("genres: %v", err)
		}
		if diff := cmp.Diff([]string{"Science Fiction", "Classics"}, res.Genres); diff != "" {
			t.Fatalf("genres mismatch (-want +got):\n%s", diff)
		}
		if res.Strategy != extract.StrategyGenresLabel {
			t.Fatalf("strategy = %q", res.Strategy)
		}
	}
	if got := transport.GetTotalCallCount(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
	if stats := e.Stats(); stats.Lookups != 1 || stats.Misses != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestEnricherEnrich(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testBaseURL+"/book/show/1-dune", htmlResponder(domDetailPage))
	transport.RegisterResponder("GET", testBaseURL+"/book/show/2-bare", htmlResponder("<html><body><p>No labels here</p></body></html>"))
	transport.RegisterResponder("GET", testBaseURL+"/book/show/3-gone", httpmock.NewStringResponder(http.StatusNotFound, ""))

	withURL := func(slug string) *models.Book {
		b := models.NewEmptyBook(2023, 0)
		b.URL = testBaseURL + "/book/show/" + slug
		return b
	}
	dune := withURL("1-dune")
	bare := withURL("2-bare")
	gone := withURL("3-gone")
	preset := withURL("4-preset")
	preset.Genres = []string{"Fantasy", "Romance", "Young Adult"}
	noURL := models.NewEmptyBook(2023, 5)

	e := newTestEnricher(t, transport, false)
	if err := e.Enrich(context.Background(), []*models.Book{dune, bare, gone, preset, noURL, nil}); err != nil {
		t.Fatalf("enrich: %v", err)
	}

	tests := []struct {
		name string
		book *models.Book
		want []string
	}{
		{"label strategy", dune, []string{"Science Fiction", "Classics"}},
		{"no genres on page", bare, nil},
		{"fetch failure", gone, nil},
		{"already known, trimmed", preset, []string{"Fantasy", "Romance"}},
		{"no url", noURL, nil},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, tt.book.Genres); diff != "" {
			t.Errorf("%s: genres mismatch (-want +got):\n%s", tt.name, diff)
		}
	}

	stats := e.Stats()
	if stats.Lookups != 2 || stats.Misses != 1 || stats.Failures != 1 {
		t.Fatalf("stats = %+v, want 2 lookups, 1 miss, 1 failure", stats)
	}
}

func TestEnricherEnrichCancelled(t *testing.T) {
	transport := httpmock.NewMockTransport()
	e := newTestEnricher(t, transport, false)

	b := models.NewEmptyBook(2023, 0)
	b.URL = testBaseURL + "/book/show/1-dune"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Enrich(ctx, []*models.Book{b}); !errors.Is(err, context.Canceled) {
		t.Fatalf("enrich error = %v, want context.Canceled", err)
	}
	if got := transport.GetTotalCallCount(); got != 0 {
		t.Fatalf("calls = %d, want 0", got)
	}
}

const searchPage = `<html><body><table>
<tr><td><a class="bookTitle" href="/book/show/61431922-fourth-wing?from_search=true"><span>Fourth Wing</span></a></td></tr>
<tr><td><a class="bookTitle" href="/book/show/2-other">Other</a></td></tr>
</table></body></html>`

func TestEnricherResolve(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testBaseURL+"/search", htmlResponder(searchPage))

	e := newTestEnricher(t, transport, true)
	got, err := e.Resolve(context.Background(), "Fourth Wing", "Rebecca Yarros")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if want := testBaseURL + "/book/show/61431922-fourth-wing?from_search=true"; got != want {
		t.Fatalf("resolve = %q, want %q", got, want)
	}

	if _, err := e.Resolve(context.Background(), models.NotAvailable, ""); !errors.Is(err, ErrNotResolved) {
		t.Fatalf("resolve empty query = %v, want ErrNotResolved", err)
	}
}

func TestEnricherResolveNoResults(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testBaseURL+"/search", htmlResponder("<html><body>No results.</body></html>"))

	e := newTestEnricher(t, transport, true)
	if _, err := e.Resolve(context.Background(), "Nothing", "Nobody"); !errors.Is(err, ErrNotResolved) {
		t.Fatalf("resolve = %v, want ErrNotResolved", err)
	}
}

func TestEnricherResolveAll(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testBaseURL+"/search", htmlResponder(searchPage))

	missing := models.NewEmptyBook(2023, 0)
	missing.Title = "Fourth Wing"
	missing.URL = models.NotAvailable
	known := models.NewEmptyBook(2023, 1)
	known.Title = "Known"
	known.URL = testBaseURL + "/book/show/9-known"

	e := newTestEnricher(t, transport, true)
	if err := e.ResolveAll(context.Background(), []*models.Book{missing, known}); err != nil {
		t.Fatalf("resolve all: %v", err)
	}
	if missing.URL != testBaseURL+"/book/show/61431922-fourth-wing?from_search=true" {
		t.Fatalf("resolved url = %q", missing.URL)
	}
	if known.URL != testBaseURL+"/book/show/9-known" {
		t.Fatalf("known url changed to %q", known.URL)
	}
	if got := transport.GetTotalCallCount(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}
