package extract

import (
	"regexp"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
)

func mustSelection(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc.Selection
}

func TestDOMLocatorLocate(t *testing.T) {
	sel := mustSelection(t, `<div class="book">
		<h3 class="title">  The   Hobbit </h3>
		<a class="link" href="/book/show/5">link</a>
		<p><b class="inner">x</b>Parent text 12 ratings</p>
		<div class="AverageRating" aria-label="4.28 stars, 4 million ratings"></div>
	</div>`)
	loc := NewDOMLocator(sel)

	tests := []struct {
		name   string
		c      Criteria
		want   string
		wantOK bool
	}{
		{name: "css text", c: Criteria{Selector: "h3.title"}, want: "The Hobbit", wantOK: true},
		{name: "attribute", c: Criteria{Selector: "a.link", Attr: "href"}, want: "/book/show/5", wantOK: true},
		{name: "parent text", c: Criteria{Selector: "b.inner", Parent: true}, want: "xParent text 12 ratings", wantOK: true},
		{name: "xpath", c: Criteria{XPath: ".//h3[@class='title']"}, want: "The Hobbit", wantOK: true},
		{name: "xpath attribute", c: Criteria{XPath: ".//div[contains(@class,'AverageRating')]", Attr: "aria-label"}, want: "4.28 stars, 4 million ratings", wantOK: true},
		{name: "pattern", c: Criteria{Selector: "p", Pattern: regexp.MustCompile(`(\d+) ratings`)}, want: "12", wantOK: true},
		{name: "pattern miss", c: Criteria{Selector: "p", Pattern: regexp.MustCompile(`shelvings`)}},
		{name: "aria transform", c: Criteria{Selector: "div.AverageRating", Attr: "aria-label", Transform: ariaCount}, want: "4m", wantOK: true},
		{name: "missing", c: Criteria{Selector: "span.none"}},
		{name: "bad xpath", c: Criteria{XPath: "//["}},
		{name: "graph path ignored", c: Criteria{Path: []string{"title"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := loc.Locate(tt.c)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("Locate = %q/%v, want %q/%v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLookupFallsBackInOrder(t *testing.T) {
	loc := NewDOMLocator(mustSelection(t, `<div><span class="b">second</span><span class="c">third</span></div>`))
	spec := FieldSpec{Field: "x", Criteria: []Criteria{
		{Selector: ".a"},
		{Selector: ".b"},
		{Selector: ".c"},
	}}

	got, ok := Lookup(loc, spec)
	if !ok || got != "second" {
		t.Fatalf("Lookup = %q/%v, want second", got, ok)
	}
}

func TestDOMLocatorLocateAll(t *testing.T) {
	loc := NewDOMLocator(mustSelection(t, `<ul><li>a</li><li> </li><li>b</li><li>N/A</li></ul>`))

	got := loc.LocateAll(Criteria{Selector: "li"})
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Fatalf("LocateAll mismatch (-want +got):\n%s", diff)
	}
}
