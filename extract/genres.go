package extract

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// MaxGenreLength bounds a genre label in runes; longer link texts are
// never genres.
const MaxGenreLength = 30

const genreLinkSelector = "a[href*='/genres/']"

// Genre strategy names, reported in GenreResult.Strategy.
const (
	StrategyGraph          = "graph"
	StrategyGenresLabel    = "genres-label"
	StrategyGenreContainer = "genre-container"
	StrategyDocumentScan   = "document-scan"
	StrategyPageLinks      = "page-links"
)

var (
	genresLabelRe = regexp.MustCompile(`(?i)genres`)
	genreClassRe  = regexp.MustCompile(`(?i)genre`)

	genreDenylist = []string{"browse", "explore", "home", "recommendations"}
	navMarkers    = []string{"Home", "My Books", "Browse", "Community"}

	// navGenres are the labels of the site-wide genre menu.
	navGenres = map[string]struct{}{
		"Art": {}, "Biography": {}, "Business": {}, "Children's": {}, "Christian": {},
		"Classics": {}, "Comics": {}, "Cookbooks": {}, "Ebooks": {}, "Fantasy": {},
		"Fiction": {}, "Graphic Novels": {}, "Historical Fiction": {}, "History": {},
		"Horror": {}, "Memoir": {}, "Music": {}, "Mystery": {}, "Nonfiction": {}, "Poetry": {},
		"Psychology": {}, "Romance": {}, "Science": {}, "Science Fiction": {},
		"Self Help": {}, "Sports": {}, "Thriller": {}, "Travel": {}, "Young Adult": {},
	}
)

// GenreResult is what a genre lookup found. Suspect lists labels that
// looked like navigation menu entries.
type GenreResult struct {
	Genres   []string
	Strategy string
	Suspect  []string
}

// GenreStrategy is one heuristic in the fallback chain.
type GenreStrategy struct {
	Name string
	Find func(doc *goquery.Selection, f *genreFilter) []string
}

// GenreChain tries its strategies in order and stops at the first that
// yields labels.
type GenreChain struct {
	Strategies []GenreStrategy
	NavFilter  bool
	Max        int
}

// DefaultGenreChain returns the detail-page chain. With navFilter the
// whole-page link scan is appended and navigation-looking links are
// dropped instead of reported.
func DefaultGenreChain(navFilter bool, limit int) GenreChain {
	if limit <= 0 {
		limit = 1
	}
	chain := GenreChain{
		Strategies: []GenreStrategy{
			{Name: StrategyGenresLabel, Find: findLabelled},
			{Name: StrategyGenreContainer, Find: findContainer},
			{Name: StrategyDocumentScan, Find: findScanned},
		},
		NavFilter: navFilter,
		Max:       limit,
	}
	if navFilter {
		chain.Strategies = append(chain.Strategies, GenreStrategy{Name: StrategyPageLinks, Find: findPageLinks})
	}
	return chain
}

// Run applies the chain to a parsed page.
func (c GenreChain) Run(doc *goquery.Selection) GenreResult {
	f := &genreFilter{navFilter: c.NavFilter}
	for _, s := range c.Strategies {
		got := s.Find(doc, f)
		if len(got) == 0 {
			continue
		}
		if c.Max > 0 && len(got) > c.Max {
			got = got[:c.Max]
		}
		return GenreResult{Genres: got, Strategy: s.Name, Suspect: f.suspect}
	}
	return GenreResult{Suspect: f.suspect}
}

// DetailGenres reads the genres of one book detail page. The embedded graph
// is preferred; a page without genres yields an empty result.
func DetailGenres(r io.Reader, pageURL string, chain GenreChain) (GenreResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return GenreResult{}, fmt.Errorf("parse detail %s: %w", pageURL, err)
	}

	if g, err := ParseNextData(doc); err == nil {
		if key, ok := detailBookKey(g, pageURL); ok {
			loc := NewGraphLocator(g, key)
			genres := cleanGenres(loc.LocateAll(Criteria{Path: []string{"bookGenres", "[]", "genre", "name"}}))
			if len(genres) > 0 {
				if chain.Max > 0 && len(genres) > chain.Max {
					genres = genres[:chain.Max]
				}
				return GenreResult{Genres: genres, Strategy: StrategyGraph}, nil
			}
		}
	}

	return chain.Run(doc.Selection), nil
}

// detailBookKey picks the Book entity for pageURL, falling back to the
// first Book that has genres.
func detailBookKey(g *Graph, pageURL string) (string, bool) {
	want := trimURL(pageURL)
	var first string
	for _, key := range g.Keys(BookPrefix) {
		e, _ := g.Entity(key)
		if web, ok := e["webUrl"].(string); ok && want != "" && trimURL(web) == want {
			return key, true
		}
		if _, ok := e["bookGenres"]; ok && first == "" {
			first = key
		}
	}
	return first, first != ""
}

func trimURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Host + strings.TrimSuffix(u.Path, "/")
}

// genreFilter carries the shared label rules and collects suspects.
type genreFilter struct {
	navFilter bool
	suspect   []string
}

// keep records navigation-looking links and reports whether a may be used.
func (f *genreFilter) keep(a *goquery.Selection, text string) bool {
	if !navSuspect(a, text) {
		return true
	}
	if !slices.Contains(f.suspect, text) {
		f.suspect = append(f.suspect, text)
	}
	return !f.navFilter
}

// links returns the valid labels of the genre links in sel, de-duplicated.
func (f *genreFilter) links(sel *goquery.Selection) []string {
	var out []string
	seen := make(map[string]struct{})
	sel.Each(func(_ int, a *goquery.Selection) {
		text := strings.TrimSpace(a.Text())
		if !validGenre(text) {
			return
		}
		if _, dup := seen[text]; dup || !f.keep(a, text) {
			return
		}
		seen[text] = struct{}{}
		out = append(out, text)
	})
	return out
}

func findLabelled(doc *goquery.Selection, f *genreFilter) []string {
	var out []string
	doc.Find("*").Not("script, style, noscript").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if !genresLabelRe.MatchString(ownText(el)) {
			return true
		}
		for _, scope := range []*goquery.Selection{el, el.Parent()} {
			if got := f.links(scope.Find(genreLinkSelector)); len(got) > 0 {
				out = got
				return false
			}
		}
		return true
	})
	return out
}

func findContainer(doc *goquery.Selection, f *genreFilter) []string {
	container := doc.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return genreClassRe.MatchString(class)
	}).First()
	if container.Length() == 0 {
		return nil
	}
	link := container.Find(genreLinkSelector).First()
	text := strings.TrimSpace(link.Text())
	if text == "" || utf8.RuneCountInString(text) >= MaxGenreLength || !f.keep(link, text) {
		return nil
	}
	return []string{text}
}

func findScanned(doc *goquery.Selection, f *genreFilter) []string {
	var out []string
	collecting := false
	doc.Find("button, span, a").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := strings.TrimSpace(el.Text())
		if strings.Contains(text, "Genres") {
			collecting = true
			return true
		}
		href, _ := el.Attr("href")
		if !collecting || goquery.NodeName(el) != "a" || !strings.Contains(href, "/genres/") {
			return true
		}
		if text != "" && utf8.RuneCountInString(text) < MaxGenreLength {
			if !f.keep(el, text) {
				return true
			}
			out = []string{text}
			return false
		}
		collecting = false
		return true
	})
	return out
}

func findPageLinks(doc *goquery.Selection, f *genreFilter) []string {
	if !strings.Contains(doc.Text(), "Genres") {
		return nil
	}
	return f.links(doc.Find(genreLinkSelector))
}

func validGenre(text string) bool {
	if text == "" || utf8.RuneCountInString(text) >= MaxGenreLength {
		return false
	}
	lower := strings.ToLower(text)
	for _, skip := range genreDenylist {
		if strings.Contains(lower, skip) {
			return false
		}
	}
	return true
}

func navSuspect(a *goquery.Selection, text string) bool {
	if _, ok := navGenres[text]; !ok {
		return false
	}
	parent := a.Parent().Text()
	for _, marker := range navMarkers {
		if strings.Contains(parent, marker) {
			return true
		}
	}
	return false
}

// cleanGenres trims, filters and de-duplicates labels in order.
func cleanGenres(labels []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if !validGenre(l) {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
