package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// DOMLocator reads a rendered element tree. CSS criteria go through
// goquery, XPath criteria through htmlquery on the same nodes.
type DOMLocator struct {
	sel *goquery.Selection
}

// NewDOMLocator scopes lookups to sel, usually one book container.
func NewDOMLocator(sel *goquery.Selection) *DOMLocator {
	return &DOMLocator{sel: sel}
}

// Locate returns the first value matching c.
func (l *DOMLocator) Locate(c Criteria) (string, bool) {
	var out string
	var found bool
	l.each(c, func(raw string) bool {
		out, found = finish(raw, c)
		return !found
	})
	return out, found
}

// LocateAll returns every value matching c in document order.
func (l *DOMLocator) LocateAll(c Criteria) []string {
	var out []string
	l.each(c, func(raw string) bool {
		if v, ok := finish(raw, c); ok {
			out = append(out, v)
		}
		return true
	})
	return out
}

func (l *DOMLocator) each(c Criteria, fn func(raw string) bool) {
	if l == nil || l.sel == nil || l.sel.Length() == 0 {
		return
	}

	if c.XPath != "" {
		for _, root := range l.sel.Nodes {
			nodes, err := htmlquery.QueryAll(root, c.XPath)
			if err != nil {
				return
			}
			for _, n := range nodes {
				if !fn(nodeValue(n, c)) {
					return
				}
			}
		}
		return
	}

	if len(c.Path) > 0 && c.Selector == "" {
		return
	}

	target := l.sel
	if c.Selector != "" {
		target = l.sel.Find(c.Selector)
	}
	target.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		return fn(selectionValue(s, c))
	})
}

func selectionValue(s *goquery.Selection, c Criteria) string {
	switch {
	case c.Attr != "":
		v, _ := s.Attr(c.Attr)
		return v
	case c.Parent:
		return s.Parent().Text()
	default:
		return s.Text()
	}
}

func nodeValue(n *html.Node, c Criteria) string {
	switch {
	case c.Attr != "":
		return htmlquery.SelectAttr(n, c.Attr)
	case c.Parent && n.Parent != nil:
		return htmlquery.InnerText(n.Parent)
	default:
		return htmlquery.InnerText(n)
	}
}

// ownText concatenates the direct text children of the first node in s.
func ownText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	var b strings.Builder
	for c := s.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String())
}
