package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Entity key prefixes used by the Apollo cache Goodreads ships.
const (
	WorkPrefix        = "Work:"
	BookPrefix        = "Book:"
	ContributorPrefix = "Contributor:"
)

// maxRefHops bounds reference chasing so a cyclic graph cannot spin.
const maxRefHops = 8

// Graph is the flat entity map from __NEXT_DATA__. Keys keep document
// order, which is the listing order on popular-by-year pages.
type Graph struct {
	keys     []string
	entities map[string]map[string]any
}

// ParseGraph decodes an apolloState object. Numbers stay json.Number so
// counts are never rounded through float64.
func ParseGraph(data []byte) (*Graph, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read entity graph: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("read entity graph: expected object, got %v", tok)
	}

	g := &Graph{entities: make(map[string]map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read entity graph: %w", err)
		}
		key, _ := tok.(string)

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("read entity %q: %w", key, err)
		}
		entity, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if _, dup := g.entities[key]; !dup {
			g.keys = append(g.keys, key)
		}
		g.entities[key] = entity
	}
	return g, nil
}

// ParseNextData pulls the entity graph out of a page's __NEXT_DATA__ script.
func ParseNextData(doc *goquery.Document) (*Graph, error) {
	script := doc.Find("script#__NEXT_DATA__").First()
	if script.Length() == 0 {
		return nil, ErrNoGraph
	}

	var payload struct {
		Props struct {
			PageProps struct {
				ApolloState json.RawMessage `json:"apolloState"`
			} `json:"pageProps"`
		} `json:"props"`
	}
	if err := json.Unmarshal([]byte(script.Text()), &payload); err != nil {
		return nil, fmt.Errorf("decode __NEXT_DATA__: %w", err)
	}
	state := payload.Props.PageProps.ApolloState
	if len(state) == 0 || string(state) == "null" {
		return nil, ErrNoGraph
	}
	return ParseGraph(state)
}

// Len is the number of entities.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.keys)
}

// Keys returns entity keys with the given prefix in document order.
func (g *Graph) Keys(prefix string) []string {
	if g == nil {
		return nil
	}
	var out []string
	for _, k := range g.keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

// Entity returns the raw entity stored under key.
func (g *Graph) Entity(key string) (map[string]any, bool) {
	if g == nil {
		return nil, false
	}
	e, ok := g.entities[key]
	return e, ok
}

// deref follows {"__ref": key} values. A dangling reference yields nil.
func (g *Graph) deref(v any) any {
	for range maxRefHops {
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		ref, ok := m["__ref"].(string)
		if !ok {
			return v
		}
		e, ok := g.entities[ref]
		if !ok {
			return nil
		}
		v = e
	}
	return nil
}

// GraphLocator resolves Criteria.Path starting at one entity.
type GraphLocator struct {
	graph *Graph
	root  string
}

// NewGraphLocator roots lookups at the entity stored under key.
func NewGraphLocator(g *Graph, key string) *GraphLocator {
	return &GraphLocator{graph: g, root: key}
}

// Locate returns the first scalar at c.Path.
func (l *GraphLocator) Locate(c Criteria) (string, bool) {
	for _, raw := range l.resolve(c.Path) {
		if v, ok := finish(raw, c); ok {
			return v, true
		}
	}
	return "", false
}

// LocateAll returns every scalar at c.Path.
func (l *GraphLocator) LocateAll(c Criteria) []string {
	var out []string
	for _, raw := range l.resolve(c.Path) {
		if v, ok := finish(raw, c); ok {
			out = append(out, v)
		}
	}
	return out
}

func (l *GraphLocator) resolve(path []string) []string {
	if l == nil || len(path) == 0 {
		return nil
	}
	root, ok := l.graph.Entity(l.root)
	if !ok {
		return nil
	}

	cur := []any{root}
	for _, seg := range path {
		var next []any
		for _, v := range cur {
			v = l.graph.deref(v)
			if seg == "[]" {
				if items, ok := v.([]any); ok {
					next = append(next, items...)
				}
				continue
			}
			if m, ok := v.(map[string]any); ok {
				if child, ok := m[seg]; ok && child != nil {
					next = append(next, child)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		cur = next
	}

	out := make([]string, 0, len(cur))
	for _, v := range cur {
		if s, ok := scalar(l.graph.deref(v)); ok {
			out = append(out, s)
		}
	}
	return out
}

func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return "", false
	}
}
