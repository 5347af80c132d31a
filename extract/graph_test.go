package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
)

const sampleGraph = `{
  "Work:z":{"bestBook":{"__ref":"Book:1"}},
  "Book:1":{"title":"A","authors":[{"__ref":"Contributor:1"},{"__ref":"Contributor:2"}],"stats":{"ratingsCount":9007199254740993}},
  "Contributor:1":{"name":"First"},
  "Contributor:2":{"name":"Second"},
  "Work:a":{"bestBook":{"__ref":"Book:gone"}},
  "Loop:1":{"next":{"__ref":"Loop:1"}},
  "scalar":42
}`

func TestParseGraphKeepsDocumentOrder(t *testing.T) {
	g, err := ParseGraph([]byte(sampleGraph))
	if err != nil {
		t.Fatalf("ParseGraph error: %v", err)
	}
	if diff := cmp.Diff([]string{"Work:z", "Work:a"}, g.Keys(WorkPrefix)); diff != "" {
		t.Fatalf("work keys mismatch (-want +got):\n%s", diff)
	}
	if g.Len() != 6 {
		t.Fatalf("Len = %d, want 6 (non-object values skipped)", g.Len())
	}
}

func TestGraphLocatorPaths(t *testing.T) {
	g, err := ParseGraph([]byte(sampleGraph))
	if err != nil {
		t.Fatalf("ParseGraph error: %v", err)
	}

	work := NewGraphLocator(g, "Work:z")
	if got, ok := work.Locate(Criteria{Path: []string{"bestBook", "title"}}); !ok || got != "A" {
		t.Fatalf("title = %q/%v, want A", got, ok)
	}
	if got, ok := work.Locate(Criteria{Path: []string{"bestBook", "stats", "ratingsCount"}}); !ok || got != "9007199254740993" {
		t.Fatalf("ratingsCount = %q/%v, want exact integer", got, ok)
	}

	names := work.LocateAll(Criteria{Path: []string{"bestBook", "authors", "[]", "name"}})
	if diff := cmp.Diff([]string{"First", "Second"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	dangling := NewGraphLocator(g, "Work:a")
	if got, ok := dangling.Locate(Criteria{Path: []string{"bestBook", "title"}}); ok {
		t.Fatalf("dangling ref resolved to %q", got)
	}

	loop := NewGraphLocator(g, "Loop:1")
	if got, ok := loop.Locate(Criteria{Path: []string{"next", "next", "name"}}); ok {
		t.Fatalf("cyclic ref resolved to %q", got)
	}
}

func TestParseGraphRejectsNonObject(t *testing.T) {
	if _, err := ParseGraph([]byte(`[1,2]`)); err == nil {
		t.Fatal("expected error for array graph")
	}
}

func TestParseNextData(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		wantErr error
		wantLen int
	}{
		{name: "no script", html: `<html><body></body></html>`, wantErr: ErrNoGraph},
		{name: "no apollo state", html: `<script id="__NEXT_DATA__">{"props":{"pageProps":{}}}</script>`, wantErr: ErrNoGraph},
		{name: "graph", html: `<script id="__NEXT_DATA__">{"props":{"pageProps":{"apolloState":{"Work:1":{}}}}}</script>`, wantLen: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tt.html))
			if err != nil {
				t.Fatalf("parse html: %v", err)
			}
			g, err := ParseNextData(doc)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseNextData error: %v", err)
			}
			if g.Len() != tt.wantLen {
				t.Fatalf("Len = %d, want %d", g.Len(), tt.wantLen)
			}
		})
	}
}
