package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aluiziolira/go-scrape-goodreads/config"
	"github.com/aluiziolira/go-scrape-goodreads/pipeline"
	"github.com/aluiziolira/go-scrape-goodreads/scraper"
	"github.com/google/go-cmp/cmp"
	"github.com/jarcoal/httpmock"
	"github.com/spf13/cobra"
)

func TestOutputSchema(t *testing.T) {
	tests := []struct {
		name    string
		schema  string
		genres  bool
		integer bool
		want    []string
		wantErr bool
	}{
		{name: "default", want: pipeline.ListingSchema(false).Columns},
		{name: "genres flag", genres: true, want: pipeline.ListingSchema(true).Columns},
		{name: "explicit", schema: "title,rating", integer: true, want: []string{"title", "rating"}},
		{name: "bad", schema: "title,,rating", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Schema = tt.schema
			cfg.IncludeGenres = tt.genres
			cfg.IntegerCounts = tt.integer

			got, err := outputSchema(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("outputSchema error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got.Columns); diff != "" {
				t.Fatalf("columns mismatch (-want +got):\n%s", diff)
			}
			if got.IntegerCounts != tt.integer {
				t.Fatalf("IntegerCounts = %v, want %v", got.IntegerCounts, tt.integer)
			}
		})
	}
}

func TestCreateWriter(t *testing.T) {
	dir := t.TempDir()
	for _, format := range []string{"csv", "json", "dual"} {
		w, err := createWriter(format, filepath.Join(dir, format, "books.csv"), pipeline.ListingSchema(false))
		if err != nil {
			t.Fatalf("createWriter(%q): %v", format, err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close %q: %v", format, err)
		}
	}
	if _, err := createWriter("xml", filepath.Join(dir, "books.xml"), pipeline.ListingSchema(false)); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestApplyEnvFlagsWin(t *testing.T) {
	t.Setenv("SCRAPER_START_YEAR", "2015")
	t.Setenv("SCRAPER_END_YEAR", "2016")
	t.Setenv("SCRAPER_RENDERER", "BROWSER")

	cfg := config.DefaultConfig()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntVar(&cfg.StartYear, "start-year", cfg.StartYear, "")
	cmd.Flags().IntVar(&cfg.EndYear, "end-year", cfg.EndYear, "")
	if err := cmd.Flags().Parse([]string{"--end-year", "2020"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	if err := applyEnv(cmd, cfg); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.StartYear != 2015 || cfg.EndYear != 2020 {
		t.Fatalf("years = %d-%d, want 2015-2020", cfg.StartYear, cfg.EndYear)
	}
	if cfg.Renderer != config.RendererBrowser {
		t.Fatalf("renderer = %q, want %q", cfg.Renderer, config.RendererBrowser)
	}
}

func TestRunGenresKeepsIntegerCounts(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "books.csv")
	csv := "year,rank,title,author,rating,ratings_count,genres,url\n" +
		"2023,1,A,X,4.1,2.5m,Horror,http://example.test/book/show/1\n" +
		"2023,2,B,Y,4.0,15k,N/A,N/A\n"
	if err := os.WriteFile(input, []byte(csv), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, "http://example.test/book/show/1",
		httpmock.NewStringResponder(200, `<html><body><div><span>Genres</span>`+
			`<a href="/genres/fantasy">Fantasy</a><a href="/genres/romance">Romance</a></div></body></html>`))
	transport.RegisterResponder(http.MethodGet, "http://example.test/search",
		httpmock.NewStringResponder(200, `<html><body><a class="bookTitle" href="/book/show/2">B</a></body></html>`))
	transport.RegisterResponder(http.MethodGet, "http://example.test/book/show/2",
		httpmock.NewStringResponder(200, `<html><body><div><span>Genres</span>`+
			`<a href="/genres/science-fiction">Science Fiction</a></div></body></html>`))

	cfg := config.DefaultConfig()
	cfg.BaseURL = "http://example.test"
	cfg.Delay = 0
	cfg.RandomDelay = 0
	cfg.MaxRetries = 0
	cfg.DetailRate = 0
	cfg.RespectRobotsTxt = false
	cfg.IntegerCounts = true

	output := filepath.Join(dir, "fixed.csv")
	if err := runGenres(context.Background(), cfg, input, output, scraper.WithTransport(transport)); err != nil {
		t.Fatalf("runGenres: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := []string{
		"year,rank,title,author,rating,ratings_count,genres",
		"2023,1,A,X,4.1,2500000,Fantasy",
		"2023,2,B,Y,4.0,15000,Science Fiction",
	}
	if diff := cmp.Diff(want, strings.Split(strings.TrimSpace(string(data)), "\n")); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}
