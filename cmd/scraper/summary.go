package main

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/aluiziolira/go-scrape-goodreads/models"
	"github.com/aluiziolira/go-scrape-goodreads/pipeline"
	"github.com/aluiziolira/go-scrape-goodreads/scraper"
	"github.com/jedib0t/go-pretty/v6/table"
)

func printSummary(result *models.ScraperResult, metrics map[string]interface{}, outputFile string) {
	duration := result.EndTime.Sub(result.StartTime)
	written, _ := metrics["written_books"].(int64)

	t := newTable("Scrape complete")
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Books found", result.TotalCount},
		{"Complete", result.CompleteCount},
		{"Partial", result.PartialCount},
		{"Failed records", result.FailedRecords},
		{"Written", written},
		{"Requests", result.RequestCount},
		{"Errors", result.ErrorCount},
		{"Retries", result.RetryCount},
		{"Failed URLs", len(result.FailedURLs)},
		{"Duration", duration.Round(time.Millisecond)},
		{"Books/sec", fmt.Sprintf("%.2f", perSecond(result.TotalCount, duration))},
		{"Output file", outputFile},
	})
	if result.GenreLookups > 0 || result.GenreMisses > 0 {
		t.AppendRow(table.Row{"Genre lookups", result.GenreLookups})
		t.AppendRow(table.Row{"Genre misses", result.GenreMisses})
	}
	if result.ParseErrors > 0 {
		t.AppendRow(table.Row{"Parse errors", result.ParseErrors})
	}
	t.Render()

	if len(result.BooksByYear) > 0 {
		years := newTable("Per year")
		years.AppendHeader(table.Row{"Year", "Source", "Books"})
		for _, year := range slices.Sorted(maps.Keys(result.BooksByYear)) {
			years.AppendRow(table.Row{year, result.ListingSources[year], result.BooksByYear[year]})
		}
		years.Render()
	}

	renderCounts("Missing fields", "Field", result.FieldMisses)
	renderCounts("Error types", "Type", result.ErrorsByType)
	if validation, ok := metrics["validation_errors"].(map[string]int); ok {
		renderCounts("Dropped or repaired records", "Reason", validation)
	}
}

func printGenreSummary(total, withGenres, unresolved int, stats scraper.EnrichStats, duration time.Duration, outputFile string) {
	t := newTable("Genre fix complete")
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Books", total},
		{"With genres", withGenres},
		{"Unresolved", unresolved},
		{"Searches resolved", stats.Resolved},
		{"Detail lookups", stats.Lookups},
		{"Lookups without genres", stats.Misses},
		{"Failed lookups", stats.Failures},
		{"Duration", duration.Round(time.Millisecond)},
		{"Output file", outputFile},
	})
	t.Render()
}

func printCleanSummary(input string, result *pipeline.CleanResult) {
	t := newTable("Cleanup complete")
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Input", input},
		{"Rows", result.Rows},
		{"Unparsable counts", result.ParseErrors},
		{"Output file", result.Output},
	})
	t.Render()
}

func renderCounts(title, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	t := newTable(title)
	t.AppendHeader(table.Row{label, "Count"})
	for _, k := range slices.Sorted(maps.Keys(counts)) {
		t.AppendRow(table.Row{k, strconv.Itoa(counts[k])})
	}
	t.Render()
}

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

func perSecond(n int, d time.Duration) float64 {
	if d.Seconds() <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}
