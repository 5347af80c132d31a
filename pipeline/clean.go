package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-goodreads/models"
	"github.com/aluiziolira/go-scrape-goodreads/parser"
)

// ErrSameFile is returned when a rewrite would overwrite its own input.
var ErrSameFile = errors.New("output would overwrite the input")

// CleanResult summarizes a cleanup pass.
type CleanResult struct {
	Output      string
	Rows        int
	ParseErrors int
	Errors      []error
}

// CleanedPath is the default output of CleanRatingsCSV for in.
func CleanedPath(in string) string {
	return suffixPath(in, "_cleaned")
}

// FixedPath is the default output of the genre fix pass for in.
func FixedPath(in string) string {
	return suffixPath(in, "_FIXED")
}

func suffixPath(in, suffix string) string {
	ext := filepath.Ext(in)
	if ext == "" {
		ext = ".csv"
	}
	return strings.TrimSuffix(in, filepath.Ext(in)) + suffix + ext
}

// CleanRatingsCSV rewrites the ratings_count column of an export as
// integers. The header and every other column are copied verbatim; values
// that do not parse become 0 and are counted.
func CleanRatingsCSV(in, out string) (*CleanResult, error) {
	if out == "" {
		out = CleanedPath(in)
	}
	if samePath(in, out) {
		return nil, fmt.Errorf("%w: %s", ErrSameFile, out)
	}

	src, err := os.Open(in)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", in, err)
	}
	defer src.Close()

	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", in, err)
	}
	col := indexOf(header, models.FieldRatingsCount)

	if err := ensureDir(out); err != nil {
		return nil, err
	}
	dst, err := os.Create(out)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", out, err)
	}
	defer dst.Close()

	writer := csv.NewWriter(dst)
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	result := &CleanResult{Output: out}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", in, err)
		}
		if col >= 0 && col < len(row) {
			n, err := parser.NormalizeCount(row[col])
			if err != nil {
				result.ParseErrors++
				result.Errors = append(result.Errors, fmt.Errorf("row %d: %w", result.Rows+1, err))
			}
			row[col] = strconv.FormatInt(n, 10)
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
		result.Rows++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush %s: %w", out, err)
	}
	return result, dst.Close()
}

// ReadBooksCSV loads a previous export. Columns it does not know are
// ignored; missing ones keep the sentinel. Each record is normalized, so
// RatingsCount is derived from a compact ratings_count column.
func ReadBooksCSV(path string) ([]*models.Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	var books []*models.Book
	for seq := 0; ; seq++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		b := models.NewEmptyBook(0, seq)
		b.ScrapedAt = time.Time{}
		for i, name := range header {
			if i >= len(row) {
				break
			}
			setField(b, strings.TrimSpace(name), row[i])
		}
		for _, err := range parser.NormalizeBook(b) {
			slog.Warn("normalize imported record",
				slog.String("file", path),
				slog.Int("row", seq+1),
				slog.String("title", b.Title),
				slog.Any("error", err),
			)
		}
		books = append(books, b)
	}
	return books, nil
}

func setField(b *models.Book, name, value string) {
	value = strings.TrimSpace(value)
	switch name {
	case models.FieldYear:
		b.Year, _ = strconv.Atoi(value)
	case models.FieldRank:
		b.Rank, _ = strconv.Atoi(value)
	case models.FieldTitle:
		b.Title = value
	case models.FieldAuthor:
		b.Author = value
	case models.FieldRating:
		b.RatingText = value
	case models.FieldRatingsCount:
		b.RatingsDisplay = value
	case models.FieldRatingsCountInt:
		b.RatingsCount, _ = strconv.ParseInt(value, 10, 64)
	case models.FieldShelvingsCount:
		b.ShelvingsDisplay = value
	case models.FieldURL:
		if value != models.NotAvailable {
			b.URL = value
		}
	case models.FieldGenres:
		b.Genres = nil
		if value == "" || value == models.NotAvailable {
			return
		}
		for _, g := range strings.Split(value, ",") {
			if g = strings.TrimSpace(g); g != "" {
				b.Genres = append(b.Genres, g)
			}
		}
	case models.FieldScrapedAt:
		b.ScrapedAt, _ = time.Parse(time.RFC3339, value)
	}
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	if absA == absB {
		return true
	}
	infoA, errA := os.Stat(absA)
	infoB, errB := os.Stat(absB)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}
