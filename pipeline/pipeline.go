// Package pipeline normalizes scraped records, ranks them per year and
// writes them out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-goodreads/config"
	"github.com/aluiziolira/go-scrape-goodreads/models"
	"github.com/aluiziolira/go-scrape-goodreads/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrPipelineCloseTimeout is returned when Close cannot finish in time.
	ErrPipelineCloseTimeout = errors.New("pipeline: close timed out")
)

// drainTimeout bounds Close: draining, ranking and writing.
var drainTimeout = 30 * time.Second

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(books []*models.Book) error
	Close() error
	Validate() error
}

// Pipeline coordinates normalization, de-duplication, ranking and output.
// Records are collected until Close, which ranks every year and writes the
// result in BatchSize batches.
type Pipeline struct {
	ctx       context.Context
	writer    OutputWriter
	bookCh    chan *models.Book
	batchSize int

	wg sync.WaitGroup

	seen *lru.Cache[string, struct{}]

	collectedMu sync.Mutex
	collected   []*models.Book
	ranked      []*models.Book

	metrics metrics

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
	finishOnce   sync.Once
	finished     chan struct{}
}

// NewPipeline builds a pipeline sized from cfg.
func NewPipeline(ctx context.Context, writer OutputWriter, cfg *config.Config) *Pipeline {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	bufferSize := max(cfg.PipelineBufferSize, 1)
	batchSize := max(cfg.BatchSize, 1)
	dedupeSize := cfg.DedupeMaxSize
	if dedupeSize <= 0 {
		dedupeSize = config.DefaultConfig().DedupeMaxSize
	}
	seen, _ := lru.New[string, struct{}](dedupeSize)

	return &Pipeline{
		ctx:       ctx,
		writer:    writer,
		bookCh:    make(chan *models.Book, bufferSize),
		batchSize: batchSize,
		seen:      seen,
		metrics:   newMetrics(),
		shutdown:  make(chan struct{}),
		finished:  make(chan struct{}),
	}
}

// Start launches worker goroutines.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Process enqueues books for downstream processing.
func (p *Pipeline) Process(books ...*models.Book) error {
	if len(books) == 0 {
		return nil
	}

	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	for _, book := range books {
		if book == nil {
			continue
		}
		if err := p.enqueue(book); err != nil {
			return err
		}
	}
	return nil
}

// Close stops intake, waits for the workers, ranks what was collected and
// writes it. It returns ErrPipelineCloseTimeout if that takes longer than
// the drain timeout.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.bookCh)
	})

	p.finishOnce.Do(func() {
		go func() {
			defer close(p.finished)
			p.wg.Wait()
			if err := p.flush(); err != nil {
				p.setErr(err)
			}
		}()
	})

	timer := time.NewTimer(drainTimeout)
	defer timer.Stop()

	select {
	case <-p.finished:
		return p.Err()
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrPipelineCloseTimeout, drainTimeout)
	}
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Ranked returns the records handed to the writer, in output order. It is
// empty until Close has finished.
func (p *Pipeline) Ranked() []*models.Book {
	p.collectedMu.Lock()
	defer p.collectedMu.Unlock()
	return append([]*models.Book(nil), p.ranked...)
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				metrics := p.GetMetrics()
				slog.Info("pipeline progress",
					slog.Int64("processed", metrics["processed_books"].(int64)),
					slog.Int64("complete", metrics["complete_books"].(int64)),
					slog.Int64("partial", metrics["partial_books"].(int64)),
					slog.Int("validation_errors", len(metrics["validation_errors"].(map[string]int))),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	for book := range p.bookCh {
		prepared := p.prepare(book)
		if prepared == nil {
			continue
		}
		p.collectedMu.Lock()
		p.collected = append(p.collected, prepared)
		p.collectedMu.Unlock()
	}
}

// prepare normalizes a copy of book and drops invalid or repeated records.
func (p *Pipeline) prepare(book *models.Book) *models.Book {
	if err := parser.ValidateBook(book); err != nil {
		p.metrics.addValidation("invalid_record")
		slog.Debug("dropping invalid record", slog.Any("error", err))
		return nil
	}

	b := book.Clone()
	for _, err := range parser.NormalizeBook(b) {
		p.metrics.addValidation("parse_error")
		slog.Debug("normalize record",
			slog.Int("year", b.Year),
			slog.String("title", b.Title),
			slog.Any("error", err),
		)
	}

	if key, ok := dedupeKey(b); ok {
		if found, _ := p.seen.ContainsOrAdd(key, struct{}{}); found {
			p.metrics.addValidation("duplicate_url")
			slog.Warn("dropping repeated record",
				slog.Int("year", b.Year),
				slog.String("title", b.Title),
				slog.String("url", b.URL),
			)
			return nil
		}
	}

	p.metrics.addProcessed(b)
	return b
}

// dedupeKey identifies a record within its year by its detail URL. Records
// without one are always kept.
func dedupeKey(b *models.Book) (string, bool) {
	if b.URL == "" || b.URL == models.NotAvailable {
		return "", false
	}
	return strconv.Itoa(b.Year) + "|" + b.URL, true
}

func (p *Pipeline) flush() error {
	p.collectedMu.Lock()
	ranked := AssembleByYear(p.collected)
	p.ranked = ranked
	p.collectedMu.Unlock()

	for start := 0; start < len(ranked); start += p.batchSize {
		end := min(start+p.batchSize, len(ranked))
		if err := p.writer.Write(ranked[start:end]); err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
		p.metrics.addWritten(end - start)
	}
	return nil
}

func (p *Pipeline) enqueue(book *models.Book) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.bookCh <- book:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
	p.closed = true
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	complete   int64
	partial    int64
	written    int64
	byYear     map[int]int
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		byYear:     make(map[int]int),
		validation: make(map[string]int),
	}
}

func (m *metrics) addProcessed(b *models.Book) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed++
	if b.Complete() {
		m.complete++
	} else {
		m.partial++
	}
	m.byYear[b.Year]++
}

func (m *metrics) addWritten(n int) {
	m.mu.Lock()
	m.written += int64(n)
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}
	copyYears := make(map[int]int, len(m.byYear))
	for k, v := range m.byYear {
		copyYears[k] = v
	}

	return map[string]interface{}{
		"processed_books":   m.processed,
		"complete_books":    m.complete,
		"partial_books":     m.partial,
		"written_books":     m.written,
		"books_by_year":     copyYears,
		"validation_errors": copyValidation,
	}
}
