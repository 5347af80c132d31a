package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for a scrape run.
type Metrics struct {
	Registry          *prometheus.Registry
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   prometheus.Histogram
	BooksTotal        *prometheus.CounterVec
	FieldMissesTotal  *prometheus.CounterVec
	GenreLookupsTotal *prometheus.CounterVec
	RetriesTotal      prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodreads_requests_total",
			Help: "Page fetches issued, by phase.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "goodreads_request_duration_seconds",
			Help:    "Page fetch latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	books := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodreads_books_extracted_total",
			Help: "Books read from listing pages, by listing source and completeness.",
		},
		[]string{"source", "completeness"},
	)
	misses := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodreads_field_misses_total",
			Help: "Fields that fell back to the sentinel, by field.",
		},
		[]string{"field"},
	)
	genres := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodreads_genre_lookups_total",
			Help: "Detail-page genre lookups, by the strategy that answered.",
		},
		[]string{"strategy"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "goodreads_retries_total",
			Help: "Retry attempts scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodreads_errors_total",
			Help: "Fetch errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, books, misses, genres, retries, errorsTotal)

	return &Metrics{
		Registry:          registry,
		RequestsTotal:     requests,
		RequestDuration:   requestDuration,
		BooksTotal:        books,
		FieldMissesTotal:  misses,
		GenreLookupsTotal: genres,
		RetriesTotal:      retries,
		ErrorsTotal:       errorsTotal,
	}
}

// IncRequest increments the requests counter for a phase.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records a fetch duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncBook counts one extracted book.
func (m *Metrics) IncBook(source string, complete bool) {
	if m == nil {
		return
	}
	completeness := "partial"
	if complete {
		completeness = "complete"
	}
	m.BooksTotal.WithLabelValues(source, completeness).Inc()
}

// IncFieldMiss counts a field that could not be extracted.
func (m *Metrics) IncFieldMiss(field string) {
	if m == nil {
		return
	}
	m.FieldMissesTotal.WithLabelValues(field).Inc()
}

// IncGenreLookup counts a genre lookup by the strategy that produced it.
// Lookups that found nothing are counted under "none".
func (m *Metrics) IncGenreLookup(strategy string) {
	if m == nil {
		return
	}
	if strategy == "" {
		strategy = "none"
	}
	m.GenreLookupsTotal.WithLabelValues(strategy).Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
