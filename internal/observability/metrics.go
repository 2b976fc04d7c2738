package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch kinds used as the "kind" label.
const (
	FetchKindListing = "listing"
	FetchKindArticle = "article"
)

// Page abort reasons used as the "reason" label.
const (
	AbortCardsExhausted = "cards_exhausted"
	AbortExtraction     = "extraction_error"
)

// Metrics contains all Prometheus metrics for the journal crawler.
type Metrics struct {
	// PagesFetched counts listing pages fetched and parsed.
	PagesFetched prometheus.Counter

	// CardsSeen counts article cards visited on listing pages.
	CardsSeen prometheus.Counter

	// ArticlesInserted counts articles stored for the first time.
	ArticlesInserted prometheus.Counter

	// ArticlesSkipped counts articles whose DOI was already stored.
	ArticlesSkipped prometheus.Counter

	// PageAborts counts listing pages left early, labeled by reason.
	PageAborts *prometheus.CounterVec

	// AuthorsCreated counts author rows inserted.
	AuthorsCreated prometheus.Counter

	// AuthorsResolved counts authors matched to an existing row by ORCID or name.
	AuthorsResolved *prometheus.CounterVec

	// TitleWordsCounted counts title tokens passed to the word counter.
	TitleWordsCounted prometheus.Counter

	// FetchDuration observes page fetch duration in seconds, labeled by kind.
	FetchDuration *prometheus.HistogramVec

	// FetchErrors counts failed page fetches, labeled by kind.
	FetchErrors *prometheus.CounterVec

	// CrawlRuns counts finished crawls, labeled by stop reason.
	CrawlRuns *prometheus.CounterVec

	// EventsPublished counts stored-article events delivered to the broker.
	EventsPublished prometheus.Counter

	// EventsFailed counts stored-article events that could not be delivered.
	EventsFailed prometheus.Counter
}

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates and registers all metrics on reg.
func NewMetricsWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Total number of listing pages fetched",
		}),
		CardsSeen: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cards_seen_total",
			Help:      "Total number of listing cards visited",
		}),
		ArticlesInserted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_inserted_total",
			Help:      "Total number of articles stored",
		}),
		ArticlesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_skipped_total",
			Help:      "Total number of articles skipped because their DOI was already stored",
		}),
		PageAborts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_aborts_total",
			Help:      "Total number of listing pages left before their last card, by reason",
		}, []string{"reason"}),
		AuthorsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authors_created_total",
			Help:      "Total number of author rows inserted",
		}),
		AuthorsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authors_resolved_total",
			Help:      "Total number of authors matched to an existing row, by match key",
		}, []string{"match"}),
		TitleWordsCounted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "title_words_counted_total",
			Help:      "Total number of title tokens counted",
		}),
		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of page fetches in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"kind"}),
		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Total number of failed page fetches",
		}, []string{"kind"}),
		CrawlRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawl_runs_total",
			Help:      "Total number of finished crawls, by stop reason",
		}, []string{"stop_reason"}),
		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of stored-article events published",
		}),
		EventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Total number of stored-article events that failed to publish",
		}),
	}
}

// RecordPageFetched records a parsed listing page.
func (m *Metrics) RecordPageFetched(cards int) {
	m.PagesFetched.Inc()
	m.CardsSeen.Add(float64(cards))
}

// RecordArticleInserted records a newly stored article.
func (m *Metrics) RecordArticleInserted() {
	m.ArticlesInserted.Inc()
}

// RecordArticleSkipped records an article skipped as already stored.
func (m *Metrics) RecordArticleSkipped() {
	m.ArticlesSkipped.Inc()
}

// RecordPageAbort records a listing page left early.
func (m *Metrics) RecordPageAbort(reason string) {
	m.PageAborts.WithLabelValues(reason).Inc()
}

// RecordAuthorsCreated records inserted authors.
func (m *Metrics) RecordAuthorsCreated(count int) {
	m.AuthorsCreated.Add(float64(count))
}

// RecordAuthorsResolved records authors matched by "orcid" or "name".
func (m *Metrics) RecordAuthorsResolved(match string, count int) {
	m.AuthorsResolved.WithLabelValues(match).Add(float64(count))
}

// RecordTitleWords records counted title tokens.
func (m *Metrics) RecordTitleWords(count int) {
	m.TitleWordsCounted.Add(float64(count))
}

// RecordFetch records a page fetch.
func (m *Metrics) RecordFetch(kind string, durationSeconds float64, err error) {
	m.FetchDuration.WithLabelValues(kind).Observe(durationSeconds)
	if err != nil {
		m.FetchErrors.WithLabelValues(kind).Inc()
	}
}

// RecordCrawlFinished records the reason a crawl stopped.
func (m *Metrics) RecordCrawlFinished(stopReason string) {
	m.CrawlRuns.WithLabelValues(stopReason).Inc()
}

// RecordEventPublished records a delivered event.
func (m *Metrics) RecordEventPublished() {
	m.EventsPublished.Inc()
}

// RecordEventFailed records an undelivered event.
func (m *Metrics) RecordEventFailed() {
	m.EventsFailed.Inc()
}
