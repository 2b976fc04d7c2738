// Package crawler drives the listing crawl: it walks listing pages, extracts each
// card's article, skips DOIs already stored and saves the rest.
package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/helixir/journal-crawler/internal/domain"
	"github.com/helixir/journal-crawler/internal/events"
	"github.com/helixir/journal-crawler/internal/extract/nature"
	"github.com/helixir/journal-crawler/internal/fetch"
	"github.com/helixir/journal-crawler/internal/observability"
)

// DefaultMaxCardsPerPage caps the cards processed on one listing page.
const DefaultMaxCardsPerPage = 1000

// Fetcher retrieves and parses a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Site extracts listing cards and article pages.
type Site interface {
	Cards(doc *goquery.Document) []*goquery.Selection
	ParseCard(card *goquery.Selection) (nature.Card, bool, error)
	ParseArticle(doc *goquery.Document) (nature.Detail, error)
}

// Options configures a crawl.
type Options struct {
	StartPage       int
	MaxPages        int
	MaxCardsPerPage int
	// ListingURL builds the listing URL for a page number.
	ListingURL func(page int) string
}

// Summary describes a finished crawl.
type Summary struct {
	RunID        string
	StartPage    int
	LastPage     int
	StopReason   StopReason
	PagesFetched int
	CardsSeen    int
	Inserted     int
	Skipped      int
	PageAborts   int
	Duration     time.Duration
}

// Crawler runs one crawl at a time on a single goroutine.
type Crawler struct {
	fetcher   Fetcher
	site      Site
	store     ArticleStore
	publisher events.Publisher
	metrics   *observability.Metrics
	logger    zerolog.Logger
	opts      Options
}

// New creates a crawler. A nil publisher disables events and nil metrics are
// recorded on a private registry.
func New(fetcher Fetcher, site Site, store ArticleStore, publisher events.Publisher, metrics *observability.Metrics, logger zerolog.Logger, opts Options) *Crawler {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if metrics == nil {
		metrics = observability.NewMetricsWithRegistry("journal_crawler", prometheus.NewRegistry())
	}
	if opts.MaxCardsPerPage <= 0 {
		opts.MaxCardsPerPage = DefaultMaxCardsPerPage
	}

	return &Crawler{
		fetcher:   fetcher,
		site:      site,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With().Str("component", "crawler").Logger(),
		opts:      opts,
	}
}

// Run crawls from StartPage until a page has no cards, the page limit is reached,
// a listing page cannot be fetched, an article cannot be stored or ctx is done.
// Extraction failures only end the current page. The returned summary is always
// non-nil; the error is set for every stop other than end of results and page limit.
func (c *Crawler) Run(ctx context.Context) (*Summary, error) {
	started := time.Now()
	summary := &Summary{
		RunID:     uuid.New().String(),
		StartPage: c.opts.StartPage,
		LastPage:  c.opts.StartPage,
	}

	ctx = observability.WithRunID(ctx, summary.RunID)
	logger := observability.WithCrawlContext(c.logger, summary.RunID, c.opts.StartPage, c.opts.MaxPages)
	logger.Info().Msg("starting crawl")

	runErr := c.crawl(ctx, logger, summary)

	summary.Duration = time.Since(started)
	c.metrics.RecordCrawlFinished(string(summary.StopReason))

	event := logger.Info()
	if runErr != nil {
		event = logger.Error().Err(runErr)
	}
	event.
		Str("stop_reason", string(summary.StopReason)).
		Int("last_page", summary.LastPage).
		Int("pages_fetched", summary.PagesFetched).
		Int("inserted", summary.Inserted).
		Int("skipped", summary.Skipped).
		Int("page_aborts", summary.PageAborts).
		Dur("duration", summary.Duration).
		Msgf("crawl ran from page %d to page %d", summary.StartPage, summary.LastPage)

	return summary, runErr
}

func (c *Crawler) crawl(ctx context.Context, logger zerolog.Logger, summary *Summary) error {
	if c.opts.StartPage > c.opts.MaxPages {
		logger.Warn().Msg("start page is past max pages, nothing to crawl")
		summary.StopReason = StopPageLimit
		return nil
	}

	pager := NewPaginator(c.opts.StartPage, c.opts.MaxPages, c.opts.ListingURL)

	for {
		if err := ctx.Err(); err != nil {
			summary.StopReason = StopCancelled
			return err
		}

		summary.LastPage = pager.Page()
		cards, err := c.processPage(ctx, pager.Page(), pager.URL(), summary)
		if err != nil {
			var storeErr *domain.StoreError
			switch {
			case ctx.Err() != nil:
				summary.StopReason = StopCancelled
			case errors.As(err, &storeErr):
				summary.StopReason = StopStoreError
			default:
				summary.StopReason = StopFetchError
			}
			return err
		}

		if cards == 0 {
			logger.Info().Int("page", pager.Page()).Msg("no articles on page, end of results")
			summary.StopReason = StopEndOfResults
			return nil
		}

		if !pager.Advance() {
			logger.Warn().Int("page", pager.Page()).Msg("reached max pages, stopping")
			summary.StopReason = StopPageLimit
			return nil
		}
	}
}

// processPage handles one listing page and returns how many cards it had.
// Zero cards, including a 404 listing, means end of results.
func (c *Crawler) processPage(ctx context.Context, page int, url string, summary *Summary) (int, error) {
	logger := observability.WithPageContext(c.logger, page, url)

	doc, err := c.fetch(ctx, observability.FetchKindListing, url)
	if err != nil {
		if fetch.IsNotFound(err) {
			logger.Info().Msg("listing page not found")
			return 0, nil
		}
		return 0, err
	}

	cards := c.site.Cards(doc)
	summary.PagesFetched++
	summary.CardsSeen += len(cards)
	c.metrics.RecordPageFetched(len(cards))
	logger.Debug().Int("cards", len(cards)).Msg("fetched listing page")

	if len(cards) == 0 {
		return 0, nil
	}
	if len(cards) > c.opts.MaxCardsPerPage {
		logger.Info().
			Int("cards", len(cards)).
			Int("max_cards", c.opts.MaxCardsPerPage).
			Msg("card limit reached, ignoring the rest of the page")
		cards = cards[:c.opts.MaxCardsPerPage]
	}

	for i, card := range cards {
		err := c.processCard(ctx, page, i, card, summary)
		if err == nil {
			continue
		}

		var extractErr *domain.ExtractionError
		switch {
		case errors.Is(err, domain.ErrCardsExhausted):
			logger.Info().Int("index", i).Msg("card has no article link, leaving page")
			c.recordAbort(summary, observability.AbortCardsExhausted)
			return len(cards), nil
		case errors.As(err, &extractErr):
			logger.Warn().Err(err).Int("index", i).Str("title", extractErr.Title).Msg("extraction failed, leaving page")
			c.recordAbort(summary, observability.AbortExtraction)
			return len(cards), nil
		default:
			return len(cards), err
		}
	}

	return len(cards), nil
}

// processCard extracts one card's article and stores it unless its DOI is known.
func (c *Crawler) processCard(ctx context.Context, page, index int, card *goquery.Selection, summary *Summary) error {
	parsed, ok, err := c.site.ParseCard(card)
	if !ok {
		return domain.ErrCardsExhausted
	}
	if err != nil {
		return &domain.ExtractionError{Page: page, Index: index, Title: parsed.Title, Cause: err}
	}

	logger := observability.WithArticleContext(observability.WithPageContext(c.logger, page, parsed.Link), index, parsed.Title)

	doc, err := c.fetch(ctx, observability.FetchKindArticle, parsed.Link)
	if err != nil {
		return &domain.ExtractionError{Page: page, Index: index, Title: parsed.Title, Cause: err}
	}
	detail, err := c.site.ParseArticle(doc)
	if err != nil {
		return &domain.ExtractionError{Page: page, Index: index, Title: parsed.Title, Cause: err}
	}

	rec := nature.Record(parsed, detail)
	logger = logger.With().Str("doi", rec.Article.DOI).Logger()

	exists, err := c.store.Exists(ctx, rec.Article.DOI)
	if err != nil {
		return &domain.StoreError{Page: page, Index: index, Title: parsed.Title, Cause: err}
	}
	if exists {
		c.recordSkip(logger, summary)
		return nil
	}

	result, err := c.store.SaveArticle(ctx, &rec)
	if err != nil {
		return &domain.StoreError{Page: page, Index: index, Title: parsed.Title, Cause: err}
	}
	if result.Duplicate {
		c.recordSkip(logger, summary)
		return nil
	}

	summary.Inserted++
	c.metrics.RecordArticleInserted()
	c.metrics.RecordTitleWords(result.Words)
	c.metrics.RecordAuthorsCreated(result.AuthorsCreated)
	for match, n := range result.AuthorsMatched {
		c.metrics.RecordAuthorsResolved(match, n)
	}

	logger.Info().
		Int64("article_id", result.Article.ID).
		Int("authors", len(result.AuthorIDs)).
		Int("authors_created", result.AuthorsCreated).
		Int("words", result.Words).
		Msg("stored article")

	c.publish(ctx, logger, summary.RunID, result)
	return nil
}

func (c *Crawler) publish(ctx context.Context, logger zerolog.Logger, runID string, result *SaveResult) {
	if err := c.publisher.Publish(ctx, events.NewArticleStored(runID, result.Article, result.AuthorIDs)); err != nil {
		c.metrics.RecordEventFailed()
		logger.Warn().Err(err).Msg("failed to publish article event")
		return
	}
	c.metrics.RecordEventPublished()
}

func (c *Crawler) fetch(ctx context.Context, kind, url string) (*goquery.Document, error) {
	start := time.Now()
	doc, err := c.fetcher.Fetch(ctx, url)
	c.metrics.RecordFetch(kind, time.Since(start).Seconds(), err)
	return doc, err
}

func (c *Crawler) recordSkip(logger zerolog.Logger, summary *Summary) {
	summary.Skipped++
	c.metrics.RecordArticleSkipped()
	logger.Info().Msg("already seen, skipping")
}

func (c *Crawler) recordAbort(summary *Summary, reason string) {
	summary.PageAborts++
	c.metrics.RecordPageAbort(reason)
}
