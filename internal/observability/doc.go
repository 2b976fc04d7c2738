// Package observability provides logging and metrics support for the journal crawler.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "console",
//	    Output: "stderr",
//	})
//
// Crawl, page and article helpers attach the fields every progress line carries:
//
//	logger = observability.WithCrawlContext(logger, runID, 1, 50)
//	pageLogger := observability.WithPageContext(logger, page, url)
//	pageLogger.Info().Int("cards", n).Msg("listing page fetched")
//
// # Metrics
//
// NewMetrics registers the crawl counters on the default Prometheus registry.
// Tests and embedded uses pass their own registry:
//
//	m := observability.NewMetricsWithRegistry("journal_crawler", prometheus.NewRegistry())
//	m.RecordArticleInserted()
package observability
