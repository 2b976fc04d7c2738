package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixir/journal-crawler/internal/config"
	"github.com/helixir/journal-crawler/internal/crawler"
	"github.com/helixir/journal-crawler/internal/database"
	"github.com/helixir/journal-crawler/internal/events"
	"github.com/helixir/journal-crawler/internal/extract/nature"
	"github.com/helixir/journal-crawler/internal/fetch"
	"github.com/helixir/journal-crawler/internal/observability"
	"github.com/helixir/journal-crawler/internal/repository"
)

// crawlLockKey is the advisory lock held for the length of a crawl.
const crawlLockKey int64 = 0x6a6f75726e616c

type crawlFlags struct {
	startPage  int
	maxPages   int
	listingURL string
}

func newCrawlCmd() *cobra.Command {
	var flags crawlFlags
	cmd := &cobra.Command{
		Use:   "crawl [--start-page N] [--max-pages M] [--listing-url TEMPLATE]",
		Short: "Walks the journal listing and stores every article not seen before.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(dbConfigPath)
			if err != nil {
				return err
			}
			if err := applyCrawlFlags(cmd, &flags, &cfg.Crawl); err != nil {
				return err
			}
			return runCrawl(cmd, cfg)
		},
	}
	cmd.Flags().IntVar(&flags.startPage, "start-page", 1, "First listing page to fetch.")
	cmd.Flags().IntVar(&flags.maxPages, "max-pages", 50, "Highest listing page number to reach.")
	cmd.Flags().StringVar(&flags.listingURL, "listing-url", "", "Listing URL template; {page} is replaced by the page number.")
	return cmd
}

// applyCrawlFlags overrides the configured pagination with the flags that were
// set explicitly and validates the result.
func applyCrawlFlags(cmd *cobra.Command, flags *crawlFlags, crawl *config.CrawlConfig) error {
	if cmd.Flags().Changed("start-page") {
		crawl.StartPage = flags.startPage
	}
	if cmd.Flags().Changed("max-pages") {
		crawl.MaxPages = flags.maxPages
	}
	if cmd.Flags().Changed("listing-url") {
		crawl.ListingURLTemplate = flags.listingURL
	}
	if err := crawl.Validate(); err != nil {
		return fmt.Errorf("invalid crawl options: %w", err)
	}
	return nil
}

func runCrawl(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	logger := newLogger(cfg, "crawler")

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	release, err := db.TryLock(ctx, crawlLockKey)
	if err != nil {
		if errors.Is(err, database.ErrLockHeld) {
			return fmt.Errorf("another crawl is already running: %w", err)
		}
		return err
	}
	defer release()

	site, err := nature.NewSite(cfg.Crawl.BaseURL)
	if err != nil {
		return err
	}
	fetcher := fetch.NewClient(fetch.Config{
		Timeout:   cfg.Fetch.Timeout,
		UserAgent: cfg.Fetch.UserAgent,
	})

	store := crawler.NewStore(db, logger)
	if cfg.WordCounts.Mode == config.WordCountsDetached {
		sqlDB, err := database.OpenSQL(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		store.WithDetachedWordCounter(repository.NewSQLWordCounter(sqlDB))
		logger.Info().Msg("title words are counted after each article commits")
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Events.Enabled {
		kafkaPublisher := events.NewKafkaPublisher(events.Config{
			Brokers:      cfg.Events.Brokers,
			Topic:        cfg.Events.Topic,
			BatchTimeout: cfg.Events.BatchTimeout,
			BatchSize:    cfg.Events.BatchSize,
		}, logger)
		defer func() {
			if closeErr := kafkaPublisher.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close event publisher")
			}
		}()
		publisher = kafkaPublisher
		logger.Info().Strs("brokers", cfg.Events.Brokers).Str("topic", cfg.Events.Topic).Msg("publishing article events")
	}

	reg := newRegistry()
	metrics := observability.NewMetricsWithRegistry(metricsNamespace, reg)

	if cfg.Server.Enabled {
		_, stop := startStatusServer(newStatusServer(cfg, db, reg, logger), cfg.Server.ShutdownTimeout, logger)
		defer stop()
	}

	c := crawler.New(fetcher, site, store, publisher, metrics, logger, crawler.Options{
		StartPage:       cfg.Crawl.StartPage,
		MaxPages:        cfg.Crawl.MaxPages,
		MaxCardsPerPage: cfg.Crawl.MaxCardsPerPage,
		ListingURL:      cfg.Crawl.ListingURL,
	})

	summary, err := c.Run(ctx)
	if err != nil {
		return fmt.Errorf("crawl stopped on page %d: %w", summary.LastPage, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "crawled pages %d to %d: %d inserted, %d skipped (%s)\n",
		summary.StartPage, summary.LastPage, summary.Inserted, summary.Skipped, summary.StopReason)
	return nil
}
