// Package events publishes stored-article events to Kafka.
//
// # Overview
//
// Every article the crawler stores for the first time produces one
// article.stored event keyed by DOI. Publishing is best-effort: the article
// transaction has already committed, so a failed publish is logged and counted
// but never fails the crawl.
//
// # Components
//
//   - Event: the JSON envelope written to the topic
//   - NewArticleStored: builds the envelope for a stored article
//   - KafkaPublisher: writes events with a kafka-go Writer
//   - NoopPublisher: used when events are disabled
//
// # Usage
//
//	pub := events.NewKafkaPublisher(events.Config{
//	    Brokers: []string{"localhost:9092"},
//	    Topic:   "journal-crawler.articles",
//	}, logger)
//	defer pub.Close()
//
//	err := pub.Publish(ctx, events.NewArticleStored(runID, article, authorIDs))
package events
