package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/helixir/journal-crawler/internal/domain"
)

const (
	// EventTypeArticleStored is emitted once per newly stored article.
	EventTypeArticleStored = "article.stored"

	// AggregateTypeArticle is the aggregate type for article events.
	AggregateTypeArticle = "article"

	// SourceName identifies this service in event envelopes.
	SourceName = "journal-crawler"
)

// Event is the envelope written to Kafka. AggregateID is the article DOI and is
// also used as the message key, so events for one article stay on one partition.
type Event struct {
	EventID       string               `json:"event_id"`
	EventType     string               `json:"event_type"`
	AggregateType string               `json:"aggregate_type"`
	AggregateID   string               `json:"aggregate_id"`
	Source        string               `json:"source"`
	RunID         string               `json:"run_id,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
	Payload       ArticleStoredPayload `json:"payload"`
}

// ArticleStoredPayload describes a stored article.
type ArticleStoredPayload struct {
	ArticleID   int64      `json:"article_id"`
	DOI         string     `json:"doi"`
	Title       string     `json:"title"`
	Link        string     `json:"link,omitempty"`
	Journal     string     `json:"journal,omitempty"`
	ArticleType string     `json:"article_type,omitempty"`
	Published   *time.Time `json:"published,omitempty"`
	AuthorIDs   []int64    `json:"author_ids"`
}

// NewArticleStored builds the event for a stored article and its linked authors.
func NewArticleStored(runID string, article *domain.Article, authorIDs []int64) Event {
	published := article.Published
	if published == nil {
		published = article.DatePublished
	}
	if authorIDs == nil {
		authorIDs = []int64{}
	}

	return Event{
		EventID:       uuid.New().String(),
		EventType:     EventTypeArticleStored,
		AggregateType: AggregateTypeArticle,
		AggregateID:   article.DOI,
		Source:        SourceName,
		RunID:         runID,
		OccurredAt:    time.Now().UTC(),
		Payload: ArticleStoredPayload{
			ArticleID:   article.ID,
			DOI:         article.DOI,
			Title:       article.Title,
			Link:        article.Link,
			Journal:     article.Journal,
			ArticleType: article.ArticleType,
			Published:   published,
			AuthorIDs:   authorIDs,
		},
	}
}
