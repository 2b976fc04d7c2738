package httpserver

import (
	"time"

	"github.com/helixir/journal-crawler/internal/database"
	"github.com/helixir/journal-crawler/internal/domain"
)

// Response types for JSON serialization.

type readinessResponse struct {
	Status   string                `json:"status"`
	Database database.HealthStatus `json:"database"`
}

type articleResponse struct {
	ID            int64              `json:"id"`
	Title         string             `json:"title"`
	Link          string             `json:"link,omitempty"`
	DOI           string             `json:"doi"`
	ArticleType   string             `json:"article_type,omitempty"`
	Journal       string             `json:"journal,omitempty"`
	DatePublished string             `json:"date_published,omitempty"`
	Received      string             `json:"received,omitempty"`
	Accepted      string             `json:"accepted,omitempty"`
	Published     string             `json:"published,omitempty"`
	Accesses      *int64             `json:"accesses,omitempty"`
	Citations     *int64             `json:"citations,omitempty"`
	Altmetric     *int64             `json:"altmetric,omitempty"`
	LeadAuthors   []leadAuthorResult `json:"lead_authors,omitempty"`
	Authors       []authorResponse   `json:"authors,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

type leadAuthorResult struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type authorResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ORCID     string `json:"orcid,omitempty"`
}

type listArticlesResponse struct {
	Articles      []articleResponse `json:"articles"`
	NextPageToken string            `json:"next_page_token,omitempty"`
	TotalCount    int               `json:"total_count"`
}

type wordCountResponse struct {
	Word  string `json:"word"`
	Count int64  `json:"count"`
}

type topWordsResponse struct {
	Words []wordCountResponse `json:"words"`
}

// Converter functions

func domainArticleToResponse(a *domain.Article, authors []*domain.Author) articleResponse {
	resp := articleResponse{
		ID:            a.ID,
		Title:         a.Title,
		Link:          a.Link,
		DOI:           a.DOI,
		ArticleType:   a.ArticleType,
		Journal:       a.Journal,
		DatePublished: formatDate(a.DatePublished),
		Received:      formatDate(a.Received),
		Accepted:      formatDate(a.Accepted),
		Published:     formatDate(a.Published),
		Accesses:      a.Metrics.Accesses,
		Citations:     a.Metrics.Citations,
		Altmetric:     a.Metrics.Altmetric,
		CreatedAt:     a.CreatedAt,
	}
	for _, n := range a.LeadAuthors {
		resp.LeadAuthors = append(resp.LeadAuthors, leadAuthorResult{FirstName: n.First, LastName: n.Last})
	}
	for _, au := range authors {
		resp.Authors = append(resp.Authors, domainAuthorToResponse(au))
	}
	return resp
}

func domainAuthorToResponse(a *domain.Author) authorResponse {
	return authorResponse{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		ORCID:     a.ORCID,
	}
}

func domainWordCountToResponse(wc domain.WordCount) wordCountResponse {
	return wordCountResponse{Word: wc.Word, Count: wc.Count}
}

// formatDate renders a stored DATE column as YYYY-MM-DD.
func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}
