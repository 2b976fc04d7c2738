package domain

import (
	"strings"
	"time"
)

// Article is one stored journal article. DOI is its natural key; an article is
// written once and never updated.
type Article struct {
	ID            int64
	Title         string
	Link          string
	DOI           string
	ArticleType   string
	Journal       string
	DatePublished *time.Time
	Received      *time.Time
	Accepted      *time.Time
	Published     *time.Time
	Metrics       ArticleMetrics
	// LeadAuthors holds up to the first three listing authors, denormalized onto the row.
	LeadAuthors []PersonName
	CreatedAt   time.Time
}

// ArticleMetrics are the counters shown in an article's metrics bar. Nil means the
// page did not report the metric.
type ArticleMetrics struct {
	Accesses  *int64
	Citations *int64
	Altmetric *int64
}

// MaxLeadAuthors is how many listing authors are copied onto the article row.
const MaxLeadAuthors = 3

// NormalizeDOI strips resolver prefixes and surrounding space and lowercases the DOI.
// DOIs are case-insensitive, so lowercase keeps the uniqueness check honest.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	if i := strings.Index(strings.ToLower(doi), "doi.org/"); i >= 0 {
		doi = doi[i+len("doi.org/"):]
	}
	doi = strings.TrimPrefix(strings.TrimPrefix(doi, "doi:"), "DOI:")
	return strings.ToLower(strings.TrimSpace(doi))
}

// Validate checks the fields the schema requires.
func (a *Article) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return NewValidationError("title", "must not be empty")
	}
	if a.DOI == "" {
		return NewValidationError("doi", "must not be empty")
	}
	if len(a.LeadAuthors) > MaxLeadAuthors {
		return NewValidationError("lead_authors", "at most three lead authors are stored")
	}
	return nil
}

// LeadAuthorsFrom splits the first three names of a listing author list.
func LeadAuthorsFrom(names []string) []PersonName {
	n := len(names)
	if n > MaxLeadAuthors {
		n = MaxLeadAuthors
	}
	out := make([]PersonName, 0, n)
	for _, name := range names[:n] {
		out = append(out, SplitName(name))
	}
	return out
}

// ArticleRecord is everything extracted for one article before it is stored.
type ArticleRecord struct {
	Article Article
	// Credits is the article page's author list with ORCIDs, index-aligned by construction.
	Credits []AuthorCredit
}
