package repository

import (
	"context"

	"github.com/helixir/journal-crawler/internal/domain"
)

// ArticleRepository handles article persistence.
// Articles are keyed by DOI and are never updated once written.
type ArticleRepository interface {
	// ExistsByDOI reports whether an article with the given DOI is stored.
	ExistsByDOI(ctx context.Context, doi string) (bool, error)

	// Create inserts the article and sets its generated ID and creation time.
	// String fields are truncated to their column lengths and empty strings are
	// stored as NULL. Returns domain.ErrAlreadyExists when the DOI is taken.
	Create(ctx context.Context, article *domain.Article) (*domain.Article, error)

	// GetByDOI retrieves an article by DOI.
	// Returns domain.ErrNotFound if no matching article exists.
	GetByDOI(ctx context.Context, doi string) (*domain.Article, error)

	// List retrieves articles matching the filter, newest first, along with the
	// total count of matches.
	List(ctx context.Context, filter ArticleFilter) ([]*domain.Article, int64, error)
}

// ArticleFilter defines filter criteria for listing articles.
type ArticleFilter struct {
	// Journal filters to an exact journal name (optional).
	Journal string

	// ArticleType filters to an exact article type (optional).
	ArticleType string

	// Limit is the maximum number of results to return.
	Limit int

	// Offset is the number of results to skip for pagination.
	Offset int
}

// Validate normalizes the filter's pagination values.
func (f *ArticleFilter) Validate() error {
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
