package repository

import (
	"context"

	"github.com/helixir/journal-crawler/internal/domain"
)

// AuthorRepository handles author persistence and article-author links.
//
// Identity resolution is best-effort: callers look up by ORCID when one is
// known and fall back to an exact first/last name match.
type AuthorRepository interface {
	// FindByORCID retrieves the author carrying the given ORCID.
	// Returns domain.ErrNotFound if no matching author exists.
	FindByORCID(ctx context.Context, orcid string) (*domain.Author, error)

	// FindByName retrieves the lowest-ID author with exactly this first and last name.
	// Returns domain.ErrNotFound if no matching author exists.
	FindByName(ctx context.Context, firstName, lastName string) (*domain.Author, error)

	// Create inserts a new author and sets its generated ID and creation time.
	// Returns domain.ErrAlreadyExists when the ORCID is already taken.
	Create(ctx context.Context, author *domain.Author) (*domain.Author, error)

	// LinkArticle records that the author wrote the article. Linking the same
	// pair twice is a no-op. Returns domain.ErrNotFound if either row is missing.
	LinkArticle(ctx context.Context, articleID, authorID int64) error

	// ListByArticle returns an article's linked authors ordered by author ID.
	ListByArticle(ctx context.Context, articleID int64) ([]*domain.Author, error)
}
