package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/journal-crawler/internal/domain"
)

// Compile-time interface verification.
var _ AuthorRepository = (*PgAuthorRepository)(nil)

// PgAuthorRepository is a PostgreSQL implementation of AuthorRepository.
type PgAuthorRepository struct {
	db DBTX
}

// NewPgAuthorRepository creates a new PostgreSQL author repository.
func NewPgAuthorRepository(db DBTX) *PgAuthorRepository {
	return &PgAuthorRepository{db: db}
}

// FindByORCID retrieves an author by ORCID.
func (r *PgAuthorRepository) FindByORCID(ctx context.Context, orcid string) (*domain.Author, error) {
	if orcid == "" {
		return nil, domain.NewValidationError("orcid", "ORCID is required")
	}

	query := `SELECT id, firstname, lastname, orcid, created_at FROM authors WHERE orcid = $1`

	author, err := scanAuthor(r.db.QueryRow(ctx, query, truncate(orcid, maxORCIDLen)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("author", orcid)
		}
		return nil, fmt.Errorf("failed to get author by ORCID: %w", err)
	}

	return author, nil
}

// FindByName retrieves the lowest-ID author with the given name.
func (r *PgAuthorRepository) FindByName(ctx context.Context, firstName, lastName string) (*domain.Author, error) {
	if firstName == "" || lastName == "" {
		return nil, domain.NewValidationError("name", "first and last name are required")
	}

	query := `
		SELECT id, firstname, lastname, orcid, created_at
		FROM authors
		WHERE firstname = $1 AND lastname = $2
		ORDER BY id
		LIMIT 1`

	author, err := scanAuthor(r.db.QueryRow(ctx, query,
		truncate(firstName, maxNameLen),
		truncate(lastName, maxNameLen),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("author", firstName+" "+lastName)
		}
		return nil, fmt.Errorf("failed to get author by name: %w", err)
	}

	return author, nil
}

// Create inserts a new author row.
func (r *PgAuthorRepository) Create(ctx context.Context, author *domain.Author) (*domain.Author, error) {
	if author == nil {
		return nil, domain.NewValidationError("author", "author cannot be nil")
	}
	if author.FirstName == "" || author.LastName == "" {
		return nil, domain.NewValidationError("name", "first and last name are required")
	}

	query := `
		INSERT INTO authors (firstname, lastname, orcid)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		truncate(author.FirstName, maxNameLen),
		truncate(author.LastName, maxNameLen),
		nullable(author.ORCID, maxORCIDLen),
	).Scan(&author.ID, &author.CreatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, domain.NewAlreadyExistsError("author", author.ORCID)
		}
		return nil, fmt.Errorf("failed to insert author: %w", err)
	}

	return author, nil
}

// LinkArticle inserts an articles_authors row, ignoring duplicates.
func (r *PgAuthorRepository) LinkArticle(ctx context.Context, articleID, authorID int64) error {
	query := `
		INSERT INTO articles_authors (article_id, author_id)
		VALUES ($1, $2)
		ON CONFLICT (article_id, author_id) DO NOTHING`

	_, err := r.db.Exec(ctx, query, articleID, authorID)
	if err != nil {
		if isPgForeignKeyViolation(err) {
			return domain.NewNotFoundError("article or author",
				strconv.FormatInt(articleID, 10)+"/"+strconv.FormatInt(authorID, 10))
		}
		return fmt.Errorf("failed to link author to article: %w", err)
	}

	return nil
}

// ListByArticle returns the authors linked to an article.
func (r *PgAuthorRepository) ListByArticle(ctx context.Context, articleID int64) ([]*domain.Author, error) {
	query := `
		SELECT a.id, a.firstname, a.lastname, a.orcid, a.created_at
		FROM authors a
		JOIN articles_authors aa ON aa.author_id = a.id
		WHERE aa.article_id = $1
		ORDER BY a.id`

	rows, err := r.db.Query(ctx, query, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list article authors: %w", err)
	}
	defer rows.Close()

	var authors []*domain.Author
	for rows.Next() {
		author, err := scanAuthor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		authors = append(authors, author)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating authors: %w", err)
	}

	return authors, nil
}

func scanAuthor(row pgx.Row) (*domain.Author, error) {
	var (
		a     domain.Author
		orcid *string
	)
	if err := row.Scan(&a.ID, &a.FirstName, &a.LastName, &orcid, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.ORCID = deref(orcid)
	return &a, nil
}
