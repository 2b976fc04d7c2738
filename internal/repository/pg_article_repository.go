package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/journal-crawler/internal/domain"
)

// Compile-time interface verification.
var _ ArticleRepository = (*PgArticleRepository)(nil)

// PgArticleRepository is a PostgreSQL implementation of ArticleRepository.
type PgArticleRepository struct {
	db DBTX
}

// NewPgArticleRepository creates a new PostgreSQL article repository.
func NewPgArticleRepository(db DBTX) *PgArticleRepository {
	return &PgArticleRepository{db: db}
}

const articleColumns = `id, title, link, doi, article_type, journal,
			date_published, received, accepted, published,
			accesses, citations, altmetric,
			first_author_firstname, first_author_lastname,
			second_author_firstname, second_author_lastname,
			third_author_firstname, third_author_lastname,
			created_at`

// ExistsByDOI reports whether an article with the given DOI is stored.
// The DOI is truncated to the column width the same way Create stores it.
func (r *PgArticleRepository) ExistsByDOI(ctx context.Context, doi string) (bool, error) {
	if doi == "" {
		return false, domain.NewValidationError("doi", "DOI is required")
	}
	doi = truncate(doi, maxDOILen)

	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM articles WHERE doi = $1)`, doi).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check article DOI: %w", err)
	}
	return exists, nil
}

// Create inserts a new article row.
func (r *PgArticleRepository) Create(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	if article == nil {
		return nil, domain.NewValidationError("article", "article cannot be nil")
	}
	if err := article.Validate(); err != nil {
		return nil, err
	}

	var names [domain.MaxLeadAuthors]domain.PersonName
	copy(names[:], article.LeadAuthors)

	query := `
		INSERT INTO articles (
			title, link, doi, article_type, journal,
			date_published, received, accepted, published,
			accesses, citations, altmetric,
			first_author_firstname, first_author_lastname,
			second_author_firstname, second_author_lastname,
			third_author_firstname, third_author_lastname
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		truncate(article.Title, maxTitleLen),
		nullable(article.Link, maxLinkLen),
		truncate(article.DOI, maxDOILen),
		nullable(article.ArticleType, maxArticleTypeLen),
		nullable(article.Journal, maxJournalLen),
		article.DatePublished,
		article.Received,
		article.Accepted,
		article.Published,
		article.Metrics.Accesses,
		article.Metrics.Citations,
		article.Metrics.Altmetric,
		nullable(names[0].First, maxNameLen),
		nullable(names[0].Last, maxNameLen),
		nullable(names[1].First, maxNameLen),
		nullable(names[1].Last, maxNameLen),
		nullable(names[2].First, maxNameLen),
		nullable(names[2].Last, maxNameLen),
	).Scan(&article.ID, &article.CreatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, domain.NewAlreadyExistsError("article", article.DOI)
		}
		return nil, fmt.Errorf("failed to insert article: %w", err)
	}

	return article, nil
}

// GetByDOI retrieves an article by DOI, truncated like ExistsByDOI.
func (r *PgArticleRepository) GetByDOI(ctx context.Context, doi string) (*domain.Article, error) {
	if doi == "" {
		return nil, domain.NewValidationError("doi", "DOI is required")
	}
	doi = truncate(doi, maxDOILen)

	query := `SELECT ` + articleColumns + ` FROM articles WHERE doi = $1`

	article, err := scanArticle(r.db.QueryRow(ctx, query, doi))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("article", doi)
		}
		return nil, fmt.Errorf("failed to get article by DOI: %w", err)
	}

	return article, nil
}

// List retrieves articles matching the filter, newest first.
func (r *PgArticleRepository) List(ctx context.Context, filter ArticleFilter) ([]*domain.Article, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.Journal != "" {
		conditions = append(conditions, fmt.Sprintf("journal = $%d", argIndex))
		args = append(args, filter.Journal)
		argIndex++
	}

	if filter.ArticleType != "" {
		conditions = append(conditions, fmt.Sprintf("article_type = $%d", argIndex))
		args = append(args, filter.ArticleType)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM articles %s", whereClause)
	var totalCount int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count articles: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM articles
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		articleColumns, whereClause, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	articles := make([]*domain.Article, 0, filter.Limit)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating articles: %w", err)
	}

	return articles, totalCount, nil
}

// scanArticle scans one articleColumns row. pgx.Rows satisfies pgx.Row.
func scanArticle(row pgx.Row) (*domain.Article, error) {
	var (
		a                    domain.Article
		link, kind, journal  *string
		first, second, third [2]*string
	)

	err := row.Scan(
		&a.ID, &a.Title, &link, &a.DOI, &kind, &journal,
		&a.DatePublished, &a.Received, &a.Accepted, &a.Published,
		&a.Metrics.Accesses, &a.Metrics.Citations, &a.Metrics.Altmetric,
		&first[0], &first[1],
		&second[0], &second[1],
		&third[0], &third[1],
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Link = deref(link)
	a.ArticleType = deref(kind)
	a.Journal = deref(journal)
	for _, name := range [][2]*string{first, second, third} {
		if name[0] == nil && name[1] == nil {
			break
		}
		a.LeadAuthors = append(a.LeadAuthors, domain.PersonName{First: deref(name[0]), Last: deref(name[1])})
	}

	return &a, nil
}
