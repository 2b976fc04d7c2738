package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/journal-crawler/internal/domain"
)

var articleRowColumns = []string{
	"id", "title", "link", "doi", "article_type", "journal",
	"date_published", "received", "accepted", "published",
	"accesses", "citations", "altmetric",
	"first_author_firstname", "first_author_lastname",
	"second_author_firstname", "second_author_lastname",
	"third_author_firstname", "third_author_lastname",
	"created_at",
}

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

func timePtr(t time.Time) *time.Time { return &t }

func testArticle() *domain.Article {
	published := time.Date(2023, 5, 2, 0, 0, 0, 0, time.UTC)
	return &domain.Article{
		Title:         "Tumour heterogeneity in breast cancer",
		Link:          "https://www.nature.com/articles/s41586-023-06001-x",
		DOI:           "10.1038/s41586-023-06001-x",
		ArticleType:   "Article",
		Journal:       "Nature",
		DatePublished: &published,
		Published:     &published,
		Metrics: domain.ArticleMetrics{
			Accesses:  int64Ptr(12000),
			Citations: int64Ptr(250),
		},
		LeadAuthors: []domain.PersonName{
			{First: "Jane A.", Last: "Doe"},
			{First: "Wei", Last: "Zhang"},
		},
	}
}

func TestPgArticleRepository_ExistsByDOI(t *testing.T) {
	ctx := context.Background()

	t.Run("returns true for stored DOI", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock)

		mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM articles WHERE doi = \$1\)`).
			WithArgs("10.1038/abc").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := repo.ExistsByDOI(ctx, "10.1038/abc")
		require.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns false for unknown DOI", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock)

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("10.1038/new").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		exists, err := repo.ExistsByDOI(ctx, "10.1038/new")
		require.NoError(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("matches the stored width of an overlong DOI", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock)
		longDOI := "10.1038/" + strings.Repeat("x", 200)

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(longDOI[:128]).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := repo.ExistsByDOI(ctx, longDOI)
		require.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects empty DOI", func(t *testing.T) {
		repo := NewPgArticleRepository(nil)

		_, err := repo.ExistsByDOI(ctx, "")
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("wraps query errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock)

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("10.1038/abc").
			WillReturnError(errors.New("connection reset"))

		_, err = repo.ExistsByDOI(ctx, "10.1038/abc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to check article DOI")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgArticleRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts article and sets generated fields", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock)
		article := testArticle()
		now := time.Now().UTC()

		mock.ExpectQuery(`INSERT INTO articles`).
			WithArgs(
				"Tumour heterogeneity in breast cancer",
				strPtr("https://www.nature.com/articles/s41586-023-06001-x"),
				"10.1038/s41586-023-06001-x",
				strPtr("Article"),
				strPtr("Nature"),
				article.DatePublished,
				(*time.Time)(nil),
				(*time.Time)(nil),
				article.Published,
				int64Ptr(12000),
				int64Ptr(250),
				(*int64)(nil),
				strPtr("Jane A."), strPtr("Doe"),
				strPtr("Wei"), strPtr("Zhang"),
				(*string)(nil), (*string)(nil),
			).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), now))

		created, err := repo.Create(ctx, article)
		require.NoError(t, err)
		assert.Equal(t, int64(42), created.ID)
		assert.Equal(t, now, created.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("truncates long strings and stores empty ones as NULL", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock)
		article := &domain.Article{
			Title: strings.Repeat("t", maxTitleLen+40),
			DOI:   "10.1038/long",
		}

		mock.ExpectQuery(`INSERT INTO articles`).
			WithArgs(
				strings.Repeat("t", maxTitleLen),
				(*string)(nil),
				"10.1038/long",
				(*string)(nil),
				(*string)(nil),
				(*time.Time)(nil), (*time.Time)(nil), (*time.Time)(nil), (*time.Time)(nil),
				(*int64)(nil), (*int64)(nil), (*int64)(nil),
				(*string)(nil), (*string)(nil),
				(*string)(nil), (*string)(nil),
				(*string)(nil), (*string)(nil),
			).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), time.Now()))

		_, err = repo.Create(ctx, article)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps unique violation to already exists", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock)

		mock.ExpectQuery(`INSERT INTO articles`).
			WithArgs(anyArgs(18)...).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err = repo.Create(ctx, testArticle())
		assert.True(t, errors.Is(err, domain.ErrAlreadyExists))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects article without DOI", func(t *testing.T) {
		repo := NewPgArticleRepository(nil)
		article := testArticle()
		article.DOI = ""

		_, err := repo.Create(ctx, article)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("rejects nil article", func(t *testing.T) {
		repo := NewPgArticleRepository(nil)

		_, err := repo.Create(ctx, nil)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}

func TestPgArticleRepository_GetByDOI(t *testing.T) {
	ctx := context.Background()

	t.Run("returns article when found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock)
		now := time.Now().UTC()
		published := time.Date(2023, 5, 2, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery(`SELECT id, title, link, doi, .* FROM articles WHERE doi = \$1`).
			WithArgs("10.1038/abc").
			WillReturnRows(pgxmock.NewRows(articleRowColumns).AddRow(
				int64(3), "A title", strPtr("https://example.org/a"), "10.1038/abc", strPtr("Article"), nil,
				timePtr(published), nil, nil, timePtr(published),
				int64Ptr(1200), nil, int64Ptr(5),
				strPtr("Jane"), strPtr("Doe"),
				nil, strPtr("Consortium"),
				nil, nil,
				now,
			))

		article, err := repo.GetByDOI(ctx, "10.1038/abc")
		require.NoError(t, err)
		assert.Equal(t, int64(3), article.ID)
		assert.Equal(t, "https://example.org/a", article.Link)
		assert.Equal(t, "Article", article.ArticleType)
		assert.Empty(t, article.Journal)
		require.NotNil(t, article.Published)
		assert.True(t, published.Equal(*article.Published))
		assert.Nil(t, article.Received)
		assert.Equal(t, int64(1200), *article.Metrics.Accesses)
		assert.Nil(t, article.Metrics.Citations)
		assert.Equal(t, []domain.PersonName{
			{First: "Jane", Last: "Doe"},
			{Last: "Consortium"},
		}, article.LeadAuthors)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock)

		mock.ExpectQuery(`FROM articles WHERE doi = \$1`).
			WithArgs("10.1038/missing").
			WillReturnError(pgx.ErrNoRows)

		_, err = repo.GetByDOI(ctx, "10.1038/missing")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("looks up an overlong DOI at its stored width", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock)
		longDOI := "10.1038/" + strings.Repeat("y", 200)

		mock.ExpectQuery(`FROM articles WHERE doi = \$1`).
			WithArgs(longDOI[:128]).
			WillReturnError(pgx.ErrNoRows)

		_, err = repo.GetByDOI(ctx, longDOI)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgArticleRepository_List(t *testing.T) {
	ctx := context.Background()

	t.Run("filters by journal with defaults", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock)
		now := time.Now().UTC()

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM articles WHERE journal = \$1`).
			WithArgs("Nature").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))

		mock.ExpectQuery(`SELECT .* FROM articles\s+WHERE journal = \$1\s+ORDER BY created_at DESC, id DESC\s+LIMIT \$2 OFFSET \$3`).
			WithArgs("Nature", defaultFilterLimit, 0).
			WillReturnRows(pgxmock.NewRows(articleRowColumns).
				AddRow(int64(2), "Second", nil, "10.1/b", nil, strPtr("Nature"),
					nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, now).
				AddRow(int64(1), "First", nil, "10.1/a", nil, strPtr("Nature"),
					nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, now))

		articles, total, err := repo.List(ctx, ArticleFilter{Journal: "Nature"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, articles, 2)
		assert.Equal(t, "10.1/b", articles[0].DOI)
		assert.Equal(t, "Nature", articles[1].Journal)
		assert.Empty(t, articles[1].LeadAuthors)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no filters", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM articles`).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
		mock.ExpectQuery(`LIMIT \$1 OFFSET \$2`).
			WithArgs(10, 20).
			WillReturnRows(pgxmock.NewRows(articleRowColumns))

		articles, total, err := repo.List(ctx, ArticleFilter{Limit: 10, Offset: 20})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, articles)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps count errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock)

		mock.ExpectQuery(`SELECT COUNT`).WillReturnError(errors.New("boom"))

		_, _, err = repo.List(ctx, ArticleFilter{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to count articles")
	})
}

func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}
