//go:build integration

package repository

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/helixir/journal-crawler/internal/config"
	"github.com/helixir/journal-crawler/internal/database"
	"github.com/helixir/journal-crawler/internal/domain"
)

// startPostgres runs a disposable PostgreSQL container with the schema applied.
func startPostgres(t *testing.T) (*database.DB, *config.DatabaseConfig) {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("journals"),
		postgres.WithUsername("scraper"),
		postgres.WithPassword("secret"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	parsed, err := pgconn.ParseConfig(connStr)
	require.NoError(t, err)

	cfg := &config.DatabaseConfig{
		Host:           parsed.Host,
		Port:           int(parsed.Port),
		User:           parsed.User,
		Password:       parsed.Password,
		Name:           parsed.Database,
		SSLMode:        config.SSLModeDisable,
		MaxConns:       4,
		MinConns:       1,
		ConnectTimeout: 10 * time.Second,
	}

	logger := zerolog.New(io.Discard)
	db, err := database.New(ctx, cfg, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	migrator, err := database.NewMigrator(db, filepath.Join("..", "..", "migrations"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = migrator.Close() })
	require.NoError(t, migrator.Up())

	return db, cfg
}

func TestIntegration_ArticleAuthorsAndWords(t *testing.T) {
	db, cfg := startPostgres(t)
	ctx := context.Background()

	articles := NewPgArticleRepository(db)
	authors := NewPgAuthorRepository(db)
	words := NewPgWordCountRepository(db)

	article := testArticle()
	_, err := articles.Create(ctx, article)
	require.NoError(t, err)
	assert.NotZero(t, article.ID)

	exists, err := articles.ExistsByDOI(ctx, article.DOI)
	require.NoError(t, err)
	assert.True(t, exists)

	// A second insert of the same DOI hits the unique constraint.
	_, err = articles.Create(ctx, testArticle())
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))

	stored, err := articles.GetByDOI(ctx, article.DOI)
	require.NoError(t, err)
	assert.Equal(t, article.LeadAuthors, stored.LeadAuthors)
	assert.Equal(t, int64(12000), *stored.Metrics.Accesses)

	author, err := authors.Create(ctx, &domain.Author{FirstName: "Jane A.", LastName: "Doe", ORCID: "0000-0002-1825-0097"})
	require.NoError(t, err)

	byORCID, err := authors.FindByORCID(ctx, "0000-0002-1825-0097")
	require.NoError(t, err)
	assert.Equal(t, author.ID, byORCID.ID)

	byName, err := authors.FindByName(ctx, "Jane A.", "Doe")
	require.NoError(t, err)
	assert.Equal(t, author.ID, byName.ID)

	require.NoError(t, authors.LinkArticle(ctx, article.ID, author.ID))
	require.NoError(t, authors.LinkArticle(ctx, article.ID, author.ID))
	linked, err := authors.ListByArticle(ctx, article.ID)
	require.NoError(t, err)
	assert.Len(t, linked, 1)

	require.NoError(t, words.Increment(ctx, "cancer"))
	require.NoError(t, words.Increment(ctx, "cancer"))

	sqlDB, err := database.OpenSQL(ctx, cfg)
	require.NoError(t, err)
	defer sqlDB.Close()
	require.NoError(t, NewSQLWordCounter(sqlDB).Increment(ctx, "cancer"))

	wc, err := words.Get(ctx, "cancer")
	require.NoError(t, err)
	assert.Equal(t, int64(3), wc.Count)

	top, err := words.Top(ctx, 5)
	require.NoError(t, err)
	require.NotEmpty(t, top)
	assert.Equal(t, "cancer", top[0].Word)
}
