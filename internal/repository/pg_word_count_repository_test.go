package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/journal-crawler/internal/domain"
)

func TestPgWordCountRepository_Increment(t *testing.T) {
	ctx := context.Background()

	t.Run("calls the stored procedure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgWordCountRepository(mock)

		mock.ExpectExec(`CALL add_or_increment_word\(\$1\)`).
			WithArgs("cancer").
			WillReturnResult(pgxmock.NewResult("CALL", 0))

		require.NoError(t, repo.Increment(ctx, "cancer"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("truncates long tokens", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgWordCountRepository(mock)

		mock.ExpectExec(`CALL add_or_increment_word`).
			WithArgs(strings.Repeat("a", maxWordLen)).
			WillReturnResult(pgxmock.NewResult("CALL", 0))

		require.NoError(t, repo.Increment(ctx, strings.Repeat("a", maxWordLen+5)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects empty word", func(t *testing.T) {
		repo := NewPgWordCountRepository(nil)

		err := repo.Increment(ctx, "")
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("wraps exec errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgWordCountRepository(mock)

		mock.ExpectExec(`CALL add_or_increment_word`).
			WithArgs("cancer").
			WillReturnError(errors.New("procedure missing"))

		err = repo.Increment(ctx, "cancer")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `failed to increment word "cancer"`)
	})
}

func TestPgWordCountRepository_Top(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgWordCountRepository(mock)

	mock.ExpectQuery(`SELECT word, count FROM title_words ORDER BY count DESC, word LIMIT \$1`).
		WithArgs(2).
		WillReturnRows(pgxmock.NewRows([]string{"word", "count"}).
			AddRow("cancer", int64(40)).
			AddRow("breast", int64(38)))

	words, err := repo.Top(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []domain.WordCount{
		{Word: "cancer", Count: 40},
		{Word: "breast", Count: 38},
	}, words)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgWordCountRepository_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("returns count", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgWordCountRepository(mock)

		mock.ExpectQuery(`SELECT word, count FROM title_words WHERE word = \$1`).
			WithArgs("tumour").
			WillReturnRows(pgxmock.NewRows([]string{"word", "count"}).AddRow("tumour", int64(3)))

		wc, err := repo.Get(ctx, "tumour")
		require.NoError(t, err)
		assert.Equal(t, int64(3), wc.Count)
	})

	t.Run("returns not found error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgWordCountRepository(mock)

		mock.ExpectQuery(`FROM title_words WHERE word = \$1`).
			WithArgs("absent").
			WillReturnError(pgx.ErrNoRows)

		_, err = repo.Get(ctx, "absent")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}
