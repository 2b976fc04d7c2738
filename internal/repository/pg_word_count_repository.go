package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/journal-crawler/internal/domain"
)

// Compile-time interface verification.
var (
	_ WordCountRepository = (*PgWordCountRepository)(nil)
	_ WordCounter         = (*SQLWordCounter)(nil)
)

const incrementWordQuery = `CALL add_or_increment_word($1)`

// PgWordCountRepository is a PostgreSQL implementation of WordCountRepository.
type PgWordCountRepository struct {
	db DBTX
}

// NewPgWordCountRepository creates a new PostgreSQL word count repository.
func NewPgWordCountRepository(db DBTX) *PgWordCountRepository {
	return &PgWordCountRepository{db: db}
}

// Increment adds one to the word's count, creating it at one if absent.
func (r *PgWordCountRepository) Increment(ctx context.Context, word string) error {
	if word == "" {
		return domain.NewValidationError("word", "word is required")
	}
	if _, err := r.db.Exec(ctx, incrementWordQuery, truncate(word, maxWordLen)); err != nil {
		return fmt.Errorf("failed to increment word %q: %w", word, err)
	}
	return nil
}

// Top returns the most frequent title words.
func (r *PgWordCountRepository) Top(ctx context.Context, limit int) ([]domain.WordCount, error) {
	offset := 0
	applyPaginationDefaults(&limit, &offset)

	query := `
		SELECT word, count
		FROM title_words
		ORDER BY count DESC, word
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top words: %w", err)
	}
	defer rows.Close()

	words := make([]domain.WordCount, 0, limit)
	for rows.Next() {
		var wc domain.WordCount
		if err := rows.Scan(&wc.Word, &wc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan word count: %w", err)
		}
		words = append(words, wc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating word counts: %w", err)
	}

	return words, nil
}

// Get returns the count for one word.
func (r *PgWordCountRepository) Get(ctx context.Context, word string) (*domain.WordCount, error) {
	wc := domain.WordCount{}
	err := r.db.QueryRow(ctx, `SELECT word, count FROM title_words WHERE word = $1`, word).Scan(&wc.Word, &wc.Count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("word", word)
		}
		return nil, fmt.Errorf("failed to get word count: %w", err)
	}
	return &wc, nil
}

// SQLWordCounter increments word counts over a database/sql connection that is
// independent of the crawl's pgx transactions. Each call autocommits.
type SQLWordCounter struct {
	db *sql.DB
}

// NewSQLWordCounter wraps an open database/sql handle.
func NewSQLWordCounter(db *sql.DB) *SQLWordCounter {
	return &SQLWordCounter{db: db}
}

// Increment adds one to the word's count.
func (c *SQLWordCounter) Increment(ctx context.Context, word string) error {
	if word == "" {
		return domain.NewValidationError("word", "word is required")
	}
	if _, err := c.db.ExecContext(ctx, incrementWordQuery, truncate(word, maxWordLen)); err != nil {
		return fmt.Errorf("failed to increment word %q: %w", word, err)
	}
	return nil
}
