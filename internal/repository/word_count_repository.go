package repository

import (
	"context"

	"github.com/helixir/journal-crawler/internal/domain"
)

// WordCounter increments the running count of a title word.
type WordCounter interface {
	// Increment calls add_or_increment_word for one lowercase token.
	Increment(ctx context.Context, word string) error
}

// WordCountRepository exposes title word counts.
type WordCountRepository interface {
	WordCounter

	// Top returns the most frequent words, highest count first.
	Top(ctx context.Context, limit int) ([]domain.WordCount, error)

	// Get returns the count for one word.
	// Returns domain.ErrNotFound if the word has never been counted.
	Get(ctx context.Context, word string) (*domain.WordCount, error)
}
