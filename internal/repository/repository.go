// Package repository provides data access interfaces and PostgreSQL
// implementations for crawled articles, their authors and title word counts.
//
// # Repository Interfaces
//
//   - ArticleRepository: DOI existence checks, inserts and read-only browsing
//   - AuthorRepository: identity lookups (ORCID, then name), inserts and article links
//   - WordCountRepository: the add_or_increment_word procedure and top-word queries
//
// # Error Handling
//
// Methods return errors from the domain package where the condition is
// expected: domain.ErrNotFound for missing rows, domain.ErrAlreadyExists for
// unique violations and domain.ErrInvalidInput for rejected parameters. Other
// database errors are wrapped with fmt.Errorf and %w.
//
// # Transactions
//
// Implementations take a DBTX, so the same repository type works on the pool
// and on a pgx.Tx handed out by database.DB.WithTransaction:
//
//	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
//	    articles := repository.NewPgArticleRepository(tx)
//	    _, err := articles.Create(ctx, article)
//	    return err
//	})
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/journal-crawler/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX

// PostgreSQL error codes used for constraint violation detection.
const (
	pgUniqueViolation     = "23505" // unique_violation
	pgForeignKeyViolation = "23503" // foreign_key_violation
)

// Column lengths from the schema. Strings are cut to these before insert.
const (
	maxTitleLen       = 512
	maxLinkLen        = 512
	maxDOILen         = 128
	maxArticleTypeLen = 64
	maxJournalLen     = 256
	maxNameLen        = 128
	maxORCIDLen       = 32
	maxWordLen        = 128
)

// Filter pagination defaults and limits.
const (
	defaultFilterLimit = 100
	maxFilterLimit     = 1000
)

// applyPaginationDefaults normalizes limit and offset values for filter queries.
// It clamps limit to [1, maxFilterLimit] and ensures offset >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultFilterLimit
	}
	if *limit > maxFilterLimit {
		*limit = maxFilterLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}

// truncate cuts s to at most n characters without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// nullable truncates s and maps the empty string to NULL.
func nullable(s string, n int) *string {
	if s == "" {
		return nil
	}
	s = truncate(s, n)
	return &s
}

// deref returns the pointed-to string, or "" for NULL.
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// isPgUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

// isPgForeignKeyViolation checks if the error is a PostgreSQL foreign key violation.
func isPgForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	return false
}
