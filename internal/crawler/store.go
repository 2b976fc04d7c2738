package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/helixir/journal-crawler/internal/database"
	"github.com/helixir/journal-crawler/internal/domain"
	"github.com/helixir/journal-crawler/internal/extract"
	"github.com/helixir/journal-crawler/internal/observability"
	"github.com/helixir/journal-crawler/internal/repository"
)

// Author match keys reported in SaveResult and metrics.
const (
	MatchORCID = "orcid"
	MatchName  = "name"
)

// ArticleStore persists extracted articles.
type ArticleStore interface {
	// Exists reports whether an article with the DOI is already stored.
	Exists(ctx context.Context, doi string) (bool, error)

	// SaveArticle writes the article, resolves and links its authors and counts
	// its title words. A DOI that turns out to be taken yields Duplicate.
	SaveArticle(ctx context.Context, rec *domain.ArticleRecord) (*SaveResult, error)
}

// SaveResult summarizes one SaveArticle call.
type SaveResult struct {
	Article *domain.Article
	// AuthorIDs are the linked author IDs in credit order, without repeats.
	AuthorIDs []int64
	// Duplicate is set when the DOI was inserted by someone else first.
	Duplicate      bool
	AuthorsCreated int
	// AuthorsMatched counts resolved authors by match key.
	AuthorsMatched map[string]int
	Words          int
}

// Pool is what the store needs from the database: plain queries plus transactions.
// *database.DB satisfies it.
type Pool interface {
	database.DBTX
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Store is the PostgreSQL ArticleStore. Every article is written in one transaction.
type Store struct {
	pool     Pool
	articles repository.ArticleRepository
	// detached, when set, counts title words on its own connection after commit.
	detached repository.WordCounter
	logger   zerolog.Logger
}

// Compile-time interface verification.
var (
	_ ArticleStore = (*Store)(nil)
	_ Pool         = (*database.DB)(nil)
)

// NewStore creates a store that counts title words inside the article transaction.
func NewStore(pool Pool, logger zerolog.Logger) *Store {
	return &Store{
		pool:     pool,
		articles: repository.NewPgArticleRepository(pool),
		logger:   logger.With().Str("component", "store").Logger(),
	}
}

// WithDetachedWordCounter makes the store count title words through counter after
// the article transaction commits, instead of inside it.
func (s *Store) WithDetachedWordCounter(counter repository.WordCounter) *Store {
	s.detached = counter
	return s
}

// Exists reports whether the DOI is already stored.
func (s *Store) Exists(ctx context.Context, doi string) (bool, error) {
	return s.articles.ExistsByDOI(ctx, doi)
}

// SaveArticle writes rec in a single transaction.
func (s *Store) SaveArticle(ctx context.Context, rec *domain.ArticleRecord) (*SaveResult, error) {
	if rec == nil {
		return nil, domain.NewValidationError("record", "record cannot be nil")
	}

	article := rec.Article
	tokens := extract.TitleTokens(article.Title)

	var result *SaveResult
	err := s.pool.WithTransaction(ctx, func(tx pgx.Tx) error {
		result = &SaveResult{Article: &article, AuthorsMatched: map[string]int{}}

		if _, err := repository.NewPgArticleRepository(tx).Create(ctx, &article); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				result.Duplicate = true
			}
			return err
		}

		if err := s.linkAuthors(ctx, repository.NewPgAuthorRepository(tx), article.ID, rec.Credits, result); err != nil {
			return err
		}

		if s.detached == nil {
			if err := countWords(ctx, repository.NewPgWordCountRepository(tx), tokens); err != nil {
				return err
			}
			result.Words = len(tokens)
		}
		return nil
	})
	if err != nil {
		if result != nil && result.Duplicate {
			return &SaveResult{Article: &article, Duplicate: true}, nil
		}
		return nil, err
	}
	s.logger.Debug().
		Str("run_id", observability.RunIDFromContext(ctx)).
		Str("doi", article.DOI).
		Int64("article_id", article.ID).
		Int("authors", len(result.AuthorIDs)).
		Msg("article committed")

	if s.detached != nil {
		if err := countWords(ctx, s.detached, tokens); err != nil {
			return result, fmt.Errorf("article %s stored but word counts failed: %w", article.DOI, err)
		}
		result.Words = len(tokens)
	}

	return result, nil
}

// linkAuthors resolves each credited author and links every distinct author once.
// Credits whose name has no first part, usually consortia, are skipped.
func (s *Store) linkAuthors(ctx context.Context, authors repository.AuthorRepository, articleID int64, credits []domain.AuthorCredit, result *SaveResult) error {
	linked := make(map[int64]struct{}, len(credits))

	for _, credit := range credits {
		name := credit.Name()
		if name.First == "" {
			s.logger.Debug().Str("author", credit.FullName).Msg("skipping author without first name")
			continue
		}

		author, match, err := resolveAuthor(ctx, authors, name, domain.NormalizeORCID(credit.ORCID))
		if err != nil {
			return err
		}
		if match == "" {
			result.AuthorsCreated++
		} else {
			result.AuthorsMatched[match]++
		}

		if _, ok := linked[author.ID]; ok {
			continue
		}
		linked[author.ID] = struct{}{}

		if err := authors.LinkArticle(ctx, articleID, author.ID); err != nil {
			return err
		}
		result.AuthorIDs = append(result.AuthorIDs, author.ID)
	}

	return nil
}

// resolveAuthor finds the author by ORCID when one is given, otherwise by name,
// and creates it when nothing matches. match is empty for a created author.
func resolveAuthor(ctx context.Context, authors repository.AuthorRepository, name domain.PersonName, orcid string) (*domain.Author, string, error) {
	var (
		found *domain.Author
		err   error
		match string
	)
	if orcid != "" {
		found, err = authors.FindByORCID(ctx, orcid)
		match = MatchORCID
	} else {
		found, err = authors.FindByName(ctx, name.First, name.Last)
		match = MatchName
	}

	switch {
	case err == nil:
		return found, match, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, "", err
	}

	created, err := authors.Create(ctx, &domain.Author{
		FirstName: name.First,
		LastName:  name.Last,
		ORCID:     orcid,
	})
	if err != nil {
		return nil, "", err
	}
	return created, "", nil
}

func countWords(ctx context.Context, counter repository.WordCounter, tokens []string) error {
	for _, token := range tokens {
		if err := counter.Increment(ctx, token); err != nil {
			return err
		}
	}
	return nil
}
