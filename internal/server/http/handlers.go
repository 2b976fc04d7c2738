package httpserver

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/journal-crawler/internal/domain"
	"github.com/helixir/journal-crawler/internal/repository"
)

// Pagination constants.
const (
	defaultPageSize = 50
	maxPageSize     = 200
	defaultTopWords = 20
	maxTopWords     = 500
)

// listArticles handles GET /api/v1/articles.
// Optional filters: journal, type. Pagination: page_size, page_token.
func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, offset := parsePaginationParams(r)

	filter := repository.ArticleFilter{
		Journal:     strings.TrimSpace(r.URL.Query().Get("journal")),
		ArticleType: strings.TrimSpace(r.URL.Query().Get("type")),
		Limit:       limit,
		Offset:      offset,
	}

	articles, totalCount, err := s.articleRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list articles")
		writeDomainError(w, err)
		return
	}

	items := make([]articleResponse, len(articles))
	for i, a := range articles {
		items[i] = domainArticleToResponse(a, nil)
	}

	writeJSON(w, http.StatusOK, listArticlesResponse{
		Articles:      items,
		NextPageToken: encodeHTTPPageToken(offset, limit, int(totalCount)),
		TotalCount:    int(totalCount),
	})
}

// getArticle handles GET /api/v1/articles/{doi...}.
// It returns the article together with its linked authors.
func (s *Server) getArticle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "doi must be a valid path segment")
		return
	}
	doi := domain.NormalizeDOI(raw)
	if doi == "" {
		writeError(w, http.StatusBadRequest, "doi is required")
		return
	}

	article, err := s.articleRepo.GetByDOI(ctx, doi)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	authors, err := s.authorRepo.ListByArticle(ctx, article.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("doi", doi).Msg("failed to list article authors")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainArticleToResponse(article, authors))
}

// topWords handles GET /api/v1/words/top.
func (s *Server) topWords(w http.ResponseWriter, r *http.Request) {
	limit := defaultTopWords
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxTopWords {
		limit = maxTopWords
	}

	words, err := s.wordRepo.Top(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load top words")
		writeDomainError(w, err)
		return
	}

	resp := topWordsResponse{Words: make([]wordCountResponse, len(words))}
	for i, wc := range words {
		resp.Words[i] = domainWordCountToResponse(wc)
	}
	writeJSON(w, http.StatusOK, resp)
}

// getWord handles GET /api/v1/words/{word}.
func (s *Server) getWord(w http.ResponseWriter, r *http.Request) {
	word := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "word")))
	if word == "" {
		writeError(w, http.StatusBadRequest, "word is required")
		return
	}

	wc, err := s.wordRepo.Get(r.Context(), word)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domainWordCountToResponse(*wc))
}

// writeDomainError maps domain errors to HTTP status codes and writes a JSON
// error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parsePaginationParams extracts page_size and page_token from query parameters.
// It applies default and maximum bounds to the page size.
func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if pageSizeStr := r.URL.Query().Get("page_size"); pageSizeStr != "" {
		if parsed, err := strconv.Atoi(pageSizeStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if pageToken := r.URL.Query().Get("page_token"); pageToken != "" {
		decoded, err := base64.StdEncoding.DecodeString(pageToken)
		if err == nil {
			if parsed, parseErr := strconv.Atoi(string(decoded)); parseErr == nil && parsed > 0 {
				offset = parsed
			}
		}
	}

	return limit, offset
}

// encodeHTTPPageToken encodes the next offset as a base64 page token.
// Returns an empty string if there are no more results.
func encodeHTTPPageToken(offset, limit, totalCount int) string {
	nextOffset := offset + limit
	if nextOffset < totalCount {
		return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(nextOffset)))
	}
	return ""
}
