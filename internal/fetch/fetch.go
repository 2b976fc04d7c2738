// Package fetch retrieves HTML pages and parses them into goquery documents.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/helixir/journal-crawler/internal/domain"
)

// Config configures the page client.
type Config struct {
	// Timeout is the request timeout for a single page.
	Timeout time.Duration
	// UserAgent is the User-Agent header sent with requests.
	UserAgent string
}

// Client fetches pages one at a time. Failed requests are not retried.
type Client struct {
	http *resty.Client
}

// NewClient creates a page client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Accept", "text/html,application/xhtml+xml")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Client{http: client}
}

// Fetch GETs url and parses the body as HTML. Transport failures and responses with
// a status of 400 or above are returned as *domain.FetchError.
func (c *Client) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	res, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Cause: err}
	}
	if res.StatusCode() >= http.StatusBadRequest {
		return nil, &domain.FetchError{URL: url, StatusCode: res.StatusCode()}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var fe *domain.FetchError
	return errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound
}
