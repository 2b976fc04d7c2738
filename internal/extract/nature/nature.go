// Package nature extracts article metadata from nature.com listing and article pages.
package nature

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/helixir/journal-crawler/internal/domain"
	"github.com/helixir/journal-crawler/internal/extract"
)

// Listing page selectors.
const (
	CardSelector        = ".app-article-list-row__item"
	titleLinkSelector   = ".c-card__link"
	listAuthorSelector  = `.app-author-list span[itemprop="name"]`
	articleTypeSelector = ".c-meta__type"
	cardDateSelector    = "time[datetime]"
	cardJournalSelector = `[data-test="journal-title"]`
)

// Article page selectors.
const (
	authorItemSelector   = "li.c-article-author-list__item"
	authorNameSelector   = `a[data-test="author-name"]`
	orcidSelector        = "a.js-orcid"
	bibValueSelector     = "span.c-bibliographic-information__value"
	bibItemSelector      = "li.c-bibliographic-information__list-item"
	metricsCountSelector = ".c-article-metrics-bar__wrapper p.c-article-metrics-bar__count"
	journalLinkSelector  = `p.c-article-info-details a[data-test="journal-link"]`
)

// Card is the metadata available on a listing card.
type Card struct {
	Title         string
	Link          string
	ArticleType   string
	Journal       string
	DatePublished *time.Time
	Authors       []string
}

// Detail is the metadata available on an article page.
type Detail struct {
	DOI       string
	Journal   string
	Metrics   domain.ArticleMetrics
	Received  *time.Time
	Accepted  *time.Time
	Published *time.Time
	Credits   []domain.AuthorCredit
}

// Site extracts nature.com pages. BaseURL resolves the relative links on listing cards.
type Site struct {
	BaseURL *url.URL
}

// NewSite returns a Site resolving links against baseURL.
func NewSite(baseURL string) (*Site, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("base url must be absolute: %q", baseURL)
	}
	return &Site{BaseURL: u}, nil
}

// Cards returns the article cards of a listing page in page order.
func (s *Site) Cards(doc *goquery.Document) []*goquery.Selection {
	var cards []*goquery.Selection
	doc.Find(CardSelector).Each(func(_ int, card *goquery.Selection) {
		cards = append(cards, card)
	})
	return cards
}

// ParseCard reads one listing card. ok is false when the card has no title link,
// which marks the end of the usable cards on the page.
func (s *Site) ParseCard(card *goquery.Selection) (c Card, ok bool, err error) {
	link := card.Find(titleLinkSelector).First()
	href, hasHref := link.Attr("href")
	if link.Length() == 0 || !hasHref || strings.TrimSpace(href) == "" {
		return Card{}, false, nil
	}

	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return Card{}, true, fmt.Errorf("invalid article link %q: %w", href, err)
	}

	c = Card{
		Title:       extract.CleanText(link.Text()),
		Link:        s.BaseURL.ResolveReference(ref).String(),
		ArticleType: extract.CleanText(card.Find(articleTypeSelector).First().Text()),
		Journal:     extract.CleanText(card.Find(cardJournalSelector).First().Text()),
	}

	card.Find(listAuthorSelector).Each(func(_ int, sel *goquery.Selection) {
		if name := extract.CleanText(sel.Text()); name != "" {
			c.Authors = append(c.Authors, name)
		}
	})

	if raw, exists := card.Find(cardDateSelector).First().Attr("datetime"); exists && raw != "" {
		published, err := extract.ParseISODate(raw)
		if err != nil {
			return Card{}, true, fmt.Errorf("listing date: %w", err)
		}
		c.DatePublished = &published
	}

	return c, true, nil
}

// ParseArticle reads an article page. A page without a DOI is an error because the
// DOI is the article's identity.
func (s *Site) ParseArticle(doc *goquery.Document) (Detail, error) {
	var d Detail

	doc.Find(bibValueSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := extract.CleanText(sel.Text())
		if strings.Contains(text, "doi.org") {
			d.DOI = domain.NormalizeDOI(text)
			return false
		}
		return true
	})
	if d.DOI == "" {
		return Detail{}, domain.NewValidationError("doi", "not found on article page")
	}

	metrics, err := parseMetrics(doc)
	if err != nil {
		return Detail{}, err
	}
	d.Metrics = metrics

	if err := parseDates(doc, &d); err != nil {
		return Detail{}, err
	}

	d.Journal = extract.CleanText(doc.Find(journalLinkSelector).First().Text())
	d.Credits = parseCredits(doc)

	return d, nil
}

func parseMetrics(doc *goquery.Document) (domain.ArticleMetrics, error) {
	var m domain.ArticleMetrics
	var parseErr error

	doc.Find(metricsCountSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		fields := strings.Fields(sel.Text())
		if len(fields) < 2 {
			return true
		}
		n, err := extract.ParseCount(fields[0])
		if err != nil {
			parseErr = fmt.Errorf("metric %q: %w", strings.Join(fields, " "), err)
			return false
		}
		switch strings.ToLower(fields[1]) {
		case "accesses":
			m.Accesses = &n
		case "citations", "citation":
			m.Citations = &n
		case "altmetric":
			m.Altmetric = &n
		}
		return true
	})

	return m, parseErr
}

func parseDates(doc *goquery.Document, d *Detail) error {
	var parseErr error

	doc.Find(bibItemSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		label, value, found := strings.Cut(sel.Text(), ":")
		if !found {
			return true
		}

		var target **time.Time
		switch strings.TrimSpace(label) {
		case "Received":
			target = &d.Received
		case "Accepted":
			target = &d.Accepted
		case "Published":
			target = &d.Published
		default:
			return true
		}

		var (
			t   time.Time
			err error
		)
		if raw, ok := sel.Find("time[datetime]").First().Attr("datetime"); ok && raw != "" {
			t, err = extract.ParseISODate(raw)
		} else {
			t, err = extract.ParseLongDate(value)
		}
		if err != nil {
			parseErr = fmt.Errorf("%s date: %w", strings.ToLower(strings.TrimSpace(label)), err)
			return false
		}
		*target = &t
		return true
	})

	return parseErr
}

// parseCredits reads name and ORCID from the same author item, so the two stay aligned
// even when some authors have no ORCID.
func parseCredits(doc *goquery.Document) []domain.AuthorCredit {
	var credits []domain.AuthorCredit
	doc.Find(authorItemSelector).Each(func(_ int, item *goquery.Selection) {
		name := extract.CleanText(item.Find(authorNameSelector).First().Text())
		if name == "" {
			return
		}
		credit := domain.AuthorCredit{FullName: name}
		if href, ok := item.Find(orcidSelector).First().Attr("href"); ok {
			credit.ORCID = domain.NormalizeORCID(href)
		}
		credits = append(credits, credit)
	})
	return credits
}

// Record merges a listing card and its article page into one record. The card's
// journal wins; the article page fills it in when the card has none.
func Record(c Card, d Detail) domain.ArticleRecord {
	journal := c.Journal
	if journal == "" {
		journal = d.Journal
	}
	return domain.ArticleRecord{
		Article: domain.Article{
			Title:         c.Title,
			Link:          c.Link,
			DOI:           d.DOI,
			ArticleType:   c.ArticleType,
			Journal:       journal,
			DatePublished: c.DatePublished,
			Received:      d.Received,
			Accepted:      d.Accepted,
			Published:     d.Published,
			Metrics:       d.Metrics,
			LeadAuthors:   domain.LeadAuthorsFrom(c.Authors),
		},
		Credits: d.Credits,
	}
}
