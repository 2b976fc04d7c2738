package crawler

// StopReason records why a crawl ended.
type StopReason string

const (
	// StopEndOfResults means a listing page had no article cards or did not exist.
	StopEndOfResults StopReason = "end_of_results"
	// StopPageLimit means the page counter reached the configured maximum.
	StopPageLimit StopReason = "page_limit"
	// StopFetchError means a listing page could not be fetched.
	StopFetchError StopReason = "fetch_error"
	// StopStoreError means an article could not be written.
	StopStoreError StopReason = "store_error"
	// StopCancelled means the context was cancelled.
	StopCancelled StopReason = "cancelled"
)

// Paginator walks listing pages from a start page up to and including a
// maximum page number. It only moves forward.
type Paginator struct {
	page     int
	maxPages int
	urlFor   func(page int) string
}

// NewPaginator starts at startPage. urlFor builds the listing URL for a page.
func NewPaginator(startPage, maxPages int, urlFor func(page int) string) *Paginator {
	return &Paginator{page: startPage, maxPages: maxPages, urlFor: urlFor}
}

// Page returns the current page number.
func (p *Paginator) Page() int {
	return p.page
}

// URL returns the listing URL of the current page.
func (p *Paginator) URL() string {
	return p.urlFor(p.page)
}

// Advance moves to the next page. It returns false, without moving, once the
// current page is the last one allowed.
func (p *Paginator) Advance() bool {
	if p.page >= p.maxPages {
		return false
	}
	p.page++
	return true
}
