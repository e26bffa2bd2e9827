package catalog

import "errors"

var (
	ErrUnsupportedType  = errors.New("unsupported title type")
	ErrUnsupportedOrder = errors.New("unsupported order")

	// ErrDomainNotAllowed is returned before any request is sent to a host
	// outside the scraping allow-list.
	ErrDomainNotAllowed = errors.New("domain not allowed for scraping")

	// ErrUpstreamFetch marks network errors and non-2xx answers from the scraped site.
	ErrUpstreamFetch = errors.New("upstream fetch failed")
)
