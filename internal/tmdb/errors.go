package tmdb

import (
	"fmt"

	"github.com/handsomefox/title-catalog/internal/catalog"
)

// FetchError is a failed page fetch: a network error or a non-2xx answer.
// It matches catalog.ErrUpstreamFetch under errors.Is.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "fetch failed"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == catalog.ErrUpstreamFetch }
