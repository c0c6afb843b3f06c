package epcapi

import (
	"errors"
	"fmt"
)

// ErrAuthenticationFailed means the API rejected the credentials. It is
// never retried: repeating the request cannot change them.
var ErrAuthenticationFailed = errors.New("authentication failed")

// RateLimitError means the API kept rate-limiting a page after the retry
// budget was spent. Pages and Records report how far the pagination got
// before failing; the caller decides whether to keep partial results.
type RateLimitError struct {
	Pages   int
	Records int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded after %d pages (%d records)", e.Pages, e.Records)
}

// UpstreamError means the API or the network failed persistently on one
// page. StatusCode is zero for transport-level failures.
type UpstreamError struct {
	StatusCode int
	Pages      int
	Records    int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream unavailable (status %d) after %d pages (%d records)", e.StatusCode, e.Pages, e.Records)
	}
	return fmt.Sprintf("upstream unavailable after %d pages (%d records): %v", e.Pages, e.Records, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
