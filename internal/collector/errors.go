package collector

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAllMirrorsFailed reports that every configured mirror was tried for a
// page and none returned a structurally valid listing. The orchestrator
// owns the longer cooldown and the retry of the same cursor.
var ErrAllMirrorsFailed = errors.New("all mirrors failed")

// ErrMalformedListing reports an origin response whose shape could not be
// decoded as a listing. The page is skipped and counted as an error.
var ErrMalformedListing = errors.New("malformed origin response")

// StatusError carries a non-200 HTTP status from a mirror so callers can
// tell rate limiting apart from plain failure.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// RateLimited reports whether the mirror asked us to back off.
func (e *StatusError) RateLimited() bool {
	return e.Code == http.StatusTooManyRequests
}

// IsRateLimited reports whether err wraps a 429 response.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.RateLimited()
}
