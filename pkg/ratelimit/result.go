package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// Result contains the outcome of a rate limit check
type Result struct {
	// Allowed indicates whether the request is allowed
	Allowed bool

	// Limit is the maximum number of requests allowed in the time window
	Limit int64

	// Remaining is the number of requests remaining in the current window
	Remaining int64

	// Reset is the time when the current window ends
	Reset time.Time

	// RetryAfter is the duration to wait before retrying (if rate limited)
	RetryAfter time.Duration
}

// SetHeaders sets the standard rate limit headers on an HTTP response
func (r *Result) SetHeaders(w http.ResponseWriter) {
	r.SetXRateLimitHeaders(w)
	if !r.Allowed {
		r.SetRetryAfterHeader(w)
	}
}

// SetXRateLimitHeaders sets X-RateLimit-* headers (de facto standard)
// Used by GitHub, Stripe, Twitter, and many other APIs
func (r *Result) SetXRateLimitHeaders(w http.ResponseWriter) {
	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(r.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(r.Remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(r.Reset.Unix(), 10))
}

// SetRetryAfterHeader sets the Retry-After header when rate limited (RFC 7231)
// This should only be set on 429 Too Many Requests responses
func (r *Result) SetRetryAfterHeader(w http.ResponseWriter) {
	if r.RetryAfter > 0 {
		seconds := int64(r.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
	}
}
