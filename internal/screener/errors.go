package screener

import "errors"

// Upstream failure taxonomy. Clients wrap transport errors with these
// sentinels so the chain can apply per-stage policy with errors.Is;
// none of them is ever fatal to a scan as a whole.
var (
	// ErrUpstreamUnavailable marks network failures and timeouts on an
	// external source.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamRateLimited marks a 429 after retries were exhausted.
	ErrUpstreamRateLimited = errors.New("upstream rate limited")

	// ErrMalformedResponse marks a schema mismatch; the affected
	// candidate or record is discarded, not the batch.
	ErrMalformedResponse = errors.New("malformed upstream response")
)
