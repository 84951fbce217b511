package gemini

import (
	"strconv"
	"time"
)

type retryAction int

const (
	// stopSuccess: the response is usable, hand it to the parser.
	stopSuccess retryAction = iota
	// stopFatal: non-retryable HTTP error, fail immediately.
	stopFatal
	// retryAfter: transient status, sleep for the returned delay and retry.
	retryAfter
)

var transientStatuses = map[int]bool{
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// decideRetry classifies one HTTP response into a retry decision.
// retryAfterHeader is the raw retry-after header value ("" when absent); a
// parseable value replaces the computed exponential delay, floored at 500ms.
func decideRetry(status int, retryAfterHeader string, attempt int, baseDelay time.Duration) (retryAction, time.Duration) {
	if status >= 200 && status < 300 {
		return stopSuccess, 0
	}
	if !transientStatuses[status] {
		return stopFatal, 0
	}
	delay := backoffDelay(baseDelay, attempt)
	if retryAfterHeader != "" {
		if sec, err := strconv.ParseFloat(retryAfterHeader, 64); err == nil {
			delay = time.Duration(sec * float64(time.Second))
			if delay < 500*time.Millisecond {
				delay = 500 * time.Millisecond
			}
		}
	}
	return retryAfter, delay
}

// backoffDelay is base × 2^(attempt-1) for attempt >= 1.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}
