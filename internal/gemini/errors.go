package gemini

import (
	"errors"
	"fmt"
)

// MalformedResponseError means the service answered but the payload was
// unusable: no candidate/content/part, or the text was not valid JSON.
// Not retried.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "gemini: malformed response: " + e.Reason
}

// RateLimitError means HTTP 429 persisted through the whole retry budget.
// Recoverable: the caller should try again later.
type RateLimitError struct {
	Attempts int
	Model    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("gemini: rate limited after %d attempts, model=%s", e.Attempts, e.Model)
}

// TransientError means retryable statuses or read timeouts persisted through
// the whole retry budget. Recoverable: the caller should try again later.
type TransientError struct {
	Status   int
	Attempts int
	Model    string
}

func (e *TransientError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("gemini: read timeout after %d attempts, model=%s", e.Attempts, e.Model)
	}
	return fmt.Sprintf("gemini: transient failure status=%d after %d attempts, model=%s", e.Status, e.Attempts, e.Model)
}

// IsRecoverable reports whether err is a rate-limit or transient failure,
// i.e. the call may succeed if repeated later. Everything else is permanent
// for the same input.
func IsRecoverable(err error) bool {
	var rl *RateLimitError
	var tr *TransientError
	return errors.As(err, &rl) || errors.As(err, &tr)
}
