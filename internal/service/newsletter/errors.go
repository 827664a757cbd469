package newsletter

import (
	"errors"
	"fmt"
)

// Sentinel errors for the façade. Callers branch on these to decide between
// a login redirect, a permissions page, a conflict message, or a retry.
var (
	ErrLoginRequired = errors.New("login required")
	ErrNotPublisher  = errors.New("actor is not a publisher of this newsletter")
	ErrUnauthorized  = errors.New("actor may not manage this newsletter")
	ErrActorBlocked  = errors.New("actor is blocked")
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrPageNotFound  = errors.New("content page does not exist")
	ErrInvalidPage   = errors.New("content page cannot be announced")
	ErrStorage       = errors.New("storage failure")
)

// ValidationError reports bad or missing input. It is surfaced to callers
// verbatim and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
