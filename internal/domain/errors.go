package domain

import "github.com/cockroachdb/errors"

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")

	// ErrIgnored marks an interaction that was dropped before reaching the
	// job store (incomplete gesture, missing permission, unknown card).
	ErrIgnored = errors.New("interaction ignored")

	// ErrStaleResponse marks a store response that arrived after the board
	// moved on to another date. The board state is left untouched.
	ErrStaleResponse = errors.New("stale response")
)

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// UserMessage returns the user-facing text attached to err, or fallback when
// none was attached.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if hint := errors.FlattenHints(err); hint != "" {
		return hint
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	return fallback
}
