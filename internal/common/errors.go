// Package common defines shared constants and sentinel errors used across
// the weeklog components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Identity errors.
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")

	// Persistence errors surfaced by the storage gateway.
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrRemoteUnavailable      = errors.New("remote store unavailable")
	ErrCacheUnavailable       = errors.New("cache unavailable")
	ErrPersistenceFailed      = errors.New("persistence failed")

	// Validation errors.
	ErrInvalidWeek = errors.New("invalid iso week")
	ErrInvalidDate = errors.New("invalid date")
)

// UserMessage maps an error returned by the storage gateway to a short text
// suitable for showing to the end user. Unknown errors map to their Error().
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConcurrentModification):
		return "week changed elsewhere, reload and retry"
	case errors.Is(err, ErrPersistenceFailed):
		return "could not save, check connection"
	case errors.Is(err, ErrNotAuthenticated):
		return "not logged in"
	default:
		return err.Error()
	}
}
