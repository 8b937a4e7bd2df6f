package domain

import (
	"errors"
	"fmt"
)

var (
	ErrArtistNotFound      = errors.New("artist not found")
	ErrUpstreamAuth        = errors.New("invalid credentials")
	ErrUpstreamThrottled   = errors.New("upstream rate limit exceeded")
	ErrUpstreamFormat      = errors.New("malformed upstream response")
	ErrUpstreamTimeout     = errors.New("upstream request timed out")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrCacheUnavailable    = errors.New("cache store unavailable")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// UpstreamStatusError covers 4xx responses that have no dedicated sentinel.
// These are caller mistakes as far as the upstream is concerned, so they are
// neither retried nor eligible for stale fallback.
type UpstreamStatusError struct {
	Status int
}

func (e UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream rejected request: status %d", e.Status)
}

// IsUpstreamOutage reports whether err indicates the upstream is unreachable
// rather than rejecting the request. Only these errors qualify for serving
// stale cache entries.
func IsUpstreamOutage(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrUpstreamTimeout)
}
