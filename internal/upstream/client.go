package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coursewatch/coursewatch-api/internal/models"
)

// Client provides canonical course documents from the upstream data
// source. Implementations own their transport, caching, and rate
// limiting; callers only see the canonical shape and typed failures.
type Client interface {
	Fetch(ctx context.Context, term, subject, courseNumber string) (*models.CourseDocument, error)
	Close() error
}

// ErrorKind distinguishes retryable from terminal fetch failures.
type ErrorKind int

const (
	// KindTransient marks upstream failures worth retrying on the next tick.
	KindTransient ErrorKind = iota
	// KindNotFound marks a course that does not exist upstream.
	KindNotFound
	// KindRateLimited marks a 429 from the upstream source.
	KindRateLimited
)

// FetchError is the typed failure returned by Client implementations.
type FetchError struct {
	Kind       ErrorKind
	RetryAfter time.Duration
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("course not found: %v", e.Err)
	case KindRateLimited:
		return fmt.Sprintf("upstream rate limited (retry after %s): %v", e.RetryAfter, e.Err)
	default:
		return fmt.Sprintf("upstream fetch failed: %v", e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a terminal not-found failure.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindNotFound
}

// IsRetryable reports whether a fetch may succeed on a later attempt.
func IsRetryable(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Kind == KindTransient || fe.Kind == KindRateLimited
}
