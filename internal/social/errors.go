package social

import (
	"errors"
	"fmt"
)

var (
	ErrValidation            = errors.New("validation error")
	ErrNotFound              = errors.New("not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrConflict              = errors.New("conflict")
	ErrRateLimited           = errors.New("too many requests, try again later")
	ErrAuthorNotFound        = errors.New("author not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

var domainErrors = []error{
	ErrValidation,
	ErrNotFound,
	ErrUnauthorized,
	ErrConflict,
	ErrRateLimited,
	ErrAuthorNotFound,
	ErrDependencyUnavailable,
}

// IsDomainError reports whether err already carries one of the error kinds above.
func IsDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// dependency wraps failures of stores, directories and limiters. Errors that
// already carry a domain kind pass through unchanged.
func dependency(op string, err error) error {
	if err == nil || IsDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrDependencyUnavailable, op, err)
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
