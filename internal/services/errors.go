package services

import (
	"errors"
	"fmt"
)

// Error taxonomy for core operations. Every failure a service returns wraps
// exactly one of these sentinels so callers can classify with errors.Is.
// Only ErrSession may terminate a live subscription; everything else is
// recovered locally.
var (
	// ErrSession indicates there is no authenticated actor.
	ErrSession = errors.New("no authenticated actor")

	// ErrForbidden indicates the actor's role does not permit the operation.
	ErrForbidden = errors.New("operation not permitted for role")

	// ErrValidation indicates rejected input, surfaced to the caller.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates a referenced row is absent.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a concurrent update won the race; callers
	// recover by refreshing their view.
	ErrConflict = errors.New("conflict")

	// ErrTransient indicates a store or bus call failed; live views keep
	// their last good snapshot and retry.
	ErrTransient = errors.New("transient failure")
)

// IsSession reports whether err is a session error
func IsSession(err error) bool { return errors.Is(err, ErrSession) }

// IsForbidden reports whether err is a role-permission error
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is a lost-race error
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsTransient reports whether err is a recoverable infrastructure error
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func transientErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTransient, fmt.Sprintf(format, args...))
}
