package models

import "errors"

// Error kinds returned by the request/crate engine. Callers branch with
// errors.Is; every operation leaves state untouched when one of these comes
// back, except that ErrStaleState means another writer already won.
var (
	// ErrValidation: malformed or rule-breaking payload, rejected before any
	// signature check or transition.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized: the actor's role lacks the capability for the
	// attempted transition.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSignatureFailed: digital-signature re-authentication failed or
	// timed out. Distinct from ErrUnauthorized so callers can re-prompt.
	ErrSignatureFailed = errors.New("signature confirmation failed")

	// ErrInvalidTransition: the request's current status does not permit
	// the attempted action.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrStaleState: a concurrent writer modified the record between read
	// and guarded write. Caller should re-fetch and retry.
	ErrStaleState = errors.New("stale state")

	ErrCrateDestroyed            = errors.New("crate already destroyed")
	ErrDuplicateActiveRequest    = errors.New("crate already has an active request")
	ErrShelfRequired             = errors.New("shelf is required for this unit")
	ErrLocationNotFound          = errors.New("storage location not found")
	ErrNotEligibleForDestruction = errors.New("crate is not eligible for destruction")
)
