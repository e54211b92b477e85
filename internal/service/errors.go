package service

import "errors"

// Service-level sentinel errors. Handlers translate these (together with the
// repository sentinels they wrap or pass through) into HTTP status codes.
var (
	// ErrEventPast means the event has already started, so registration
	// is closed.
	ErrEventPast = errors.New("event has already started")

	// ErrEventNotActive means the event was cancelled by its organizer
	// and no longer accepts registrations.
	ErrEventNotActive = errors.New("event is not open for registration")

	// ErrTooEarly means a check-in was attempted before the day of the
	// event. Gates open at the start of the event's calendar day.
	ErrTooEarly = errors.New("check-in opens on the day of the event")

	// ErrNotOwner means the caller is neither the owner of the resource
	// nor an administrator.
	ErrNotOwner = errors.New("not the owner of this resource")

	// ErrValidation wraps a human-readable message about bad input.
	ErrValidation = errors.New("validation failed")
)
