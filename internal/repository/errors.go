// Package repository implements all database access for the event
// registration system, plus the sentinel errors shared across
// repositories.  The sentinels let handlers and services distinguish
// failure scenarios without string matching: business outcomes such as
// ErrAtCapacity or ErrAlreadyCheckedIn are expected results of the
// conditional storage operations, not system errors.
package repository

import (
    "errors"
    "strings"

    "github.com/go-sql-driver/mysql"
)

// ErrEventNotFound is returned when the referenced event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrRegistrationNotFound is returned when the referenced registration
// does not exist.
var ErrRegistrationNotFound = errors.New("registration not found")

// ErrTicketNotFound is returned when no registration carries the
// presented ticket code.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrAtCapacity is returned by the conditional seat reservation when the
// event has no remaining capacity.  It is a terminal business outcome,
// not a transient failure; callers must not retry it.
var ErrAtCapacity = errors.New("event is at full capacity")

// ErrAlreadyRegistered is returned when the user already holds a
// non-cancelled registration for the event.  It surfaces from the unique
// key on (event_id, user_id, active), so exactly one of two racing
// registration attempts receives it.
var ErrAlreadyRegistered = errors.New("already registered for this event")

// ErrDuplicateTicketCode is returned when a freshly generated ticket code
// collides with an existing one.  The registration service retries once
// with a new code before giving up.
var ErrDuplicateTicketCode = errors.New("duplicate ticket code")

// ErrAlreadyCheckedIn is returned when a check-in exists for the
// registration.  Under concurrent scans of the same ticket the unique key
// on check_ins.registration_id guarantees every caller but one gets this.
var ErrAlreadyCheckedIn = errors.New("ticket already checked in")

// ErrAlreadyCancelled is returned when cancelling a registration that is
// already cancelled.
var ErrAlreadyCancelled = errors.New("registration already cancelled")

// ErrTicketCancelled is returned when checking in a cancelled
// registration.
var ErrTicketCancelled = errors.New("ticket has been cancelled")

// ErrCapacityBelowRegistered is returned when an event update would set
// capacity below the number of active registrations.
var ErrCapacityBelowRegistered = errors.New("capacity below current registrations")

// ErrEmailExists is returned when registering a user with an email that
// is already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (1062) on the named unique key.  With an empty key it matches any
// duplicate-entry error.  The key name check relies on MySQL including
// the violated index name in the error message; this is how the insert
// paths tell a ticket-code collision apart from a duplicate registration.
func isDuplicateKey(err error, key string) bool {
    var me *mysql.MySQLError
    if !errors.As(err, &me) || me.Number != 1062 {
        return false
    }
    return key == "" || strings.Contains(me.Message, key)
}
