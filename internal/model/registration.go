package model

import "time"

// Registration lifecycle states.  confirmed is the initial state;
// checked_in and cancelled are terminal.  The lowercase spelling is
// deliberate: codes printed on tickets and stored in the database match
// what attendees see in the web client.
const (
    RegistrationConfirmed = "confirmed"
    RegistrationCheckedIn = "checked_in"
    RegistrationCancelled = "cancelled"
)

// Registration identifies one user's claim on one seat of one event.
// Rows are never deleted; cancellation flips Status and clears Active so
// the uniqueness constraint on (event_id, user_id, active) stops applying
// while the row survives as an audit record.
//
// Fields:
//  ID           – primary key identifier.
//  EventID      – event being attended.
//  UserID       – owner of the registration.
//  TicketCode   – globally unique random code; immutable once issued.
//  Status       – confirmed, checked_in or cancelled.
//  Active       – 1 while the registration is non-cancelled, nil afterwards.
//  RegisteredAt – creation timestamp.
//  CheckedInAt  – set exactly once, by the check-in processor.
//  CancelledAt  – set exactly once, on cancellation.
//  Notes        – optional free text supplied at registration time.
type Registration struct {
    ID           uint64     // registrations.id
    EventID      uint64     // registrations.event_id
    UserID       uint64     // registrations.user_id
    TicketCode   string     // registrations.ticket_code
    Status       string     // registrations.status
    Active       *uint8     // registrations.active (nullable)
    RegisteredAt time.Time  // registrations.registered_at
    CheckedInAt  *time.Time // registrations.checked_in_at (nullable)
    CancelledAt  *time.Time // registrations.cancelled_at (nullable)
    Notes        string     // registrations.notes
}
