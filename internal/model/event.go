package model

import "time"

// Event status values.  A cancelled event keeps its registrations for the
// audit trail but accepts no new ones.
const (
    EventStatusActive    = "ACTIVE"
    EventStatusCancelled = "CANCELLED"
)

// Event represents a bookable event created by an organizer.  The
// RegisteredCount column is the capacity ledger: it counts non-cancelled
// registrations and is only ever moved by the conditional increment and
// decrement statements in the event repository, so it can never exceed
// Capacity.
//
// Fields:
//  ID              – primary key identifier.
//  OrganizerID     – user who created the event.
//  Title           – event title shown to attendees and on check-in feedback.
//  Description     – free-form description.
//  Location        – venue description.
//  Category        – optional category used for browsing filters.
//  StartsAt        – when the event begins; registration closes at this time
//                    and check-in opens on this calendar day.
//  EndsAt          – when the event ends (must be after StartsAt).
//  Capacity        – maximum number of active registrations (>= 1).
//  RegisteredCount – current number of active registrations.
//  Status          – ACTIVE or CANCELLED.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Event struct {
    ID              uint64    // events.id
    OrganizerID     uint64    // events.organizer_id
    Title           string    // events.title
    Description     string    // events.description
    Location        string    // events.location
    Category        string    // events.category
    StartsAt        time.Time // events.starts_at
    EndsAt          time.Time // events.ends_at
    Capacity        uint32    // events.capacity
    RegisteredCount uint32    // events.registered_count
    Status          string    // events.status
    CreatedAt       time.Time // events.created_at
    UpdatedAt       time.Time // events.updated_at
}

// Remaining returns the number of seats still available.  The value is a
// snapshot and may be stale under concurrency; the authoritative check
// happens inside the conditional increment.
func (e *Event) Remaining() uint32 {
    if e.RegisteredCount >= e.Capacity {
        return 0
    }
    return e.Capacity - e.RegisteredCount
}
