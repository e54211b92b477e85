package model

import "time"

// Check-in methods.  qr is the scanner path where the client submits the
// decoded ticket code; manual is the fallback where staff look up a
// registration id directly.
const (
    CheckInMethodQR     = "qr"
    CheckInMethodManual = "manual"
)

// CheckIn records a successful check-in for a registration.  The unique
// key on RegistrationID is the anti-fraud guarantee: the existence of a
// row here is the definitional proof that the ticket was used, and a
// second insert for the same registration can never succeed.
//
// Fields:
//  ID             – primary key identifier.
//  RegistrationID – registration that was checked in (unique).
//  EventID        – denormalized event reference for per-event queries.
//  ScannedBy      – staff member who performed the check-in.
//  ScannedAt      – when the check-in happened.
//  Method         – qr or manual.
//  Notes          – optional staff notes.
type CheckIn struct {
    ID             uint64    // check_ins.id
    RegistrationID uint64    // check_ins.registration_id
    EventID        uint64    // check_ins.event_id
    ScannedBy      uint64    // check_ins.scanned_by
    ScannedAt      time.Time // check_ins.scanned_at
    Method         string    // check_ins.method
    Notes          string    // check_ins.notes
}
