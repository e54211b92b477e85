package service

import (
	"context"
	"time"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/repository"
	"github.com/iliyamo/event-registration/internal/ticket"
)

// CheckInService owns the gate workflow: resolving a scanned ticket code
// or a manually entered registration id to its registration, enforcing
// the check-in window, and recording the check-in. The store's
// conditional status flip plus the unique check-in row guarantee that a
// ticket is admitted exactly once, however many scanners race on it.
type CheckInService struct {
	events        EventStore
	registrations RegistrationStore
	checkins      CheckInStore
	users         UserStore
	now           func() time.Time
}

// NewCheckInService constructs a CheckInService backed by the given stores.
func NewCheckInService(events EventStore, registrations RegistrationStore, checkins CheckInStore, users UserStore) *CheckInService {
	return &CheckInService{
		events:        events,
		registrations: registrations,
		checkins:      checkins,
		users:         users,
		now:           time.Now,
	}
}

// CheckInResult is what the scanner screen shows the staff member after
// a successful admission.
type CheckInResult struct {
	RegistrationID uint64    `json:"registration_id"`
	EventID        uint64    `json:"event_id"`
	EventTitle     string    `json:"event_title"`
	AttendeeName   string    `json:"attendee_name"`
	AttendeeEmail  string    `json:"attendee_email"`
	Method         string    `json:"method"`
	CheckedInAt    time.Time `json:"checked_in_at"`
	Notes          string    `json:"notes,omitempty"`
}

// Scan admits the ticket with the given code. Malformed codes are
// rejected before touching the database, since scanners forward whatever
// the camera decoded.
func (s *CheckInService) Scan(ctx context.Context, code string, staffID uint64, notes string) (*CheckInResult, error) {
	if !ticket.Valid(code) {
		return nil, repository.ErrTicketNotFound
	}
	reg, err := s.registrations.GetByTicketCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.admit(ctx, reg, staffID, model.CheckInMethodQR, notes)
}

// Manual admits a registration by id, for attendees whose ticket cannot
// be scanned at the gate.
func (s *CheckInService) Manual(ctx context.Context, registrationID, staffID uint64, notes string) (*CheckInResult, error) {
	reg, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	return s.admit(ctx, reg, staffID, model.CheckInMethodManual, notes)
}

// admit enforces the check-in window, records the check-in, and builds
// the scanner response. Cancelled and already-admitted tickets are
// rejected up front from the loaded row, and again by the store inside
// the same transaction that records the admission.
func (s *CheckInService) admit(ctx context.Context, reg *model.Registration, staffID uint64, method, notes string) (*CheckInResult, error) {
	// Report the ticket's own state before complaining about the date: a
	// cancelled ticket presented a day early is still a cancelled ticket.
	// The store re-checks both conditions atomically inside Record.
	switch reg.Status {
	case model.RegistrationCancelled:
		return nil, repository.ErrTicketCancelled
	case model.RegistrationCheckedIn:
		return nil, repository.ErrAlreadyCheckedIn
	}

	ev, err := s.events.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}

	// Gates open at midnight UTC on the event day, not at the exact
	// start time, so early arrivals on the right day are admitted.
	y, m, d := ev.StartsAt.UTC().Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if s.now().UTC().Before(dayStart) {
		return nil, ErrTooEarly
	}

	ci := &model.CheckIn{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		ScannedBy:      staffID,
		Method:         method,
		Notes:          notes,
	}
	if err := s.checkins.Record(ctx, ci); err != nil {
		return nil, err
	}

	res := &CheckInResult{
		RegistrationID: reg.ID,
		EventID:        ev.ID,
		EventTitle:     ev.Title,
		Method:         method,
		CheckedInAt:    ci.ScannedAt,
		Notes:          notes,
	}
	if u, err := s.users.GetByID(ctx, reg.UserID); err == nil {
		res.AttendeeName = u.Name
		res.AttendeeEmail = u.Email
	}
	return res, nil
}

// authorize loads the event and checks that the caller owns it or is an
// administrator.  Gate history and stats expose attendee identities, so
// they follow the same ownership rule as the roster.
func (s *CheckInService) authorize(ctx context.Context, eventID, callerID uint64, callerRole string) error {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if ev.OrganizerID != callerID && callerRole != model.RoleAdmin {
		return ErrNotOwner
	}
	return nil
}

// History lists the check-ins for an event the caller owns, newest first.
func (s *CheckInService) History(ctx context.Context, eventID, callerID uint64, callerRole string) ([]repository.CheckInDetail, error) {
	if err := s.authorize(ctx, eventID, callerID, callerRole); err != nil {
		return nil, err
	}
	return s.checkins.ListByEvent(ctx, eventID)
}

// Recent returns the latest check-ins for an event the caller owns,
// capped at limit. Gate dashboards poll this for the live arrivals feed.
func (s *CheckInService) Recent(ctx context.Context, eventID, callerID uint64, callerRole string, limit int) ([]repository.CheckInDetail, error) {
	if err := s.authorize(ctx, eventID, callerID, callerRole); err != nil {
		return nil, err
	}
	return s.checkins.Recent(ctx, eventID, limit)
}

// Stats returns the gate dashboard for an event the caller owns: totals
// by method plus today's hourly arrival histogram.
func (s *CheckInService) Stats(ctx context.Context, eventID, callerID uint64, callerRole string) (*repository.CheckInStats, error) {
	if err := s.authorize(ctx, eventID, callerID, callerRole); err != nil {
		return nil, err
	}
	return s.checkins.StatsByEvent(ctx, eventID)
}
