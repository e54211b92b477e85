package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/repository"
)

// EventService owns the organizer-facing event lifecycle: creation,
// updates, cancellation, and the per-event statistics dashboard.
// Ownership is enforced here so the handlers stay thin: an organizer may
// only touch their own events, while administrators may touch any.
type EventService struct {
	events        EventStore
	registrations RegistrationStore
	now           func() time.Time
}

// NewEventService constructs an EventService backed by the given stores.
func NewEventService(events EventStore, registrations RegistrationStore) *EventService {
	return &EventService{events: events, registrations: registrations, now: time.Now}
}

// EventInput carries the organizer-supplied fields for creating or
// updating an event.
type EventInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Category    string    `json:"category"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Capacity    uint32    `json:"capacity"`
}

func (in *EventInput) validate(now time.Time) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1", ErrValidation)
	}
	if in.StartsAt.IsZero() || in.EndsAt.IsZero() {
		return fmt.Errorf("%w: starts_at and ends_at are required", ErrValidation)
	}
	if !in.EndsAt.After(in.StartsAt) {
		return fmt.Errorf("%w: ends_at must be after starts_at", ErrValidation)
	}
	if in.StartsAt.Before(now) {
		return fmt.Errorf("%w: starts_at must be in the future", ErrValidation)
	}
	return nil
}

// Create validates the input and persists a new ACTIVE event owned by
// organizerID.
func (s *EventService) Create(ctx context.Context, organizerID uint64, in EventInput) (*model.Event, error) {
	if err := in.validate(s.now().UTC()); err != nil {
		return nil, err
	}
	ev := &model.Event{
		OrganizerID: organizerID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Location:    in.Location,
		Category:    in.Category,
		StartsAt:    in.StartsAt.UTC(),
		EndsAt:      in.EndsAt.UTC(),
		Capacity:    in.Capacity,
		Status:      model.EventStatusActive,
	}
	if err := s.events.Create(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Get returns a single event by id.
func (s *EventService) Get(ctx context.Context, id uint64) (*model.Event, error) {
	return s.events.GetByID(ctx, id)
}

// Browse lists events matching the public catalogue filter.
func (s *EventService) Browse(ctx context.Context, f repository.EventFilter) ([]model.Event, error) {
	return s.events.List(ctx, f)
}

// ListMine lists the events owned by the given organizer.
func (s *EventService) ListMine(ctx context.Context, organizerID uint64) ([]model.Event, error) {
	return s.events.ListByOrganizer(ctx, organizerID)
}

// authorize loads the event and checks that the caller owns it or is an
// administrator.
func (s *EventService) authorize(ctx context.Context, eventID, callerID uint64, callerRole string) (*model.Event, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.OrganizerID != callerID && callerRole != model.RoleAdmin {
		return nil, ErrNotOwner
	}
	return ev, nil
}

// Update applies the organizer's changes to an event they own. Capacity
// may be raised freely but never lowered below the current registration
// count; the store enforces that atomically.
func (s *EventService) Update(ctx context.Context, eventID, callerID uint64, callerRole string, in EventInput) (*model.Event, error) {
	ev, err := s.authorize(ctx, eventID, callerID, callerRole)
	if err != nil {
		return nil, err
	}
	// Once the doors have opened the event is history; editing it would
	// rewrite records check-ins already depend on.
	if !s.now().UTC().Before(ev.StartsAt) {
		return nil, ErrEventPast
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.Capacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be at least 1", ErrValidation)
	}
	if !in.EndsAt.After(in.StartsAt) {
		return nil, fmt.Errorf("%w: ends_at must be after starts_at", ErrValidation)
	}
	ev.Title = strings.TrimSpace(in.Title)
	ev.Description = in.Description
	ev.Location = in.Location
	ev.Category = in.Category
	ev.StartsAt = in.StartsAt.UTC()
	ev.EndsAt = in.EndsAt.UTC()
	ev.Capacity = in.Capacity
	if err := s.events.Update(ctx, ev); err != nil {
		return nil, err
	}
	return s.events.GetByID(ctx, eventID)
}

// Cancel marks an event CANCELLED. Registrations and their audit trail
// are kept; the event simply stops accepting new ones and disappears
// from the default catalogue.
func (s *EventService) Cancel(ctx context.Context, eventID, callerID uint64, callerRole string) error {
	if _, err := s.authorize(ctx, eventID, callerID, callerRole); err != nil {
		return err
	}
	return s.events.Cancel(ctx, eventID)
}

// Attendees lists the non-cancelled registrations for an event the
// caller owns.
func (s *EventService) Attendees(ctx context.Context, eventID, callerID uint64, callerRole string) ([]repository.RegistrationDetail, error) {
	if _, err := s.authorize(ctx, eventID, callerID, callerRole); err != nil {
		return nil, err
	}
	return s.registrations.ListByEvent(ctx, eventID)
}

// EventStats is the per-event dashboard payload.
type EventStats struct {
	EventID             uint64  `json:"event_id"`
	Title               string  `json:"title"`
	Capacity            uint32  `json:"capacity"`
	TotalRegistrations  uint64  `json:"total_registrations"`
	Confirmed           uint64  `json:"confirmed"`
	CheckedIn           uint64  `json:"checked_in"`
	Cancelled           uint64  `json:"cancelled"`
	ActiveRegistrations uint64  `json:"active_registrations"`
	AvailableSpots      uint64  `json:"available_spots"`
	CheckInRate         float64 `json:"check_in_rate"`
}

// Stats assembles the registration dashboard for an event the caller
// owns. Active registrations are everything not cancelled; the check-in
// rate is checked-in over active, as a percentage rounded to two
// decimals, or zero when nobody is registered.
func (s *EventService) Stats(ctx context.Context, eventID, callerID uint64, callerRole string) (*EventStats, error) {
	ev, err := s.authorize(ctx, eventID, callerID, callerRole)
	if err != nil {
		return nil, err
	}
	counts, err := s.registrations.CountByStatus(ctx, eventID)
	if err != nil {
		return nil, err
	}
	active := counts.Total - counts.Cancelled
	var available uint64
	if uint64(ev.Capacity) > active {
		available = uint64(ev.Capacity) - active
	}
	var rate float64
	if active > 0 {
		rate = math.Round(float64(counts.CheckedIn)/float64(active)*100*100) / 100
	}
	return &EventStats{
		EventID:             ev.ID,
		Title:               ev.Title,
		Capacity:            ev.Capacity,
		TotalRegistrations:  counts.Total,
		Confirmed:           counts.Confirmed,
		CheckedIn:           counts.CheckedIn,
		Cancelled:           counts.Cancelled,
		ActiveRegistrations: active,
		AvailableSpots:      available,
		CheckInRate:         rate,
	}, nil
}
