package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/queue"
	"github.com/iliyamo/event-registration/internal/repository"
	qpub "github.com/iliyamo/event-registration/internal/service/queue_publisher"
	"github.com/iliyamo/event-registration/internal/ticket"
)

// RegistrationService owns the attendee-facing registration lifecycle:
// claiming a seat, issuing the ticket, cancelling, and serving the QR
// image. Capacity is never checked here; the store's conditional seat
// reservation is the only authority, which is what keeps concurrent
// registrations from overselling.
type RegistrationService struct {
	events        EventStore
	registrations RegistrationStore
	users         UserStore
	now           func() time.Time

	// publish sends the confirmation event to the broker. Failures are
	// logged and swallowed: a registration must never fail because the
	// notification pipeline is down.
	publish func(ctx context.Context, ev queue.RegistrationConfirmedEvent) error
}

// NewRegistrationService constructs a RegistrationService backed by the
// given stores, publishing confirmations to RabbitMQ.
func NewRegistrationService(events EventStore, registrations RegistrationStore, users UserStore) *RegistrationService {
	return &RegistrationService{
		events:        events,
		registrations: registrations,
		users:         users,
		now:           time.Now,
		publish:       qpub.PublishRegistrationConfirmed,
	}
}

// Register claims a seat on the event for userID and issues a ticket.
//
// The order of operations is load-bearing: the seat is reserved with a
// conditional increment first, then the registration row is inserted.
// If the insert fails for any reason (duplicate registration, ticket
// code collision that survives the retry, plain database error) the
// seat is released again so capacity accounting stays exact.
func (s *RegistrationService) Register(ctx context.Context, eventID, userID uint64) (*model.Registration, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.Status != model.EventStatusActive {
		return nil, ErrEventNotActive
	}
	if !s.now().UTC().Before(ev.StartsAt) {
		return nil, ErrEventPast
	}

	if err := s.events.TryReserveSeat(ctx, eventID); err != nil {
		return nil, err
	}

	reg := &model.Registration{
		EventID:    eventID,
		UserID:     userID,
		TicketCode: ticket.NewCode(),
		Status:     model.RegistrationConfirmed,
	}
	err = s.registrations.Create(ctx, reg)
	if errors.Is(err, repository.ErrDuplicateTicketCode) {
		// One retry with a fresh code covers the only realistic collision
		// scenario; a second collision means something is broken.
		reg.TicketCode = ticket.NewCode()
		err = s.registrations.Create(ctx, reg)
	}
	if err != nil {
		if relErr := s.events.ReleaseSeat(ctx, eventID); relErr != nil {
			log.Printf("registration: release seat after failed insert on event %d: %v", eventID, relErr)
		}
		return nil, err
	}

	s.sendConfirmation(ctx, ev, reg)
	return reg, nil
}

// sendConfirmation publishes the confirmation message on a best-effort
// basis. Lookups and publishing errors are logged, never surfaced.
func (s *RegistrationService) sendConfirmation(ctx context.Context, ev *model.Event, reg *model.Registration) {
	payload := queue.RegistrationConfirmedEvent{
		RegistrationID: reg.ID,
		UserID:         reg.UserID,
		EventID:        ev.ID,
		EventTitle:     ev.Title,
		Location:       ev.Location,
		StartsAt:       ev.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:         ev.EndsAt.UTC().Format(time.RFC3339),
		TicketCode:     reg.TicketCode,
		RegisteredAt:   reg.RegisteredAt.UTC().Format(time.RFC3339),
	}
	if u, err := s.users.GetByID(ctx, reg.UserID); err == nil {
		payload.UserEmail = u.Email
		payload.UserName = u.Name
	} else {
		log.Printf("registration: lookup user %d for confirmation: %v", reg.UserID, err)
	}
	if err := s.publish(ctx, payload); err != nil {
		log.Printf("registration: publish confirmation for registration %d: %v", reg.ID, err)
	}
}

// get loads a registration and checks that the caller owns it or is an
// administrator.
func (s *RegistrationService) get(ctx context.Context, id, callerID uint64, callerRole string) (*model.Registration, error) {
	reg, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.UserID != callerID && callerRole != model.RoleAdmin {
		return nil, ErrNotOwner
	}
	return reg, nil
}

// Get returns a registration visible to the caller.
func (s *RegistrationService) Get(ctx context.Context, id, callerID uint64, callerRole string) (*model.Registration, error) {
	return s.get(ctx, id, callerID, callerRole)
}

// ListMine returns the caller's registrations, newest first, with event
// details joined in.
func (s *RegistrationService) ListMine(ctx context.Context, userID uint64) ([]repository.RegistrationDetail, error) {
	return s.registrations.ListByUser(ctx, userID)
}

// Cancel cancels the caller's registration and releases the seat. A
// checked-in or already-cancelled registration is rejected by the store.
func (s *RegistrationService) Cancel(ctx context.Context, id, callerID uint64, callerRole string) error {
	if _, err := s.get(ctx, id, callerID, callerRole); err != nil {
		return err
	}
	return s.registrations.Cancel(ctx, id)
}

// TicketPNG renders the QR image for the caller's ticket. The payload is
// the bare ticket code.
func (s *RegistrationService) TicketPNG(ctx context.Context, id, callerID uint64, callerRole string, size int) ([]byte, error) {
	reg, err := s.get(ctx, id, callerID, callerRole)
	if err != nil {
		return nil, err
	}
	if reg.Status == model.RegistrationCancelled {
		return nil, repository.ErrTicketCancelled
	}
	return ticket.QRCodePNG(reg.TicketCode, size)
}
