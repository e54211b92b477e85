package service

import (
	"context"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/repository"
)

// The services depend on narrow store interfaces rather than the concrete
// repositories. The MySQL repositories satisfy them in production; the
// tests substitute in-memory implementations that honor the same
// conditional-update semantics.

// EventStore is the slice of event persistence the services need.
type EventStore interface {
	Create(ctx context.Context, ev *model.Event) error
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	List(ctx context.Context, f repository.EventFilter) ([]model.Event, error)
	ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error)
	Update(ctx context.Context, ev *model.Event) error
	Cancel(ctx context.Context, id uint64) error
	TryReserveSeat(ctx context.Context, id uint64) error
	ReleaseSeat(ctx context.Context, id uint64) error
}

// RegistrationStore is the slice of registration persistence the services need.
type RegistrationStore interface {
	Create(ctx context.Context, reg *model.Registration) error
	GetByID(ctx context.Context, id uint64) (*model.Registration, error)
	GetByTicketCode(ctx context.Context, code string) (*model.Registration, error)
	Cancel(ctx context.Context, id uint64) error
	ListByUser(ctx context.Context, userID uint64) ([]repository.RegistrationDetail, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]repository.RegistrationDetail, error)
	CountByStatus(ctx context.Context, eventID uint64) (repository.StatusCounts, error)
}

// CheckInStore is the slice of check-in persistence the services need.
type CheckInStore interface {
	Record(ctx context.Context, ci *model.CheckIn) error
	ListByEvent(ctx context.Context, eventID uint64) ([]repository.CheckInDetail, error)
	Recent(ctx context.Context, eventID uint64, limit int) ([]repository.CheckInDetail, error)
	StatsByEvent(ctx context.Context, eventID uint64) (*repository.CheckInStats, error)
}

// UserStore is the read-only user lookup the services need for enriching
// confirmations and check-in results.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}
