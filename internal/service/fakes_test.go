package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/repository"
)

// memStore is an in-memory implementation of the store interfaces that
// mirrors the conditional-update guarantees of the MySQL layer: seat
// reservation is a compare-and-increment under the mutex, registrations
// are unique per (event, user) while live, and the confirmed -> checked_in
// transition can only succeed once.  That makes it a faithful substrate
// for exercising the services under real goroutine concurrency.
type memStore struct {
	mu sync.Mutex

	events    map[uint64]*model.Event
	regs      map[uint64]*model.Registration
	regByCode map[string]uint64
	checkins  map[uint64]*model.CheckIn // keyed by registration id
	users     map[uint64]model.User

	nextEventID   uint64
	nextRegID     uint64
	nextCheckInID uint64

	// failNextCode simulates a ticket code collision on the next insert.
	failNextCode bool
}

func newMemStore() *memStore {
	return &memStore{
		events:    make(map[uint64]*model.Event),
		regs:      make(map[uint64]*model.Registration),
		regByCode: make(map[string]uint64),
		checkins:  make(map[uint64]*model.CheckIn),
		users:     make(map[uint64]model.User),
	}
}

// ----- seed helpers -----

func (m *memStore) addUser(name, email, role string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uint64(len(m.users) + 1)
	m.users[id] = model.User{ID: id, Name: name, Email: email, Role: role, IsActive: true}
	return id
}

func (m *memStore) addEvent(organizerID uint64, capacity uint32, startsAt time.Time) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextEventID++
	m.events[m.nextEventID] = &model.Event{
		ID:          m.nextEventID,
		OrganizerID: organizerID,
		Title:       "Event",
		Location:    "Hall 1",
		StartsAt:    startsAt,
		EndsAt:      startsAt.Add(2 * time.Hour),
		Capacity:    capacity,
		Status:      model.EventStatusActive,
	}
	return m.nextEventID
}

func (m *memStore) registeredCount(eventID uint64) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[eventID].RegisteredCount
}

// ----- EventStore -----

func (m *memStore) Create(ctx context.Context, ev *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextEventID++
	ev.ID = m.nextEventID
	ev.CreatedAt = time.Now().UTC()
	ev.UpdatedAt = ev.CreatedAt
	cp := *ev
	m.events[ev.ID] = &cp
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *memStore) List(ctx context.Context, f repository.EventFilter) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Event, 0, len(m.events))
	for _, ev := range m.events {
		if f.Status != "" && ev.Status != f.Status {
			continue
		}
		out = append(out, *ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (m *memStore) ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Event, 0)
	for _, ev := range m.events {
		if ev.OrganizerID == organizerID {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (m *memStore) Update(ctx context.Context, ev *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.events[ev.ID]
	if !ok {
		return repository.ErrEventNotFound
	}
	if ev.Capacity < cur.RegisteredCount {
		return repository.ErrCapacityBelowRegistered
	}
	cp := *ev
	cp.RegisteredCount = cur.RegisteredCount
	m.events[ev.ID] = &cp
	return nil
}

func (m *memStore) Cancel(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return repository.ErrEventNotFound
	}
	ev.Status = model.EventStatusCancelled
	return nil
}

func (m *memStore) TryReserveSeat(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return repository.ErrEventNotFound
	}
	if ev.RegisteredCount >= ev.Capacity {
		return repository.ErrAtCapacity
	}
	ev.RegisteredCount++
	return nil
}

func (m *memStore) ReleaseSeat(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return repository.ErrEventNotFound
	}
	if ev.RegisteredCount > 0 {
		ev.RegisteredCount--
	}
	return nil
}

// ----- RegistrationStore -----

func (m *memStore) CreateRegistration(ctx context.Context, reg *model.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNextCode {
		m.failNextCode = false
		return repository.ErrDuplicateTicketCode
	}
	for _, r := range m.regs {
		if r.EventID == reg.EventID && r.UserID == reg.UserID && r.Status != model.RegistrationCancelled {
			return repository.ErrAlreadyRegistered
		}
	}
	if _, dup := m.regByCode[reg.TicketCode]; dup {
		return repository.ErrDuplicateTicketCode
	}
	m.nextRegID++
	reg.ID = m.nextRegID
	reg.RegisteredAt = time.Now().UTC()
	cp := *reg
	m.regs[reg.ID] = &cp
	m.regByCode[reg.TicketCode] = reg.ID
	return nil
}

func (m *memStore) GetRegistration(ctx context.Context, id uint64) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[id]
	if !ok {
		return nil, repository.ErrRegistrationNotFound
	}
	cp := *reg
	return &cp, nil
}

func (m *memStore) GetByTicketCode(ctx context.Context, code string) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.regByCode[code]
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	cp := *m.regs[id]
	return &cp, nil
}

func (m *memStore) CancelRegistration(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[id]
	if !ok {
		return repository.ErrRegistrationNotFound
	}
	switch reg.Status {
	case model.RegistrationCheckedIn:
		return repository.ErrAlreadyCheckedIn
	case model.RegistrationCancelled:
		return repository.ErrAlreadyCancelled
	}
	now := time.Now().UTC()
	reg.Status = model.RegistrationCancelled
	reg.CancelledAt = &now
	if ev, ok := m.events[reg.EventID]; ok && ev.RegisteredCount > 0 {
		ev.RegisteredCount--
	}
	return nil
}

func (m *memStore) ListByUser(ctx context.Context, userID uint64) ([]repository.RegistrationDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.RegistrationDetail, 0)
	for _, r := range m.regs {
		if r.UserID == userID && r.Status != model.RegistrationCancelled {
			out = append(out, m.detailLocked(r))
		}
	}
	return out, nil
}

func (m *memStore) ListByEvent(ctx context.Context, eventID uint64) ([]repository.RegistrationDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.RegistrationDetail, 0)
	for _, r := range m.regs {
		if r.EventID == eventID && r.Status != model.RegistrationCancelled {
			out = append(out, m.detailLocked(r))
		}
	}
	return out, nil
}

func (m *memStore) detailLocked(r *model.Registration) repository.RegistrationDetail {
	d := repository.RegistrationDetail{
		ID:           r.ID,
		EventID:      r.EventID,
		UserID:       r.UserID,
		TicketCode:   r.TicketCode,
		Status:       r.Status,
		RegisteredAt: r.RegisteredAt,
		CheckedInAt:  r.CheckedInAt,
	}
	if ev, ok := m.events[r.EventID]; ok {
		d.EventTitle = ev.Title
		d.EventLocation = ev.Location
		d.EventStartsAt = ev.StartsAt
	}
	if u, ok := m.users[r.UserID]; ok {
		d.UserName = u.Name
		d.UserEmail = u.Email
	}
	return d
}

func (m *memStore) CountByStatus(ctx context.Context, eventID uint64) (repository.StatusCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c repository.StatusCounts
	for _, r := range m.regs {
		if r.EventID != eventID {
			continue
		}
		switch r.Status {
		case model.RegistrationConfirmed:
			c.Confirmed++
		case model.RegistrationCheckedIn:
			c.CheckedIn++
		case model.RegistrationCancelled:
			c.Cancelled++
		}
		c.Total++
	}
	return c, nil
}

// ----- CheckInStore -----

func (m *memStore) Record(ctx context.Context, ci *model.CheckIn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[ci.RegistrationID]
	if !ok {
		return repository.ErrRegistrationNotFound
	}
	switch reg.Status {
	case model.RegistrationCancelled:
		return repository.ErrTicketCancelled
	case model.RegistrationCheckedIn:
		return repository.ErrAlreadyCheckedIn
	}
	if _, dup := m.checkins[ci.RegistrationID]; dup {
		return repository.ErrAlreadyCheckedIn
	}
	now := time.Now().UTC()
	reg.Status = model.RegistrationCheckedIn
	reg.CheckedInAt = &now
	m.nextCheckInID++
	ci.ID = m.nextCheckInID
	ci.ScannedAt = now
	cp := *ci
	m.checkins[ci.RegistrationID] = &cp
	return nil
}

func (m *memStore) ListCheckIns(ctx context.Context, eventID uint64) ([]repository.CheckInDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.CheckInDetail, 0)
	for _, ci := range m.checkins {
		if ci.EventID != eventID {
			continue
		}
		d := repository.CheckInDetail{
			ID:             ci.ID,
			RegistrationID: ci.RegistrationID,
			EventID:        ci.EventID,
			ScannedAt:      ci.ScannedAt,
			Method:         ci.Method,
			Notes:          ci.Notes,
		}
		if reg, ok := m.regs[ci.RegistrationID]; ok {
			d.TicketCode = reg.TicketCode
			if u, ok := m.users[reg.UserID]; ok {
				d.AttendeeName = u.Name
				d.AttendeeEmail = u.Email
			}
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScannedAt.After(out[j].ScannedAt) })
	return out, nil
}

func (m *memStore) Recent(ctx context.Context, eventID uint64, limit int) ([]repository.CheckInDetail, error) {
	all, err := m.ListCheckIns(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *memStore) StatsByEvent(ctx context.Context, eventID uint64) (*repository.CheckInStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &repository.CheckInStats{ByHour: []repository.HourCount{}}
	for _, ci := range m.checkins {
		if ci.EventID != eventID {
			continue
		}
		stats.Total++
		if ci.Method == model.CheckInMethodQR {
			stats.QR++
		} else {
			stats.Manual++
		}
	}
	return stats, nil
}

// ----- UserStore -----

func (m *memStore) GetUser(ctx context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, repository.ErrForbidden
	}
	return u, nil
}

// Adapter views: one memStore backs all four interfaces, but the method
// sets collide on names, so thin wrappers pick the right receiver.

type memEvents struct{ *memStore }

type memRegs struct{ *memStore }

func (a memRegs) Create(ctx context.Context, reg *model.Registration) error {
	return a.CreateRegistration(ctx, reg)
}
func (a memRegs) GetByID(ctx context.Context, id uint64) (*model.Registration, error) {
	return a.GetRegistration(ctx, id)
}
func (a memRegs) Cancel(ctx context.Context, id uint64) error {
	return a.CancelRegistration(ctx, id)
}

type memCheckIns struct{ *memStore }

func (a memCheckIns) ListByEvent(ctx context.Context, eventID uint64) ([]repository.CheckInDetail, error) {
	return a.ListCheckIns(ctx, eventID)
}

type memUsers struct{ *memStore }

func (a memUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return a.GetUser(ctx, id)
}
