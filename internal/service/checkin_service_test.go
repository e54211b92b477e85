package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/repository"
)

func newCheckInSvc(st *memStore) *CheckInService {
	return NewCheckInService(memEvents{st}, memRegs{st}, memCheckIns{st}, memUsers{st})
}

// newCheckInSvcAt pins the service clock, keeping window checks stable
// no matter when the test actually runs.
func newCheckInSvcAt(st *memStore, at time.Time) *CheckInService {
	svc := newCheckInSvc(st)
	svc.now = func() time.Time { return at }
	return svc
}

// seedTicket registers an attendee on a fresh event starting at startsAt
// and returns the staff id, registration and its event id.
func seedTicket(t *testing.T, st *memStore, startsAt time.Time) (staff uint64, reg *model.Registration, evID uint64) {
	t.Helper()
	staff = st.addUser("Staff", "staff@example.com", model.RoleOrganizer)
	uid := st.addUser("Ada", "ada@example.com", model.RoleAttendee)
	evID = st.addEvent(staff, 10, startsAt)

	regSvc := newRegSvc(st)
	var err error
	reg, err = regSvc.Register(context.Background(), evID, uid)
	if err != nil {
		t.Fatalf("seed Register: %v", err)
	}
	return staff, reg, evID
}

func TestScanAdmitsOnce(t *testing.T) {
	st := newMemStore()
	startsAt := time.Now().UTC().Add(time.Hour)
	staff, reg, evID := seedTicket(t, st, startsAt)
	svc := newCheckInSvcAt(st, startsAt)

	res, err := svc.Scan(context.Background(), reg.TicketCode, staff, "gate A")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.AttendeeName != "Ada" || res.EventID != evID {
		t.Errorf("result mismatch: %+v", res)
	}
	if res.Method != model.CheckInMethodQR {
		t.Errorf("method: got %q, want %q", res.Method, model.CheckInMethodQR)
	}
	if res.CheckedInAt.IsZero() {
		t.Error("CheckedInAt not populated")
	}

	firstAt := mustGetReg(t, st, reg.ID).CheckedInAt

	if _, err := svc.Scan(context.Background(), reg.TicketCode, staff, ""); !errors.Is(err, repository.ErrAlreadyCheckedIn) {
		t.Fatalf("second Scan: got %v, want ErrAlreadyCheckedIn", err)
	}

	// The rejected re-scan must leave no trace: still one check-in row
	// and the original timestamp.
	if n := countCheckIns(st, evID); n != 1 {
		t.Errorf("check-in rows after re-scan: got %d, want 1", n)
	}
	secondAt := mustGetReg(t, st, reg.ID).CheckedInAt
	if firstAt == nil || secondAt == nil || !secondAt.Equal(*firstAt) {
		t.Errorf("checked_in_at moved on re-scan: first %v, second %v", firstAt, secondAt)
	}
}

func mustGetReg(t *testing.T, st *memStore, id uint64) *model.Registration {
	t.Helper()
	reg, err := (memRegs{st}).GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return reg
}

func countCheckIns(st *memStore, eventID uint64) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for _, ci := range st.checkins {
		if ci.EventID == eventID {
			n++
		}
	}
	return n
}

func TestConcurrentScansHaveOneWinner(t *testing.T) {
	const scanners = 10

	st := newMemStore()
	startsAt := time.Now().UTC().Add(time.Hour)
	staff, reg, _ := seedTicket(t, st, startsAt)
	svc := newCheckInSvcAt(st, startsAt)

	var wg sync.WaitGroup
	errs := make([]error, scanners)
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Scan(context.Background(), reg.TicketCode, staff, "")
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, repository.ErrAlreadyCheckedIn) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("winners: got %d, want exactly 1", ok)
	}
}

func TestScanRejectsBadTickets(t *testing.T) {
	st := newMemStore()
	startsAt := time.Now().UTC().Add(time.Hour)
	staff, reg, _ := seedTicket(t, st, startsAt)
	svc := newCheckInSvcAt(st, startsAt)

	// Garbage from the camera never reaches the store.
	if _, err := svc.Scan(context.Background(), "not-a-ticket", staff, ""); !errors.Is(err, repository.ErrTicketNotFound) {
		t.Errorf("malformed code: got %v, want ErrTicketNotFound", err)
	}
	// Well-formed but unknown.
	if _, err := svc.Scan(context.Background(), "3f2a9d54-6f3b-4a8e-9f00-000000000000", staff, ""); !errors.Is(err, repository.ErrTicketNotFound) {
		t.Errorf("unknown code: got %v, want ErrTicketNotFound", err)
	}

	// Cancelled ticket.
	if err := (memRegs{st}).Cancel(context.Background(), reg.ID); err != nil {
		t.Fatalf("cancel registration: %v", err)
	}
	if _, err := svc.Scan(context.Background(), reg.TicketCode, staff, ""); !errors.Is(err, repository.ErrTicketCancelled) {
		t.Errorf("cancelled ticket: got %v, want ErrTicketCancelled", err)
	}
}

func TestScanWindowOpensOnEventDay(t *testing.T) {
	st := newMemStore()
	startsAt := time.Now().UTC().Add(72 * time.Hour)
	staff, reg, _ := seedTicket(t, st, startsAt)
	svc := newCheckInSvc(st)

	y, m, d := startsAt.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	svc.now = func() time.Time { return dayStart.Add(-36 * time.Hour) }
	if _, err := svc.Scan(context.Background(), reg.TicketCode, staff, ""); !errors.Is(err, ErrTooEarly) {
		t.Fatalf("day before: got %v, want ErrTooEarly", err)
	}

	// Early morning on the event day is fine even though the event
	// starts later in the day.
	svc.now = func() time.Time { return dayStart.Add(30 * time.Minute) }
	if _, err := svc.Scan(context.Background(), reg.TicketCode, staff, ""); err != nil {
		t.Fatalf("same-day early scan: %v", err)
	}
}

func TestTicketStateBeatsWindow(t *testing.T) {
	st := newMemStore()
	startsAt := time.Now().UTC().Add(72 * time.Hour)
	staff, reg, evID := seedTicket(t, st, startsAt)

	// Well before the event day, so the window check would fire if it
	// came first.
	svc := newCheckInSvcAt(st, startsAt.Add(-48*time.Hour))

	if err := (memRegs{st}).Cancel(context.Background(), reg.ID); err != nil {
		t.Fatalf("cancel registration: %v", err)
	}
	if _, err := svc.Scan(context.Background(), reg.TicketCode, staff, ""); !errors.Is(err, repository.ErrTicketCancelled) {
		t.Errorf("cancelled ticket before event day: got %v, want ErrTicketCancelled", err)
	}

	// Same precedence for an already-used ticket.
	uid := st.addUser("Bob", "bob@example.com", model.RoleAttendee)
	reg2, err := newRegSvc(st).Register(context.Background(), evID, uid)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := newCheckInSvcAt(st, startsAt).Scan(context.Background(), reg2.TicketCode, staff, ""); err != nil {
		t.Fatalf("Scan on event day: %v", err)
	}
	if _, err := svc.Scan(context.Background(), reg2.TicketCode, staff, ""); !errors.Is(err, repository.ErrAlreadyCheckedIn) {
		t.Errorf("used ticket before event day: got %v, want ErrAlreadyCheckedIn", err)
	}
}

func TestManualCheckIn(t *testing.T) {
	st := newMemStore()
	startsAt := time.Now().UTC().Add(time.Hour)
	staff, reg, _ := seedTicket(t, st, startsAt)
	svc := newCheckInSvcAt(st, startsAt)

	res, err := svc.Manual(context.Background(), reg.ID, staff, "lost phone")
	if err != nil {
		t.Fatalf("Manual: %v", err)
	}
	if res.Method != model.CheckInMethodManual {
		t.Errorf("method: got %q, want %q", res.Method, model.CheckInMethodManual)
	}
	if res.Notes != "lost phone" {
		t.Errorf("notes: got %q", res.Notes)
	}

	if _, err := svc.Manual(context.Background(), 42424, staff, ""); !errors.Is(err, repository.ErrRegistrationNotFound) {
		t.Errorf("unknown registration: got %v, want ErrRegistrationNotFound", err)
	}
}

func TestCancelAfterCheckInRejected(t *testing.T) {
	st := newMemStore()
	startsAt := time.Now().UTC().Add(time.Hour)
	staff, reg, _ := seedTicket(t, st, startsAt)
	svc := newCheckInSvcAt(st, startsAt)

	if _, err := svc.Scan(context.Background(), reg.TicketCode, staff, ""); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if err := (memRegs{st}).Cancel(context.Background(), reg.ID); !errors.Is(err, repository.ErrAlreadyCheckedIn) {
		t.Fatalf("cancel after check-in: got %v, want ErrAlreadyCheckedIn", err)
	}
}

func TestRecentFeedCapsAndOwnership(t *testing.T) {
	st := newMemStore()
	startsAt := time.Now().UTC().Add(time.Hour)
	staff, reg, evID := seedTicket(t, st, startsAt)
	other := st.addUser("Other", "other@example.com", model.RoleOrganizer)
	svc := newCheckInSvcAt(st, startsAt)

	regSvc := newRegSvc(st)
	tickets := []string{reg.TicketCode}
	for i := 0; i < 2; i++ {
		uid := st.addUser("User", "u@example.com", model.RoleAttendee)
		r, err := regSvc.Register(context.Background(), evID, uid)
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		tickets = append(tickets, r.TicketCode)
	}
	for _, code := range tickets {
		if _, err := svc.Scan(context.Background(), code, staff, ""); err != nil {
			t.Fatalf("Scan: %v", err)
		}
	}

	if _, err := svc.Recent(context.Background(), evID, other, model.RoleOrganizer, 10); !errors.Is(err, ErrNotOwner) {
		t.Errorf("foreign Recent: got %v, want ErrNotOwner", err)
	}
	items, err := svc.Recent(context.Background(), evID, staff, model.RoleOrganizer, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("limited feed: got %d items, want 2", len(items))
	}
	all, err := svc.Recent(context.Background(), evID, staff, model.RoleOrganizer, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("full feed: got %d items, want 3", len(all))
	}
}

func TestHistoryAndStatsRequireOwnership(t *testing.T) {
	st := newMemStore()
	startsAt := time.Now().UTC().Add(time.Hour)
	staff, reg, evID := seedTicket(t, st, startsAt)
	other := st.addUser("Other", "other@example.com", model.RoleOrganizer)
	svc := newCheckInSvcAt(st, startsAt)

	if _, err := svc.Scan(context.Background(), reg.TicketCode, staff, ""); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if _, err := svc.History(context.Background(), evID, other, model.RoleOrganizer); !errors.Is(err, ErrNotOwner) {
		t.Errorf("foreign History: got %v, want ErrNotOwner", err)
	}
	items, err := svc.History(context.Background(), evID, staff, model.RoleOrganizer)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(items) != 1 || items[0].RegistrationID != reg.ID {
		t.Fatalf("history items: %+v", items)
	}

	stats, err := svc.Stats(context.Background(), evID, staff, model.RoleOrganizer)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 1 || stats.QR != 1 || stats.Manual != 0 {
		t.Errorf("stats: %+v", stats)
	}
}
