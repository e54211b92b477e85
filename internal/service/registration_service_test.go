package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/queue"
	"github.com/iliyamo/event-registration/internal/repository"
)

// newRegSvc wires a RegistrationService to a fresh memStore with the
// broker publish stubbed out.
func newRegSvc(st *memStore) *RegistrationService {
	svc := NewRegistrationService(memEvents{st}, memRegs{st}, memUsers{st})
	svc.publish = func(ctx context.Context, ev queue.RegistrationConfirmedEvent) error { return nil }
	return svc
}

func TestRegisterIssuesTicket(t *testing.T) {
	st := newMemStore()
	org := st.addUser("Org", "org@example.com", model.RoleOrganizer)
	uid := st.addUser("Ada", "ada@example.com", model.RoleAttendee)
	evID := st.addEvent(org, 10, time.Now().UTC().Add(24*time.Hour))

	var published []queue.RegistrationConfirmedEvent
	svc := newRegSvc(st)
	svc.publish = func(ctx context.Context, ev queue.RegistrationConfirmedEvent) error {
		published = append(published, ev)
		return nil
	}

	reg, err := svc.Register(context.Background(), evID, uid)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.ID == 0 || reg.TicketCode == "" {
		t.Fatalf("registration not fully populated: %+v", reg)
	}
	if reg.Status != model.RegistrationConfirmed {
		t.Errorf("status: got %q, want %q", reg.Status, model.RegistrationConfirmed)
	}
	if got := st.registeredCount(evID); got != 1 {
		t.Errorf("registered count: got %d, want 1", got)
	}
	if len(published) != 1 {
		t.Fatalf("published events: got %d, want 1", len(published))
	}
	if published[0].TicketCode != reg.TicketCode || published[0].UserEmail != "ada@example.com" {
		t.Errorf("published payload mismatch: %+v", published[0])
	}
}

func TestRegisterCapacityNeverExceeded(t *testing.T) {
	const capacity = 3
	const attendees = 20

	st := newMemStore()
	org := st.addUser("Org", "org@example.com", model.RoleOrganizer)
	evID := st.addEvent(org, capacity, time.Now().UTC().Add(24*time.Hour))
	svc := newRegSvc(st)

	uids := make([]uint64, attendees)
	for i := range uids {
		uids[i] = st.addUser("User", "u@example.com", model.RoleAttendee)
	}

	var wg sync.WaitGroup
	errs := make([]error, attendees)
	for i := 0; i < attendees; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(context.Background(), evID, uids[i])
		}(i)
	}
	wg.Wait()

	var ok, full int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, repository.ErrAtCapacity):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != capacity || full != attendees-capacity {
		t.Fatalf("got %d successes and %d capacity rejections, want %d and %d",
			ok, full, capacity, attendees-capacity)
	}
	if got := st.registeredCount(evID); got != capacity {
		t.Errorf("registered count: got %d, want %d", got, capacity)
	}
}

func TestRegisterDuplicateReleasesSeat(t *testing.T) {
	st := newMemStore()
	org := st.addUser("Org", "org@example.com", model.RoleOrganizer)
	uid := st.addUser("Ada", "ada@example.com", model.RoleAttendee)
	evID := st.addEvent(org, 10, time.Now().UTC().Add(24*time.Hour))
	svc := newRegSvc(st)

	if _, err := svc.Register(context.Background(), evID, uid); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := svc.Register(context.Background(), evID, uid); !errors.Is(err, repository.ErrAlreadyRegistered) {
		t.Fatalf("second Register: got %v, want ErrAlreadyRegistered", err)
	}
	// The second attempt reserved a seat before hitting the duplicate; it
	// must have been given back.
	if got := st.registeredCount(evID); got != 1 {
		t.Errorf("registered count after duplicate: got %d, want 1", got)
	}
}

func TestRegisterConcurrentSameUser(t *testing.T) {
	const attempts = 10

	st := newMemStore()
	org := st.addUser("Org", "org@example.com", model.RoleOrganizer)
	uid := st.addUser("Ada", "ada@example.com", model.RoleAttendee)
	evID := st.addEvent(org, 100, time.Now().UTC().Add(24*time.Hour))
	svc := newRegSvc(st)

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(context.Background(), evID, uid)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, repository.ErrAlreadyRegistered) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("successes: got %d, want exactly 1", ok)
	}
	if got := st.registeredCount(evID); got != 1 {
		t.Errorf("registered count: got %d, want 1", got)
	}
}

func TestRegisterTicketCodeCollisionRetries(t *testing.T) {
	st := newMemStore()
	org := st.addUser("Org", "org@example.com", model.RoleOrganizer)
	uid := st.addUser("Ada", "ada@example.com", model.RoleAttendee)
	evID := st.addEvent(org, 10, time.Now().UTC().Add(24*time.Hour))
	st.failNextCode = true
	svc := newRegSvc(st)

	reg, err := svc.Register(context.Background(), evID, uid)
	if err != nil {
		t.Fatalf("Register with one collision: %v", err)
	}
	if reg.TicketCode == "" {
		t.Fatal("expected a ticket code after retry")
	}
	if got := st.registeredCount(evID); got != 1 {
		t.Errorf("registered count: got %d, want 1", got)
	}
}

func TestRegisterClosedEvents(t *testing.T) {
	st := newMemStore()
	org := st.addUser("Org", "org@example.com", model.RoleOrganizer)
	uid := st.addUser("Ada", "ada@example.com", model.RoleAttendee)
	svc := newRegSvc(st)

	started := st.addEvent(org, 10, time.Now().UTC().Add(-time.Hour))
	if _, err := svc.Register(context.Background(), started, uid); !errors.Is(err, ErrEventPast) {
		t.Errorf("started event: got %v, want ErrEventPast", err)
	}

	cancelled := st.addEvent(org, 10, time.Now().UTC().Add(24*time.Hour))
	if err := (memEvents{st}).Cancel(context.Background(), cancelled); err != nil {
		t.Fatalf("cancel event: %v", err)
	}
	if _, err := svc.Register(context.Background(), cancelled, uid); !errors.Is(err, ErrEventNotActive) {
		t.Errorf("cancelled event: got %v, want ErrEventNotActive", err)
	}

	if _, err := svc.Register(context.Background(), 999, uid); !errors.Is(err, repository.ErrEventNotFound) {
		t.Errorf("missing event: got %v, want ErrEventNotFound", err)
	}
}

func TestCancelReleasesSeatForNextAttendee(t *testing.T) {
	st := newMemStore()
	org := st.addUser("Org", "org@example.com", model.RoleOrganizer)
	alice := st.addUser("Alice", "alice@example.com", model.RoleAttendee)
	bob := st.addUser("Bob", "bob@example.com", model.RoleAttendee)
	evID := st.addEvent(org, 1, time.Now().UTC().Add(24*time.Hour))
	svc := newRegSvc(st)

	regA, err := svc.Register(context.Background(), evID, alice)
	if err != nil {
		t.Fatalf("alice Register: %v", err)
	}
	if _, err := svc.Register(context.Background(), evID, bob); !errors.Is(err, repository.ErrAtCapacity) {
		t.Fatalf("bob while full: got %v, want ErrAtCapacity", err)
	}

	if err := svc.Cancel(context.Background(), regA.ID, alice, model.RoleAttendee); err != nil {
		t.Fatalf("alice Cancel: %v", err)
	}
	if _, err := svc.Register(context.Background(), evID, bob); err != nil {
		t.Fatalf("bob after release: %v", err)
	}
	if got := st.registeredCount(evID); got != 1 {
		t.Errorf("registered count: got %d, want 1", got)
	}
}

func TestCancelOwnership(t *testing.T) {
	st := newMemStore()
	org := st.addUser("Org", "org@example.com", model.RoleOrganizer)
	alice := st.addUser("Alice", "alice@example.com", model.RoleAttendee)
	mallory := st.addUser("Mallory", "mallory@example.com", model.RoleAttendee)
	admin := st.addUser("Root", "root@example.com", model.RoleAdmin)
	evID := st.addEvent(org, 5, time.Now().UTC().Add(24*time.Hour))
	svc := newRegSvc(st)

	reg, err := svc.Register(context.Background(), evID, alice)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.Cancel(context.Background(), reg.ID, mallory, model.RoleAttendee); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("stranger Cancel: got %v, want ErrNotOwner", err)
	}
	if err := svc.Cancel(context.Background(), reg.ID, admin, model.RoleAdmin); err != nil {
		t.Fatalf("admin Cancel: %v", err)
	}
	if err := svc.Cancel(context.Background(), reg.ID, alice, model.RoleAttendee); !errors.Is(err, repository.ErrAlreadyCancelled) {
		t.Fatalf("double Cancel: got %v, want ErrAlreadyCancelled", err)
	}
}

func TestTicketPNGForCancelledRegistration(t *testing.T) {
	st := newMemStore()
	org := st.addUser("Org", "org@example.com", model.RoleOrganizer)
	alice := st.addUser("Alice", "alice@example.com", model.RoleAttendee)
	evID := st.addEvent(org, 5, time.Now().UTC().Add(24*time.Hour))
	svc := newRegSvc(st)

	reg, err := svc.Register(context.Background(), evID, alice)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	png, err := svc.TicketPNG(context.Background(), reg.ID, alice, model.RoleAttendee, 0)
	if err != nil {
		t.Fatalf("TicketPNG: %v", err)
	}
	if len(png) == 0 {
		t.Fatal("expected PNG bytes")
	}

	if err := svc.Cancel(context.Background(), reg.ID, alice, model.RoleAttendee); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := svc.TicketPNG(context.Background(), reg.ID, alice, model.RoleAttendee, 0); !errors.Is(err, repository.ErrTicketCancelled) {
		t.Fatalf("TicketPNG after cancel: got %v, want ErrTicketCancelled", err)
	}
}

func TestListMineExcludesCancelled(t *testing.T) {
	st := newMemStore()
	org := st.addUser("Org", "org@example.com", model.RoleOrganizer)
	alice := st.addUser("Alice", "alice@example.com", model.RoleAttendee)
	ev1 := st.addEvent(org, 5, time.Now().UTC().Add(24*time.Hour))
	ev2 := st.addEvent(org, 5, time.Now().UTC().Add(48*time.Hour))
	svc := newRegSvc(st)

	if _, err := svc.Register(context.Background(), ev1, alice); err != nil {
		t.Fatalf("Register ev1: %v", err)
	}
	reg2, err := svc.Register(context.Background(), ev2, alice)
	if err != nil {
		t.Fatalf("Register ev2: %v", err)
	}
	if err := svc.Cancel(context.Background(), reg2.ID, alice, model.RoleAttendee); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	items, err := svc.ListMine(context.Background(), alice)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items: got %d, want 1", len(items))
	}
	if items[0].EventID != ev1 {
		t.Errorf("remaining registration event: got %d, want %d", items[0].EventID, ev1)
	}
}
