package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/iliyamo/event-registration/internal/model"
)

// EventRepo provides persistence for events and owns the capacity ledger.
// The registered_count column is only ever moved through TryReserveSeat
// and ReleaseSeat, each a single conditional UPDATE, so the invariant
// registered_count <= capacity holds no matter how many server processes
// run concurrently.
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Create inserts a new event and populates the generated ID and
// timestamps on the provided struct.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
    const q = `INSERT INTO events
               (organizer_id, title, description, location, category, starts_at, ends_at, capacity, status)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q,
        ev.OrganizerID, ev.Title, ev.Description, ev.Location, ev.Category,
        ev.StartsAt.UTC(), ev.EndsAt.UTC(), ev.Capacity, ev.Status)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    ev.ID = uint64(id)
    // Query back the full row to populate timestamps and defaults.
    return r.db.QueryRowContext(ctx,
        `SELECT registered_count, created_at, updated_at FROM events WHERE id = ?`, ev.ID,
    ).Scan(&ev.RegisteredCount, &ev.CreatedAt, &ev.UpdatedAt)
}

// GetByID returns a single event or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
    const q = `SELECT id, organizer_id, title, description, location, category,
                      starts_at, ends_at, capacity, registered_count, status, created_at, updated_at
               FROM events WHERE id = ?`
    var ev model.Event
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &ev.ID, &ev.OrganizerID, &ev.Title, &ev.Description, &ev.Location, &ev.Category,
        &ev.StartsAt, &ev.EndsAt, &ev.Capacity, &ev.RegisteredCount, &ev.Status,
        &ev.CreatedAt, &ev.UpdatedAt,
    )
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrEventNotFound
        }
        return nil, err
    }
    return &ev, nil
}

// EventFilter narrows the result of List.  Zero values mean "no filter".
type EventFilter struct {
    Search   string    // matches title and description
    Category string    // exact category match
    Location string    // substring match on location
    Status   string    // exact status match
    From     time.Time // events starting at or after this instant
    To       time.Time // events starting at or before this instant
}

// List returns events matching the filter, soonest first.  The WHERE
// clause is assembled from the populated filter fields only.
func (r *EventRepo) List(ctx context.Context, f EventFilter) ([]model.Event, error) {
    q := `SELECT id, organizer_id, title, description, location, category,
                 starts_at, ends_at, capacity, registered_count, status, created_at, updated_at
          FROM events`
    var conds []string
    var args []interface{}
    if f.Search != "" {
        conds = append(conds, "(title LIKE ? OR description LIKE ?)")
        like := "%" + f.Search + "%"
        args = append(args, like, like)
    }
    if f.Category != "" {
        conds = append(conds, "category = ?")
        args = append(args, f.Category)
    }
    if f.Location != "" {
        conds = append(conds, "location LIKE ?")
        args = append(args, "%"+f.Location+"%")
    }
    if f.Status != "" {
        conds = append(conds, "status = ?")
        args = append(args, f.Status)
    }
    if !f.From.IsZero() {
        conds = append(conds, "starts_at >= ?")
        args = append(args, f.From.UTC())
    }
    if !f.To.IsZero() {
        conds = append(conds, "starts_at <= ?")
        args = append(args, f.To.UTC())
    }
    if len(conds) > 0 {
        q += " WHERE " + strings.Join(conds, " AND ")
    }
    q += " ORDER BY starts_at ASC"

    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    events := make([]model.Event, 0)
    for rows.Next() {
        var ev model.Event
        if err := rows.Scan(
            &ev.ID, &ev.OrganizerID, &ev.Title, &ev.Description, &ev.Location, &ev.Category,
            &ev.StartsAt, &ev.EndsAt, &ev.Capacity, &ev.RegisteredCount, &ev.Status,
            &ev.CreatedAt, &ev.UpdatedAt,
        ); err != nil {
            return nil, err
        }
        events = append(events, ev)
    }
    return events, rows.Err()
}

// ListByOrganizer returns all events created by the given organizer,
// newest start date first.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error) {
    const q = `SELECT id, organizer_id, title, description, location, category,
                      starts_at, ends_at, capacity, registered_count, status, created_at, updated_at
               FROM events WHERE organizer_id = ? ORDER BY starts_at DESC`
    rows, err := r.db.QueryContext(ctx, q, organizerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    events := make([]model.Event, 0)
    for rows.Next() {
        var ev model.Event
        if err := rows.Scan(
            &ev.ID, &ev.OrganizerID, &ev.Title, &ev.Description, &ev.Location, &ev.Category,
            &ev.StartsAt, &ev.EndsAt, &ev.Capacity, &ev.RegisteredCount, &ev.Status,
            &ev.CreatedAt, &ev.UpdatedAt,
        ); err != nil {
            return nil, err
        }
        events = append(events, ev)
    }
    return events, rows.Err()
}

// Update persists the mutable fields of an event.  Capacity is guarded by
// an additional predicate so it can never drop below the current number
// of active registrations, even if a registration lands between the
// service-layer validation and this statement.  Zero rows affected with
// an existing event means exactly that race happened.
func (r *EventRepo) Update(ctx context.Context, ev *model.Event) error {
    const q = `UPDATE events
               SET title = ?, description = ?, location = ?, category = ?,
                   starts_at = ?, ends_at = ?, capacity = ?, status = ?
               WHERE id = ? AND capacity >= registered_count AND ? >= registered_count`
    res, err := r.db.ExecContext(ctx, q,
        ev.Title, ev.Description, ev.Location, ev.Category,
        ev.StartsAt.UTC(), ev.EndsAt.UTC(), ev.Capacity, ev.Status,
        ev.ID, ev.Capacity)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        if _, err := r.GetByID(ctx, ev.ID); err != nil {
            return err
        }
        return ErrCapacityBelowRegistered
    }
    return nil
}

// Cancel marks an event CANCELLED.  Events are never deleted so that
// registrations keep a valid reference for the audit trail.
func (r *EventRepo) Cancel(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE events SET status = ? WHERE id = ?`, model.EventStatusCancelled, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrEventNotFound
    }
    return nil
}

// Count returns the total number of events on the platform.
func (r *EventRepo) Count(ctx context.Context) (uint64, error) {
	var n uint64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

// TryReserveSeat atomically claims one seat.  The read-compare-increment
// happens inside a single conditional UPDATE, so concurrent callers can
// never push registered_count past capacity: the (C+1)-th concurrent
// attempt affects zero rows and gets ErrAtCapacity.  A zero-row result is
// disambiguated from a missing event with a follow-up read.
func (r *EventRepo) TryReserveSeat(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE events SET registered_count = registered_count + 1
         WHERE id = ? AND registered_count < capacity`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 1 {
        return nil
    }
    if _, err := r.GetByID(ctx, id); err != nil {
        return err
    }
    return ErrAtCapacity
}

// ReleaseSeat returns one seat to the pool.  The count is floored at zero
// so a double release (or a release racing a concurrent one) can never
// drive it negative; releasing at zero is a silent no-op.
func (r *EventRepo) ReleaseSeat(ctx context.Context, id uint64) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE events SET registered_count = registered_count - 1
         WHERE id = ? AND registered_count > 0`, id)
    return err
}
