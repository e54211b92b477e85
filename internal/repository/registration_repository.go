package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/event-registration/internal/model"
)

// RegistrationRepo provides persistence for registrations.  A registration
// row is never deleted: cancellation flips status and clears the `active`
// column so the (event_id, user_id, active) unique key stops applying
// while the row remains as an audit record.
type RegistrationRepo struct {
    db *sql.DB
}

// NewRegistrationRepo returns a new RegistrationRepo bound to the given
// database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

// Create inserts a new registration and populates the generated ID and
// RegisteredAt on the provided struct.  The two unique keys on the table
// turn races into clean outcomes: a concurrent registration by the same
// user surfaces as ErrAlreadyRegistered for exactly one of the writers,
// and a ticket code collision surfaces as ErrDuplicateTicketCode so the
// caller can retry with a fresh code.
func (r *RegistrationRepo) Create(ctx context.Context, reg *model.Registration) error {
    const q = `INSERT INTO registrations (event_id, user_id, ticket_code, status, active, notes)
               VALUES (?, ?, ?, ?, 1, ?)`
    res, err := r.db.ExecContext(ctx, q,
        reg.EventID, reg.UserID, reg.TicketCode, reg.Status, reg.Notes)
    if err != nil {
        if isDuplicateKey(err, "uq_reg_event_user_active") {
            return ErrAlreadyRegistered
        }
        if isDuplicateKey(err, "uq_reg_ticket_code") {
            return ErrDuplicateTicketCode
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    reg.ID = uint64(id)
    return r.db.QueryRowContext(ctx,
        `SELECT registered_at FROM registrations WHERE id = ?`, reg.ID,
    ).Scan(&reg.RegisteredAt)
}

const regColumns = `id, event_id, user_id, ticket_code, status, active,
                    registered_at, checked_in_at, cancelled_at, notes`

func scanRegistration(row *sql.Row) (*model.Registration, error) {
    var reg model.Registration
    var active sql.NullByte
    var checkedIn, cancelled sql.NullTime
    err := row.Scan(
        &reg.ID, &reg.EventID, &reg.UserID, &reg.TicketCode, &reg.Status, &active,
        &reg.RegisteredAt, &checkedIn, &cancelled, &reg.Notes,
    )
    if err != nil {
        return nil, err
    }
    if active.Valid {
        v := active.Byte
        reg.Active = &v
    }
    if checkedIn.Valid {
        t := checkedIn.Time
        reg.CheckedInAt = &t
    }
    if cancelled.Valid {
        t := cancelled.Time
        reg.CancelledAt = &t
    }
    return &reg, nil
}

// GetByID returns a single registration or ErrRegistrationNotFound.
func (r *RegistrationRepo) GetByID(ctx context.Context, id uint64) (*model.Registration, error) {
    reg, err := scanRegistration(r.db.QueryRowContext(ctx,
        `SELECT `+regColumns+` FROM registrations WHERE id = ?`, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrRegistrationNotFound
        }
        return nil, err
    }
    return reg, nil
}

// GetByTicketCode resolves a scanned ticket code to its registration or
// returns ErrTicketNotFound.
func (r *RegistrationRepo) GetByTicketCode(ctx context.Context, code string) (*model.Registration, error) {
    reg, err := scanRegistration(r.db.QueryRowContext(ctx,
        `SELECT `+regColumns+` FROM registrations WHERE ticket_code = ?`, code))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrTicketNotFound
        }
        return nil, err
    }
    return reg, nil
}

// Cancel marks a confirmed registration cancelled and releases its seat
// in one transaction.  The status flip is a conditional UPDATE on
// status='confirmed', so if a cancel racing another cancel or a check-in
// exactly one writer wins; the loser is told what actually happened via
// ErrAlreadyCancelled or ErrAlreadyCheckedIn.
func (r *RegistrationRepo) Cancel(ctx context.Context, id uint64) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    var eventID uint64
    err = tx.QueryRowContext(ctx,
        `SELECT event_id FROM registrations WHERE id = ?`, id).Scan(&eventID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return ErrRegistrationNotFound
        }
        return err
    }

    res, err := tx.ExecContext(ctx,
        `UPDATE registrations SET status = ?, cancelled_at = ?, active = NULL
         WHERE id = ? AND status = ?`,
        model.RegistrationCancelled, time.Now().UTC(), id, model.RegistrationConfirmed)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // Lost the race or the registration was already terminal; report
        // the state the row actually reached.
        var status string
        if err := tx.QueryRowContext(ctx,
            `SELECT status FROM registrations WHERE id = ?`, id).Scan(&status); err != nil {
            return err
        }
        if status == model.RegistrationCheckedIn {
            return ErrAlreadyCheckedIn
        }
        return ErrAlreadyCancelled
    }

    // Floored decrement; committing together with the status flip means a
    // crash can never release a seat without recording the cancellation.
    if _, err := tx.ExecContext(ctx,
        `UPDATE events SET registered_count = registered_count - 1
         WHERE id = ? AND registered_count > 0`, eventID); err != nil {
        return err
    }

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// RegistrationDetail joins a registration with its event and attendee for
// listings.  Cancelled registrations keep their row but are filtered out
// of attendee-facing lists.
type RegistrationDetail struct {
    ID            uint64     `json:"id"`
    EventID       uint64     `json:"event_id"`
    EventTitle    string     `json:"event_title"`
    EventLocation string     `json:"event_location"`
    EventStartsAt time.Time  `json:"event_starts_at"`
    UserID        uint64     `json:"user_id"`
    UserName      string     `json:"user_name"`
    UserEmail     string     `json:"user_email"`
    TicketCode    string     `json:"ticket_code"`
    Status        string     `json:"status"`
    RegisteredAt  time.Time  `json:"registered_at"`
    CheckedInAt   *time.Time `json:"checked_in_at,omitempty"`
}

const detailQuery = `SELECT r.id, r.event_id, e.title, e.location, e.starts_at,
                            r.user_id, u.name, u.email,
                            r.ticket_code, r.status, r.registered_at, r.checked_in_at
                     FROM registrations r
                     JOIN events e ON e.id = r.event_id
                     JOIN users u ON u.id = r.user_id`

func collectDetails(rows *sql.Rows) ([]RegistrationDetail, error) {
    defer rows.Close()
    details := make([]RegistrationDetail, 0)
    for rows.Next() {
        var d RegistrationDetail
        var checkedIn sql.NullTime
        if err := rows.Scan(
            &d.ID, &d.EventID, &d.EventTitle, &d.EventLocation, &d.EventStartsAt,
            &d.UserID, &d.UserName, &d.UserEmail,
            &d.TicketCode, &d.Status, &d.RegisteredAt, &checkedIn,
        ); err != nil {
            return nil, err
        }
        if checkedIn.Valid {
            t := checkedIn.Time
            d.CheckedInAt = &t
        }
        details = append(details, d)
    }
    return details, rows.Err()
}

// ListByUser returns the user's non-cancelled registrations with event
// details, newest first.
func (r *RegistrationRepo) ListByUser(ctx context.Context, userID uint64) ([]RegistrationDetail, error) {
    rows, err := r.db.QueryContext(ctx,
        detailQuery+` WHERE r.user_id = ? AND r.status <> ? ORDER BY r.registered_at DESC`,
        userID, model.RegistrationCancelled)
    if err != nil {
        return nil, err
    }
    return collectDetails(rows)
}

// ListByEvent returns the event's non-cancelled registrations with
// attendee details, newest first.  Used by organizers for attendee lists.
func (r *RegistrationRepo) ListByEvent(ctx context.Context, eventID uint64) ([]RegistrationDetail, error) {
    rows, err := r.db.QueryContext(ctx,
        detailQuery+` WHERE r.event_id = ? AND r.status <> ? ORDER BY r.registered_at DESC`,
        eventID, model.RegistrationCancelled)
    if err != nil {
        return nil, err
    }
    return collectDetails(rows)
}

// StatusCounts holds per-status registration totals for one event.
// Count returns the total number of registrations on the platform,
// cancelled ones included.
func (r *RegistrationRepo) Count(ctx context.Context) (uint64, error) {
	var n uint64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&n)
	return n, err
}

type StatusCounts struct {
    Total     uint64
    Confirmed uint64
    CheckedIn uint64
    Cancelled uint64
}

// CountByStatus tallies the event's registrations grouped by status in a
// single pass.  Counts are snapshots; under concurrency they can be a
// moment stale, which is acceptable for statistics display.
func (r *RegistrationRepo) CountByStatus(ctx context.Context, eventID uint64) (StatusCounts, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT status, COUNT(*) FROM registrations WHERE event_id = ? GROUP BY status`, eventID)
    if err != nil {
        return StatusCounts{}, err
    }
    defer rows.Close()
    var c StatusCounts
    for rows.Next() {
        var status string
        var n uint64
        if err := rows.Scan(&status, &n); err != nil {
            return StatusCounts{}, err
        }
        switch status {
        case model.RegistrationConfirmed:
            c.Confirmed = n
        case model.RegistrationCheckedIn:
            c.CheckedIn = n
        case model.RegistrationCancelled:
            c.Cancelled = n
        }
        c.Total += n
    }
    return c, rows.Err()
}
