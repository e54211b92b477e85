package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/event-registration/internal/model"
)

// CheckInRepo provides persistence for check-ins.  The unique key on
// registration_id is what makes a ticket single-use; everything else in
// this file is reporting.
type CheckInRepo struct {
    db *sql.DB
}

// NewCheckInRepo returns a new CheckInRepo bound to the given database.
func NewCheckInRepo(db *sql.DB) *CheckInRepo { return &CheckInRepo{db: db} }

// Record performs the atomic check-in: within one transaction it flips
// the registration from confirmed to checked_in with a conditional UPDATE
// and inserts the check_ins row.  Both happen or neither, so a crash can
// never leave a check-in without the mirrored status or vice versa.
//
// The conditional UPDATE is the arbiter for every race on the row: of two
// concurrent scans exactly one affects a row, and a scan racing a
// cancellation either wins wholly or sees the cancelled state.  The
// status re-read on the zero-row path reports what actually happened
// rather than trusting whatever the caller read earlier.  The unique key
// on registration_id backstops the insert independently.
//
// On success the generated ID and ScannedAt are populated on ci.
func (r *CheckInRepo) Record(ctx context.Context, ci *model.CheckIn) error {
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

    now := time.Now().UTC()
    res, err := tx.ExecContext(ctx,
        `UPDATE registrations SET status = ?, checked_in_at = ?
         WHERE id = ? AND status = ?`,
        model.RegistrationCheckedIn, now, ci.RegistrationID, model.RegistrationConfirmed)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        var status string
        err := tx.QueryRowContext(ctx,
            `SELECT status FROM registrations WHERE id = ?`, ci.RegistrationID).Scan(&status)
        if err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrRegistrationNotFound
            }
            return err
        }
        if status == model.RegistrationCancelled {
            return ErrTicketCancelled
        }
        return ErrAlreadyCheckedIn
    }

    ci.ScannedAt = now
    ins, err := tx.ExecContext(ctx,
        `INSERT INTO check_ins (registration_id, event_id, scanned_by, scanned_at, method, notes)
         VALUES (?, ?, ?, ?, ?, ?)`,
        ci.RegistrationID, ci.EventID, ci.ScannedBy, ci.ScannedAt, ci.Method, ci.Notes)
    if err != nil {
        if isDuplicateKey(err, "uq_checkin_registration") {
            return ErrAlreadyCheckedIn
        }
        return err
    }
    id, err := ins.LastInsertId()
    if err != nil {
        return err
    }
    ci.ID = uint64(id)

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// CheckInDetail joins a check-in with the attendee and the staff member
// who performed it, for per-event history views.
type CheckInDetail struct {
    ID             uint64    `json:"id"`
    RegistrationID uint64    `json:"registration_id"`
    EventID        uint64    `json:"event_id"`
    AttendeeName   string    `json:"attendee_name"`
    AttendeeEmail  string    `json:"attendee_email"`
    TicketCode     string    `json:"ticket_code"`
    ScannedByName  string    `json:"scanned_by_name"`
    ScannedAt      time.Time `json:"scanned_at"`
    Method         string    `json:"method"`
    Notes          string    `json:"notes,omitempty"`
}

const checkInDetailQuery = `SELECT c.id, c.registration_id, c.event_id,
                                   u.name, u.email, r.ticket_code,
                                   s.name, c.scanned_at, c.method, c.notes
                            FROM check_ins c
                            JOIN registrations r ON r.id = c.registration_id
                            JOIN users u ON u.id = r.user_id
                            JOIN users s ON s.id = c.scanned_by`

func collectCheckIns(rows *sql.Rows) ([]CheckInDetail, error) {
    defer rows.Close()
    details := make([]CheckInDetail, 0)
    for rows.Next() {
        var d CheckInDetail
        if err := rows.Scan(
            &d.ID, &d.RegistrationID, &d.EventID,
            &d.AttendeeName, &d.AttendeeEmail, &d.TicketCode,
            &d.ScannedByName, &d.ScannedAt, &d.Method, &d.Notes,
        ); err != nil {
            return nil, err
        }
        details = append(details, d)
    }
    return details, rows.Err()
}

// ListByEvent returns the event's check-in history, newest first.
func (r *CheckInRepo) ListByEvent(ctx context.Context, eventID uint64) ([]CheckInDetail, error) {
    rows, err := r.db.QueryContext(ctx,
        checkInDetailQuery+` WHERE c.event_id = ? ORDER BY c.scanned_at DESC`, eventID)
    if err != nil {
        return nil, err
    }
    return collectCheckIns(rows)
}

// Recent returns the event's most recent check-ins, capped at limit.
// Used by the live check-in dashboard.
func (r *CheckInRepo) Recent(ctx context.Context, eventID uint64, limit int) ([]CheckInDetail, error) {
    if limit <= 0 {
        limit = 10
    }
    rows, err := r.db.QueryContext(ctx,
        checkInDetailQuery+` WHERE c.event_id = ? ORDER BY c.scanned_at DESC LIMIT ?`,
        eventID, limit)
    if err != nil {
        return nil, err
    }
    return collectCheckIns(rows)
}

// HourCount is one bucket of today's check-in histogram.
type HourCount struct {
    Hour  int    `json:"hour"`
    Count uint64 `json:"count"`
}

// CheckInStats summarises check-in activity for one event.
type CheckInStats struct {
    Total  uint64      `json:"total_check_ins"`
    QR     uint64      `json:"qr_check_ins"`
    Manual uint64      `json:"manual_check_ins"`
    ByHour []HourCount `json:"check_ins_by_hour"`
}

// Count returns the total number of recorded check-ins on the platform.
func (r *CheckInRepo) Count(ctx context.Context) (uint64, error) {
    var n uint64
    err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM check_ins`).Scan(&n)
    return n, err
}

// StatsByEvent returns totals by method plus today's check-ins bucketed
// by hour (UTC day boundaries, matching how scanned_at is stored).
func (r *CheckInRepo) StatsByEvent(ctx context.Context, eventID uint64) (*CheckInStats, error) {
    var stats CheckInStats
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*),
                COALESCE(SUM(method = ?), 0),
                COALESCE(SUM(method = ?), 0)
         FROM check_ins WHERE event_id = ?`,
        model.CheckInMethodQR, model.CheckInMethodManual, eventID,
    ).Scan(&stats.Total, &stats.QR, &stats.Manual)
    if err != nil {
        return nil, err
    }

    dayStart := time.Now().UTC().Truncate(24 * time.Hour)
    rows, err := r.db.QueryContext(ctx,
        `SELECT HOUR(scanned_at), COUNT(*)
         FROM check_ins
         WHERE event_id = ? AND scanned_at >= ? AND scanned_at < ?
         GROUP BY HOUR(scanned_at)
         ORDER BY HOUR(scanned_at)`,
        eventID, dayStart, dayStart.Add(24*time.Hour))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    stats.ByHour = make([]HourCount, 0)
    for rows.Next() {
        var hc HourCount
        if err := rows.Scan(&hc.Hour, &hc.Count); err != nil {
            return nil, err
        }
        stats.ByHour = append(stats.ByHour, hc)
    }
    return &stats, rows.Err()
}
