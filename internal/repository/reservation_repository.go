package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"apartment-booking/internal/model"
)

// ReservationRepo provides CRUD and state-machine operations for the
// `reservations` table.  All timestamps are stored and compared in
// UTC.  Lifecycle flips go through conditional updates (compare-and-
// swap on the current status) so that concurrent writers cannot both
// win; callers must check the reported swap result.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationCols = `id, customer_id, check_in, check_out, nights,
	base_price, discount_percent, discount_amount, total_price, currency,
	status, payment_status, session_id, transaction_id, notes, metadata,
	created_at, updated_at`

// Create inserts a new reservation row.  The session id carries a
// unique constraint; a second reservation claiming the same payment
// session fails with ErrDuplicate.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	meta, err := res.MarshalMetadata()
	if err != nil {
		return err
	}
	const q = `INSERT INTO reservations
		(id, customer_id, check_in, check_out, nights,
		 base_price, discount_percent, discount_amount, total_price, currency,
		 status, payment_status, session_id, notes, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CAST(? AS JSON))`
	_, err = r.db.ExecContext(ctx, q,
		res.ID, res.CustomerID,
		res.CheckIn.UTC().Format("2006-01-02 15:04:05"),
		res.CheckOut.UTC().Format("2006-01-02 15:04:05"),
		res.Nights,
		res.BasePrice, res.DiscountPercent, res.DiscountAmount, res.TotalPrice, res.Currency,
		res.Status, res.PaymentStatus, res.SessionID, res.Notes, meta,
	)
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

// GetByID loads a single reservation.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	return r.getOne(ctx, `SELECT `+reservationCols+` FROM reservations WHERE id = ? LIMIT 1`, id)
}

// GetBySessionID loads the reservation bound to a payment session.
// At most one exists because session_id is unique.
func (r *ReservationRepo) GetBySessionID(ctx context.Context, sessionID string) (*model.Reservation, error) {
	return r.getOne(ctx, `SELECT `+reservationCols+` FROM reservations WHERE session_id = ? LIMIT 1`, sessionID)
}

func (r *ReservationRepo) getOne(ctx context.Context, q string, arg any) (*model.Reservation, error) {
	row := r.db.QueryRowContext(ctx, q, arg)
	res, err := scanReservation(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// FindOverlapping returns pending and confirmed reservations whose
// ranges intersect the half-open candidate range [checkIn, checkOut).
// The predicate `existing.check_in < candidate.check_out AND
// existing.check_out > candidate.check_in` covers all four interval
// relationships, including existing-contains-candidate.
func (r *ReservationRepo) FindOverlapping(ctx context.Context, checkIn, checkOut time.Time) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + `
			   FROM reservations
			   WHERE status IN ('pending','confirmed')
				 AND check_in < ? AND check_out > ?
			   ORDER BY check_in`
	rows, err := r.db.QueryContext(ctx, q,
		checkOut.UTC().Format("2006-01-02 15:04:05"),
		checkIn.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// UpdateStatusIf performs the compare-and-swap lifecycle flip: the
// row is updated only when its current status still equals `from`.
// The transition is validated against the model's state machine
// before any SQL runs.  transactionID, when non-nil, is recorded once
// and never overwritten.  The audit entry is appended to the metadata
// array in the same statement, so a won swap always carries its audit
// record.  Returns false with nil error when the row's state changed
// since it was read; the caller decides whether that is an
// idempotent no-op or an integrity violation.
func (r *ReservationRepo) UpdateStatusIf(ctx context.Context, id string, from, to model.Status, pay model.PaymentStatus, transactionID *string, entry model.MetadataEntry) (bool, error) {
	if !model.CanTransition(from, to) {
		return false, ErrInvalidTransition
	}
	if !model.PaymentStatusAllowed(to, pay) {
		return false, ErrInvalidTransition
	}
	meta, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	const q = `UPDATE reservations
			   SET status = ?,
				   payment_status = ?,
				   transaction_id = COALESCE(transaction_id, ?),
				   metadata = JSON_ARRAY_APPEND(COALESCE(metadata, JSON_ARRAY()), '$', CAST(? AS JSON)),
				   updated_at = UTC_TIMESTAMP()
			   WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, to, pay, transactionID, meta, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ExpireOverdue flips pending reservations older than the TTL to the
// terminal failed state, releasing their dates.  Returns the ids that
// were expired so callers can log or void the orphaned sessions.
func (r *ReservationRepo) ExpireOverdue(ctx context.Context, ttl time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-ttl).Format("2006-01-02 15:04:05")
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM reservations WHERE status = 'pending' AND created_at <= ?`, cutoff)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	entry := model.NewMetadataEntry("expired", "system", map[string]string{"reason": "pending session timed out"})
	expired := make([]string, 0, len(ids))
	for _, id := range ids {
		// CAS per row: a webhook confirming the session concurrently
		// wins and the expiry silently skips that reservation.
		ok, err := r.UpdateStatusIf(ctx, id, model.StatusPending, model.StatusFailed, model.PaymentFailed, nil, entry)
		if err != nil {
			return expired, err
		}
		if ok {
			expired = append(expired, id)
		}
	}
	return expired, nil
}

// AdminReservationDetail is the read-only projection returned to the
// dashboard: a reservation joined with its customer identity.
type AdminReservationDetail struct {
	model.Reservation
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

// ListAll returns reservations newest-first with customer identity
// joined in, for the admin dashboard.
func (r *ReservationRepo) ListAll(ctx context.Context, limit, offset int) ([]AdminReservationDetail, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `SELECT r.id, r.customer_id, r.check_in, r.check_out, r.nights,
					  r.base_price, r.discount_percent, r.discount_amount, r.total_price, r.currency,
					  r.status, r.payment_status, r.session_id, r.transaction_id, r.notes, r.metadata,
					  r.created_at, r.updated_at,
					  c.full_name, c.email
			   FROM reservations r
			   JOIN customers c ON c.id = r.customer_id
			   ORDER BY r.created_at DESC
			   LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]AdminReservationDetail, 0)
	for rows.Next() {
		var d AdminReservationDetail
		if _, err := scanReservationInto(&d.Reservation, rows.Scan, &d.CustomerName, &d.CustomerEmail); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// Stats is the aggregate projection for the admin dashboard.
type Stats struct {
	Pending      int   `json:"pending"`
	Confirmed    int   `json:"confirmed"`
	Cancelled    int   `json:"cancelled"`
	Completed    int   `json:"completed"`
	Failed       int   `json:"failed"`
	Revenue      int64 `json:"revenue"`       // sum of confirmed+completed totals
	NightsBooked int64 `json:"nights_booked"` // nights across confirmed+completed
}

// GetStats computes reservation counts by status plus realized
// revenue and booked nights.
func (r *ReservationRepo) GetStats(ctx context.Context) (Stats, error) {
	const q = `SELECT status, COUNT(*), COALESCE(SUM(total_price),0), COALESCE(SUM(nights),0)
			   FROM reservations GROUP BY status`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()
	var s Stats
	for rows.Next() {
		var status string
		var count int
		var total, nights int64
		if err := rows.Scan(&status, &count, &total, &nights); err != nil {
			return Stats{}, err
		}
		switch model.Status(status) {
		case model.StatusPending:
			s.Pending = count
		case model.StatusConfirmed:
			s.Confirmed = count
			s.Revenue += total
			s.NightsBooked += nights
		case model.StatusCompleted:
			s.Completed = count
			s.Revenue += total
			s.NightsBooked += nights
		case model.StatusCancelled:
			s.Cancelled = count
		case model.StatusFailed:
			s.Failed = count
		}
	}
	return s, rows.Err()
}

// scanReservation reads one reservation from a Scan-compatible source.
func scanReservation(scan func(...any) error) (*model.Reservation, error) {
	var res model.Reservation
	return scanReservationInto(&res, scan)
}

func scanReservationInto(res *model.Reservation, scan func(...any) error, extra ...any) (*model.Reservation, error) {
	var txnID sql.NullString
	var notes sql.NullString
	var meta []byte
	dest := []any{
		&res.ID, &res.CustomerID, &res.CheckIn, &res.CheckOut, &res.Nights,
		&res.BasePrice, &res.DiscountPercent, &res.DiscountAmount, &res.TotalPrice, &res.Currency,
		&res.Status, &res.PaymentStatus, &res.SessionID, &txnID, &notes, &meta,
		&res.CreatedAt, &res.UpdatedAt,
	}
	dest = append(dest, extra...)
	if err := scan(dest...); err != nil {
		return nil, err
	}
	if txnID.Valid {
		t := txnID.String
		res.TransactionID = &t
	}
	if notes.Valid {
		res.Notes = notes.String
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &res.Metadata); err != nil {
			return nil, err
		}
	}
	return res, nil
}
