package repository

import (
	"context"
	"database/sql"
	"time"

	"apartment-booking/internal/model"
)

// BlockedPeriodRepo provides access to the `blocked_periods` table.
// Blocked periods take part in every availability check alongside
// reservations.
type BlockedPeriodRepo struct {
	db *sql.DB
}

// NewBlockedPeriodRepo returns a BlockedPeriodRepo bound to the given database.
func NewBlockedPeriodRepo(db *sql.DB) *BlockedPeriodRepo { return &BlockedPeriodRepo{db: db} }

// Create inserts a new blocked period and populates its ID.
func (r *BlockedPeriodRepo) Create(ctx context.Context, b *model.BlockedPeriod) error {
	const q = `INSERT INTO blocked_periods (starts_at, ends_at, reason, created_by)
			   VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		b.StartsAt.UTC().Format("2006-01-02 15:04:05"),
		b.EndsAt.UTC().Format("2006-01-02 15:04:05"),
		b.Reason, b.CreatedBy,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// FindOverlapping returns blocked periods intersecting the half-open
// range [checkIn, checkOut).
func (r *BlockedPeriodRepo) FindOverlapping(ctx context.Context, checkIn, checkOut time.Time) ([]model.BlockedPeriod, error) {
	const q = `SELECT id, starts_at, ends_at, reason, created_by, created_at
			   FROM blocked_periods
			   WHERE starts_at < ? AND ends_at > ?
			   ORDER BY starts_at`
	rows, err := r.db.QueryContext(ctx, q,
		checkOut.UTC().Format("2006-01-02 15:04:05"),
		checkIn.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BlockedPeriod
	for rows.Next() {
		var b model.BlockedPeriod
		var reason sql.NullString
		if err := rows.Scan(&b.ID, &b.StartsAt, &b.EndsAt, &reason, &b.CreatedBy, &b.CreatedAt); err != nil {
			return nil, err
		}
		if reason.Valid {
			b.Reason = reason.String
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListAll returns every blocked period ordered by start date.
func (r *BlockedPeriodRepo) ListAll(ctx context.Context) ([]model.BlockedPeriod, error) {
	const q = `SELECT id, starts_at, ends_at, reason, created_by, created_at
			   FROM blocked_periods ORDER BY starts_at`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BlockedPeriod
	for rows.Next() {
		var b model.BlockedPeriod
		var reason sql.NullString
		if err := rows.Scan(&b.ID, &b.StartsAt, &b.EndsAt, &reason, &b.CreatedBy, &b.CreatedAt); err != nil {
			return nil, err
		}
		if reason.Valid {
			b.Reason = reason.String
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Delete removes a blocked period by id.  Returns ErrNotFound when
// no row matched.
func (r *BlockedPeriodRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blocked_periods WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
