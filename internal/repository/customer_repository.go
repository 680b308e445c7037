package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"apartment-booking/internal/model"
)

// CustomerRepo provides access to the `customers` table.  Customers
// are keyed by email: repeat bookings by the same address update the
// existing row in place rather than creating a new identity.
type CustomerRepo struct {
	db *sql.DB
}

// NewCustomerRepo returns a CustomerRepo bound to the given database.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

// UpsertByEmail creates the customer or refreshes name/phone/company
// on an existing row with the same email.  The customer's ID is
// populated on return.  Email is normalized to lower case.
func (r *CustomerRepo) UpsertByEmail(ctx context.Context, c *model.Customer) error {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	// LAST_INSERT_ID(id) makes LastInsertId return the existing row's
	// id on the duplicate-key path.
	const q = `INSERT INTO customers (full_name, email, phone, company)
			   VALUES (?, ?, ?, ?)
			   ON DUPLICATE KEY UPDATE
				 id = LAST_INSERT_ID(id),
				 full_name = VALUES(full_name),
				 phone = VALUES(phone),
				 company = VALUES(company)`
	res, err := r.db.ExecContext(ctx, q, c.FullName, c.Email, c.Phone, c.Company)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByEmail fetches a customer by normalized email.
func (r *CustomerRepo) GetByEmail(ctx context.Context, email string) (*model.Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	const q = `SELECT id, full_name, email, phone, company, created_at, updated_at
			   FROM customers WHERE email = ? LIMIT 1`
	var c model.Customer
	err := r.db.QueryRowContext(ctx, q, email).Scan(
		&c.ID, &c.FullName, &c.Email, &c.Phone, &c.Company, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID fetches a customer by primary key.
func (r *CustomerRepo) GetByID(ctx context.Context, id uint64) (*model.Customer, error) {
	const q = `SELECT id, full_name, email, phone, company, created_at, updated_at
			   FROM customers WHERE id = ? LIMIT 1`
	var c model.Customer
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&c.ID, &c.FullName, &c.Email, &c.Phone, &c.Company, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
