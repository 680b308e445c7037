package model

import "time"

// Admin mirrors the `admins` table.  Admins authenticate with email
// and password and receive a JWT carrying the ADMIN role; everything
// beyond that boolean check is outside this service's concern.
type Admin struct {
	ID           uint64    // admins.id
	Email        string    // admins.email, unique
	PasswordHash string    // admins.password_hash, bcrypt
	IsActive     bool      // admins.is_active
	CreatedAt    time.Time // admins.created_at
	UpdatedAt    time.Time // admins.updated_at
}
