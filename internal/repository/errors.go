// Package repository implements MySQL persistence for the booking
// core.  Sentinel errors defined here let higher layers distinguish
// failure scenarios without string matching: handlers translate
// ErrNotFound into 404 and ErrDuplicate into 409 responses.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique
// constraint, such as two reservations claiming one payment session.
var ErrDuplicate = errors.New("duplicate record")

// ErrInvalidTransition is returned when a status write would move a
// reservation's lifecycle backward or sideways.  The transition table
// in the model package is consulted before any SQL is issued.
var ErrInvalidTransition = errors.New("invalid status transition")

// isDuplicateKey reports whether a MySQL error is a unique-key
// violation (error 1062).
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "1062") || strings.Contains(s, "duplicate entry")
}
