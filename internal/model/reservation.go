package model

import (
	"encoding/json"
	"time"
)

// Status enumerates the lifecycle states of a reservation.  A
// reservation is created as StatusPending the moment a payment
// session is opened and only ever moves forward: pending can become
// confirmed or failed, confirmed can become cancelled or completed.
// Terminal states never transition again.
type Status string

const (
	StatusPending   Status = "pending"   // payment session open, money not yet moved
	StatusConfirmed Status = "confirmed" // payment cleared, dates are held
	StatusCancelled Status = "cancelled" // cancelled after confirmation, refund issued
	StatusCompleted Status = "completed" // stay finished
	StatusFailed    Status = "failed"    // payment failed or pending session expired
)

// PaymentStatus tracks the money state of a reservation independently
// of its lifecycle status.  The two are constrained jointly: paid is
// only valid alongside confirmed (or completed), refunded only
// alongside cancelled.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// transitions lists the allowed forward moves of the lifecycle state
// machine.  Every status write in the repository goes through
// CanTransition so that enforcement lives in exactly one place.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusFailed},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// CanTransition reports whether moving a reservation from one
// lifecycle status to another is permitted.  Transitions are strictly
// monotonic; no backward move is ever allowed.
func CanTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// PaymentStatusAllowed reports whether a payment status is consistent
// with a lifecycle status.  Paid requires a confirmed (or later
// completed) reservation; refunded requires a cancelled one.
func PaymentStatusAllowed(s Status, p PaymentStatus) bool {
	switch p {
	case PaymentPaid:
		return s == StatusConfirmed || s == StatusCompleted
	case PaymentRefunded:
		return s == StatusCancelled
	default:
		return true
	}
}

// MetadataEntry is a single append-only audit record attached to a
// reservation.  Entries are stored as a JSON array in the metadata
// column and are never rewritten after the fact.
type MetadataEntry struct {
	Kind    string            `json:"kind"`              // e.g. "confirmed", "cancelled", "expired"
	At      time.Time         `json:"at"`                // UTC timestamp of the event
	Actor   string            `json:"actor,omitempty"`   // who caused it (customer, admin, provider)
	Details map[string]string `json:"details,omitempty"` // free-form context (refund id, reason...)
}

// NewMetadataEntry builds an audit entry stamped with the current UTC time.
func NewMetadataEntry(kind, actor string, details map[string]string) MetadataEntry {
	return MetadataEntry{Kind: kind, At: time.Now().UTC(), Actor: actor, Details: details}
}

// Reservation is the central entity: a date-range hold on the single
// bookable unit tied to a payment lifecycle.
//
// Fields:
//  ID              – opaque UUID identifier.
//  CustomerID      – owning customer.
//  CheckIn/CheckOut – half-open range [CheckIn, CheckOut), UTC.
//  Nights          – whole-day length of the range.
//  BasePrice       – undiscounted total in whole currency units.
//  DiscountPercent – percentage applied (0, weekly or monthly tier).
//  DiscountAmount  – BasePrice − TotalPrice.
//  TotalPrice      – the amount actually charged; always BasePrice − DiscountAmount.
//  Currency        – ISO currency code.
//  Status          – lifecycle status (see Status).
//  PaymentStatus   – money status (see PaymentStatus).
//  SessionID       – payment-session reference, unique, immutable once set.
//  TransactionID   – provider transaction id, nil until payment clears.
//  Notes           – free-text guest notes, not validated.
//  Metadata        – append-only audit trail entries.
type Reservation struct {
	ID              string          `json:"id"`
	CustomerID      uint64          `json:"customer_id"`
	CheckIn         time.Time       `json:"check_in"`
	CheckOut        time.Time       `json:"check_out"`
	Nights          int             `json:"nights"`
	BasePrice       int64           `json:"base_price"`
	DiscountPercent int             `json:"discount_percent"`
	DiscountAmount  int64           `json:"discount_amount"`
	TotalPrice      int64           `json:"total_price"`
	Currency        string          `json:"currency"`
	Status          Status          `json:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	SessionID       string          `json:"session_id"`
	TransactionID   *string         `json:"transaction_id,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Metadata        []MetadataEntry `json:"metadata,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Overlaps reports whether the reservation's range intersects the
// half-open candidate range [checkIn, checkOut).
func (r *Reservation) Overlaps(checkIn, checkOut time.Time) bool {
	return r.CheckIn.Before(checkOut) && r.CheckOut.After(checkIn)
}

// MarshalMetadata serializes the audit trail for storage.  A nil
// slice becomes an empty JSON array so the column is always valid JSON.
func (r *Reservation) MarshalMetadata() ([]byte, error) {
	if r.Metadata == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.Metadata)
}
