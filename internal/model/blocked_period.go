package model

import "time"

// BlockedPeriod is an admin-declared unavailable date range
// (maintenance, personal use).  It behaves exactly like a reservation
// for overlap purposes but is never customer-visible as a booking.
//
// Fields:
//  ID        – primary key identifier.
//  StartsAt  – start of the blocked range, inclusive, UTC.
//  EndsAt    – end of the blocked range, exclusive, UTC.
//  Reason    – why the range is blocked.
//  CreatedBy – admin id that declared the block.
type BlockedPeriod struct {
	ID        uint64    `json:"id"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Reason    string    `json:"reason,omitempty"`
	CreatedBy uint64    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Overlaps reports whether the block intersects the half-open
// candidate range [checkIn, checkOut).
func (b *BlockedPeriod) Overlaps(checkIn, checkOut time.Time) bool {
	return b.StartsAt.Before(checkOut) && b.EndsAt.After(checkIn)
}
