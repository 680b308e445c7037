package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusFailed, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusCompleted, true},

		{StatusPending, StatusCancelled, false},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusPending, false},
		{StatusConfirmed, StatusFailed, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusFailed, StatusConfirmed, false},
		{StatusFailed, StatusPending, false},
		{StatusPending, StatusPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestPaymentStatusAllowed(t *testing.T) {
	assert.True(t, PaymentStatusAllowed(StatusConfirmed, PaymentPaid))
	assert.True(t, PaymentStatusAllowed(StatusCompleted, PaymentPaid))
	assert.False(t, PaymentStatusAllowed(StatusPending, PaymentPaid))
	assert.False(t, PaymentStatusAllowed(StatusCancelled, PaymentPaid))

	assert.True(t, PaymentStatusAllowed(StatusCancelled, PaymentRefunded))
	assert.False(t, PaymentStatusAllowed(StatusConfirmed, PaymentRefunded))
	assert.False(t, PaymentStatusAllowed(StatusPending, PaymentRefunded))

	// pending and failed money states carry no lifecycle constraint
	assert.True(t, PaymentStatusAllowed(StatusPending, PaymentPending))
	assert.True(t, PaymentStatusAllowed(StatusFailed, PaymentFailed))
}

func TestReservationOverlaps(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC)
	}
	res := Reservation{CheckIn: day(10), CheckOut: day(15)}

	// overlapping cases
	assert.True(t, res.Overlaps(day(12), day(14)))  // contained
	assert.True(t, res.Overlaps(day(8), day(20)))   // containing
	assert.True(t, res.Overlaps(day(8), day(11)))   // left overlap
	assert.True(t, res.Overlaps(day(14), day(20)))  // right overlap

	// half-open boundaries: check-out day is free
	assert.False(t, res.Overlaps(day(15), day(18)))
	assert.False(t, res.Overlaps(day(5), day(10)))
	assert.False(t, res.Overlaps(day(1), day(5)))
	assert.False(t, res.Overlaps(day(20), day(25)))
}
