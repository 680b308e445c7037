package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apartment-booking/internal/model"
	"apartment-booking/internal/pricing"
)

func pricingResolver() pricing.Resolver {
	return pricing.Resolver{NightlyRate: 89, WeeklyDiscountPct: 10, MonthlyDiscountPct: 20}
}

// futureDay returns midnight UTC n days from now.
func futureDay(n int) time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, n)
}

func bookingReq(checkIn, checkOut time.Time, total int64) BookingRequest {
	return BookingRequest{
		CustomerName:  "Ada Lovelace",
		CustomerEmail: "ada@example.com",
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		ClientTotal:   total,
	}
}

func TestCreateBookingSuccess(t *testing.T) {
	svc, reservations, customers, _, provider, _ := newTestService()
	ctx := context.Background()

	intent, err := svc.CreateBooking(ctx, bookingReq(futureDay(10), futureDay(13), 267))
	require.NoError(t, err)
	require.NotNil(t, intent)
	assert.NotEmpty(t, intent.ReservationID)
	assert.Equal(t, "cs_1", intent.SessionID)
	assert.Contains(t, intent.RedirectURL, intent.SessionID)
	assert.Equal(t, int64(267), intent.Quote.TotalPrice)

	res, err := reservations.GetByID(ctx, intent.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, res.Status)
	assert.Equal(t, model.PaymentPending, res.PaymentStatus)
	assert.Equal(t, 3, res.Nights)
	assert.Equal(t, int64(267), res.TotalPrice)
	assert.Nil(t, res.TransactionID)

	cust, err := customers.GetByID(ctx, res.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", cust.Email)
	assert.Equal(t, 1, provider.sessions)
}

func TestCreateBookingValidation(t *testing.T) {
	svc, _, _, _, provider, _ := newTestService()
	ctx := context.Background()

	var vErr *ValidationError

	// check-out not after check-in
	_, err := svc.CreateBooking(ctx, bookingReq(futureDay(10), futureDay(10), 0))
	assert.ErrorAs(t, err, &vErr)

	// check-in in the past
	_, err = svc.CreateBooking(ctx, bookingReq(futureDay(-2), futureDay(3), 267))
	assert.ErrorAs(t, err, &vErr)

	// missing customer identity
	req := bookingReq(futureDay(10), futureDay(13), 267)
	req.CustomerEmail = ""
	_, err = svc.CreateBooking(ctx, req)
	assert.ErrorAs(t, err, &vErr)

	// asserted nights disagree with the range
	req = bookingReq(futureDay(10), futureDay(13), 267)
	req.Nights = 5
	_, err = svc.CreateBooking(ctx, req)
	assert.ErrorAs(t, err, &vErr)

	// none of these may reach the provider
	assert.Equal(t, 0, provider.sessions)
}

func TestCreateBookingPriceMismatch(t *testing.T) {
	svc, _, _, _, provider, _ := newTestService()

	_, err := svc.CreateBooking(context.Background(), bookingReq(futureDay(10), futureDay(13), 200))
	var pErr *PriceMismatchError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, int64(200), pErr.Asserted)
	assert.Equal(t, int64(267), pErr.Expected)
	assert.Equal(t, 0, provider.sessions)
}

func TestCreateBookingPriceTolerance(t *testing.T) {
	svc, _, _, _, _, _ := newTestService()
	ctx := context.Background()

	// one unit of rounding drift either way is accepted
	_, err := svc.CreateBooking(ctx, bookingReq(futureDay(10), futureDay(13), 266))
	require.NoError(t, err)

	_, err = svc.CreateBooking(ctx, bookingReq(futureDay(20), futureDay(23), 268))
	require.NoError(t, err)

	_, err = svc.CreateBooking(ctx, bookingReq(futureDay(30), futureDay(33), 269))
	var pErr *PriceMismatchError
	assert.ErrorAs(t, err, &pErr)
}

func TestCreateBookingConflictCarriesRecords(t *testing.T) {
	svc, _, _, _, provider, _ := newTestService()
	ctx := context.Background()

	first, err := svc.CreateBooking(ctx, bookingReq(futureDay(10), futureDay(13), 267))
	require.NoError(t, err)

	req := bookingReq(futureDay(11), futureDay(14), 267)
	req.CustomerEmail = "grace@example.com"
	_, err = svc.CreateBooking(ctx, req)

	var cErr *ConflictError
	require.ErrorAs(t, err, &cErr)
	require.Len(t, cErr.Reservations, 1)
	assert.Equal(t, first.ReservationID, cErr.Reservations[0].ID)
	assert.Empty(t, cErr.Blocks)

	// the conflict was detected before a second session was opened
	assert.Equal(t, 1, provider.sessions)
}

func TestCreateBookingBlockedPeriodConflict(t *testing.T) {
	svc, _, _, blocks, _, _ := newTestService()
	blocks.blocks = append(blocks.blocks, model.BlockedPeriod{
		ID: 1, StartsAt: futureDay(10), EndsAt: futureDay(15), Reason: "maintenance",
	})

	_, err := svc.CreateBooking(context.Background(), bookingReq(futureDay(12), futureDay(14), 178))
	var cErr *ConflictError
	require.ErrorAs(t, err, &cErr)
	require.Len(t, cErr.Blocks, 1)
	assert.Equal(t, "maintenance", cErr.Blocks[0].Reason)
}

func TestCreateBookingSessionFailureLeavesNoState(t *testing.T) {
	svc, reservations, _, _, provider, _ := newTestService()
	provider.failSession = errors.New("provider down")

	_, err := svc.CreateBooking(context.Background(), bookingReq(futureDay(10), futureDay(13), 267))
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)

	free, err2 := svc.CheckAvailability(context.Background(), futureDay(10), futureDay(13))
	require.NoError(t, err2)
	assert.True(t, free.Available)
	assert.Empty(t, reservations.rows)
}

func TestCreateBookingVoidsSessionWhenInsertLoses(t *testing.T) {
	svc, reservations, _, _, provider, _ := newTestService()
	ctx := context.Background()

	// A row already claims the session id the provider will hand out,
	// on dates that do not overlap, so only the insert can fail.
	reservations.rows["r-existing"] = &model.Reservation{
		ID:        "r-existing",
		CheckIn:   futureDay(40),
		CheckOut:  futureDay(43),
		Status:    model.StatusConfirmed,
		SessionID: "cs_1",
		CreatedAt: time.Now().UTC(),
	}

	_, err := svc.CreateBooking(ctx, bookingReq(futureDay(10), futureDay(13), 267))
	var cErr *ConflictError
	require.ErrorAs(t, err, &cErr)

	// the orphaned session was expired provider-side
	assert.Equal(t, []string{"cs_1"}, provider.expired)
}

func TestConcurrentBookingsSingleWinner(t *testing.T) {
	svc, reservations, _, _, provider, _ := newTestService()
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateBooking(ctx, bookingReq(futureDay(10), futureDay(13), 267))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var cErr *ConflictError
		assert.ErrorAs(t, err, &cErr)
	}
	assert.Equal(t, 1, wins, "exactly one booking may win the range")

	pending := 0
	for _, r := range reservations.rows {
		if r.Status == model.StatusPending {
			pending++
		}
	}
	assert.Equal(t, 1, pending)

	// every losing session that was opened has been voided
	assert.Equal(t, provider.sessions-1, len(provider.expired))
}

func TestCreateBlockRejectsActiveReservations(t *testing.T) {
	svc, _, _, blocks, _, _ := newTestService()
	ctx := context.Background()

	intent, err := svc.CreateBooking(ctx, bookingReq(futureDay(10), futureDay(13), 267))
	require.NoError(t, err)

	_, err = svc.CreateBlock(ctx, futureDay(12), futureDay(16), "maintenance", 1)
	var cErr *ConflictError
	require.ErrorAs(t, err, &cErr)
	require.Len(t, cErr.Reservations, 1)
	assert.Equal(t, intent.ReservationID, cErr.Reservations[0].ID)
	assert.Empty(t, blocks.blocks)

	// non-overlapping range is fine
	block, err := svc.CreateBlock(ctx, futureDay(20), futureDay(25), "maintenance", 1)
	require.NoError(t, err)
	assert.NotZero(t, block.ID)
}

func TestCreateBlockValidatesRange(t *testing.T) {
	svc, _, _, _, _, _ := newTestService()
	var vErr *ValidationError

	_, err := svc.CreateBlock(context.Background(), futureDay(10), futureDay(10), "", 1)
	assert.ErrorAs(t, err, &vErr)

	_, err = svc.CreateBlock(context.Background(), time.Time{}, futureDay(10), "", 1)
	assert.ErrorAs(t, err, &vErr)
}

func TestConcurrentBlockAndBookingNeverCoexist(t *testing.T) {
	svc, _, _, _, _, _ := newTestService()

	// an admin blocking the range races a guest booking it; both run
	// under the booking lock so at most one may win
	var wg sync.WaitGroup
	var bookErr, blockErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, bookErr = svc.CreateBooking(context.Background(), bookingReq(futureDay(10), futureDay(13), 267))
	}()
	go func() {
		defer wg.Done()
		_, blockErr = svc.CreateBlock(context.Background(), futureDay(11), futureDay(14), "maintenance", 1)
	}()
	wg.Wait()

	wins := 0
	for _, err := range []error{bookErr, blockErr} {
		if err == nil {
			wins++
			continue
		}
		var cErr *ConflictError
		assert.ErrorAs(t, err, &cErr)
	}
	assert.Equal(t, 1, wins, "a reservation and a block must never cover the same dates")

	// whichever side lost, the ranges on record do not overlap
	avail, err := svc.availability(context.Background(), futureDay(10), futureDay(14))
	require.NoError(t, err)
	assert.Equal(t, 1, len(avail.Reservations)+len(avail.Blocks))
}

func TestCheckAvailabilityExpiresPendingReservation(t *testing.T) {
	svc, reservations, _, _, _, _ := newTestService()
	ctx := context.Background()

	intent, err := svc.CreateBooking(ctx, bookingReq(futureDay(10), futureDay(13), 267))
	require.NoError(t, err)

	taken, err := svc.CheckAvailability(ctx, futureDay(10), futureDay(13))
	require.NoError(t, err)
	assert.False(t, taken.Available)

	// age the pending row past the TTL
	reservations.mu.Lock()
	reservations.rows[intent.ReservationID].CreatedAt = time.Now().UTC().Add(-time.Hour)
	reservations.mu.Unlock()

	free, err := svc.CheckAvailability(ctx, futureDay(10), futureDay(13))
	require.NoError(t, err)
	assert.True(t, free.Available)

	res, err := reservations.GetByID(ctx, intent.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, res.Status)
}

func TestCheckAvailabilityRejectsBadRange(t *testing.T) {
	svc, _, _, _, _, _ := newTestService()
	var vErr *ValidationError

	_, err := svc.CheckAvailability(context.Background(), futureDay(13), futureDay(10))
	assert.ErrorAs(t, err, &vErr)

	_, err = svc.CheckAvailability(context.Background(), futureDay(-5), futureDay(2))
	assert.ErrorAs(t, err, &vErr)
}
