package booking

import (
	"errors"
	"fmt"
	"time"

	"apartment-booking/internal/model"
)

// Sentinel errors surfaced by the booking core.  Handlers translate
// them into HTTP responses; none of them implies partial state was
// left behind, with the single exception of ErrStateDrift which is
// raised loudly for exactly that reason.
var (
	// ErrReservationNotFound is returned when no reservation exists
	// for the given id.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrAlreadyCancelled is returned when a cancellation targets a
	// reservation that is already cancelled.  The losing side of two
	// concurrent cancellation requests receives this.
	ErrAlreadyCancelled = errors.New("reservation already cancelled")

	// ErrNotRefundable is returned when a cancellation targets a
	// reservation with no cleared payment: nothing to refund against.
	ErrNotRefundable = errors.New("reservation has no cleared payment to refund")

	// ErrNotCancellable is returned when a cancellation targets a
	// reservation in a state the lifecycle does not allow to cancel,
	// such as a completed stay.  Rejected before any provider call.
	ErrNotCancellable = errors.New("reservation state does not allow cancellation")

	// ErrStateDrift is returned when a refund was issued to the
	// provider but the conditional state flip found zero matching
	// rows.  The provider ledger and the local store disagree; this
	// must reach an operator, never a silent log line.
	ErrStateDrift = errors.New("refund issued but reservation state changed concurrently")
)

// ValidationError reports synchronously rejected input.  No side
// effects have occurred.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation: " + e.Msg }

// PriceMismatchError is returned when the client-asserted total
// deviates from the server-computed price beyond the rounding
// tolerance.  It carries the expected total so the caller can
// self-correct.
type PriceMismatchError struct {
	Asserted int64 `json:"asserted"`
	Expected int64 `json:"expected"`
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf("price mismatch: client asserted %d, server computed %d", e.Asserted, e.Expected)
}

// ConflictError is returned when the requested dates are taken.  It
// carries the blocking records so the caller can suggest alternatives.
type ConflictError struct {
	CheckIn      time.Time             `json:"check_in"`
	CheckOut     time.Time             `json:"check_out"`
	Reservations []model.Reservation   `json:"reservations,omitempty"`
	Blocks       []model.BlockedPeriod `json:"blocked_periods,omitempty"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("dates unavailable: %d conflicting records for [%s, %s)",
		len(e.Reservations)+len(e.Blocks),
		e.CheckIn.Format("2006-01-02"), e.CheckOut.Format("2006-01-02"))
}

// ProviderError wraps a payment-provider failure.  These are
// retryable server errors: the operation left no partial local state.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string { return "payment provider " + e.Op + ": " + e.Err.Error() }
func (e *ProviderError) Unwrap() error { return e.Err }
