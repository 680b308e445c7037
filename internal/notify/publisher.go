package notify

import (
	"context"
	"time"

	"apartment-booking/internal/model"
	"apartment-booking/internal/queue"
	queue_publisher "apartment-booking/internal/service"
)

// Publisher turns reservation lifecycle changes into broker events.
// Publishing is best-effort; the caller treats failures as non-fatal
// and the reconciler will have already committed the state change.
type Publisher struct{}

// NewPublisher returns a Publisher.
func NewPublisher() *Publisher { return &Publisher{} }

const dateLayout = "2006-01-02"

// ReservationConfirmed publishes a confirmation event for the guest.
func (p *Publisher) ReservationConfirmed(ctx context.Context, res *model.Reservation, cust *model.Customer) error {
	ev := queue.ReservationConfirmedEvent{
		ReservationID: res.ID,
		CustomerName:  cust.FullName,
		CustomerEmail: cust.Email,
		CheckIn:       res.CheckIn.Format(dateLayout),
		CheckOut:      res.CheckOut.Format(dateLayout),
		Nights:        res.Nights,
		TotalPrice:    res.TotalPrice,
		Currency:      res.Currency,
		ConfirmedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	return queue_publisher.PublishReservationConfirmed(ctx, ev)
}

// ReservationCancelled publishes a cancellation event carrying the
// refund reference so the guest email can cite it.
func (p *Publisher) ReservationCancelled(ctx context.Context, res *model.Reservation, cust *model.Customer, refundID string, refundAmount int64) error {
	ev := queue.ReservationCancelledEvent{
		ReservationID: res.ID,
		CustomerName:  cust.FullName,
		CustomerEmail: cust.Email,
		CheckIn:       res.CheckIn.Format(dateLayout),
		CheckOut:      res.CheckOut.Format(dateLayout),
		RefundID:      refundID,
		RefundAmount:  refundAmount,
		Currency:      res.Currency,
		CancelledAt:   time.Now().UTC().Format(time.RFC3339),
	}
	return queue_publisher.PublishReservationCancelled(ctx, ev)
}
