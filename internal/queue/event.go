// Package queue defines message payloads exchanged over the message
// broker and the background consumer that turns them into guest
// notifications.
package queue

// ReservationConfirmedEvent is published when a payment clears and a
// reservation moves to confirmed.  It carries enough information for
// downstream consumers to notify the guest without querying the
// primary database.
type ReservationConfirmedEvent struct {
	ReservationID string `json:"reservation_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	Nights        int    `json:"nights"`
	TotalPrice    int64  `json:"total_price"`
	Currency      string `json:"currency"`
	ConfirmedAt   string `json:"confirmed_at"`
}

// ReservationCancelledEvent is published when a reservation is
// cancelled and its refund has been issued.
type ReservationCancelledEvent struct {
	ReservationID string `json:"reservation_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	RefundID      string `json:"refund_id"`
	RefundAmount  int64  `json:"refund_amount"`
	Currency      string `json:"currency"`
	CancelledAt   string `json:"cancelled_at"`
}

// Queue names.  Both are declared durable by publisher and consumer.
const (
	ConfirmedQueueName = "reservation.confirmed"
	CancelledQueueName = "reservation.cancelled"
)
