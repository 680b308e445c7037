// Package payment contains the payment-provider boundary: the
// interface the booking core calls, the signed webhook event types it
// consumes, and an HTTP client speaking the provider's checkout API.
package payment

import "context"

// Session is a provider-hosted checkout reference created per booking
// attempt.  The customer is redirected to URL to complete payment.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Refund is the provider's record of a refund issued against a
// transaction.
type Refund struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}

// Provider is the contract the booking core depends on.  Mutating
// calls (CreateSession, CreateRefund) must never be retried
// automatically; a timeout is surfaced to the caller as a retryable
// server error instead.
type Provider interface {
	// CreateSession opens a checkout session for the given amount in
	// whole currency units.  Metadata is attached to the session and
	// echoed back in webhook events.
	CreateSession(ctx context.Context, amount int64, currency string, metadata map[string]string) (Session, error)

	// ExpireSession voids a session that will never be paid, e.g.
	// when persisting the reservation failed after the session was
	// opened.  Best effort; errors are for the caller to log.
	ExpireSession(ctx context.Context, sessionID string) error

	// CreateRefund refunds the given amount against a cleared
	// transaction.  Metadata tags the refund for traceability.
	CreateRefund(ctx context.Context, transactionID string, amount int64, metadata map[string]string) (Refund, error)
}
