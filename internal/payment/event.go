package payment

import (
	"encoding/json"
	"fmt"
)

// EventKind discriminates the webhook event union.  Unknown kinds are
// represented explicitly so callers can acknowledge and ignore them
// instead of poking at a dynamically-shaped payload.
type EventKind string

const (
	EventSessionCompleted EventKind = "checkout.session.completed"
	EventPaymentFailed    EventKind = "checkout.session.payment_failed"
	EventUnknown          EventKind = "unknown"
)

// Event is the parsed form of a webhook delivery.  Exactly one of the
// typed payload fields is non-nil, matching Kind; for EventUnknown
// both are nil and RawType carries the provider's type string.
type Event struct {
	ID      string
	Kind    EventKind
	RawType string

	SessionCompleted *SessionCompletedData
	PaymentFailed    *PaymentFailedData
}

// SessionCompletedData is delivered when a checkout session was paid.
type SessionCompletedData struct {
	SessionID     string            `json:"session_id"`
	TransactionID string            `json:"transaction_id"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

// PaymentFailedData is delivered when a checkout session's payment
// was declined or abandoned.
type PaymentFailedData struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// envelope mirrors the provider's outer event shape: a type string
// plus an opaque data object decoded per kind.
type envelope struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ParseEvent decodes a raw webhook payload into the tagged Event
// union.  A malformed envelope is an error; an unrecognized type is
// not, it yields an EventUnknown the caller should acknowledge.
func ParseEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("payment: malformed event payload: %w", err)
	}
	ev := Event{ID: env.ID, RawType: env.Type}
	switch EventKind(env.Type) {
	case EventSessionCompleted:
		var d SessionCompletedData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return Event{}, fmt.Errorf("payment: malformed %s data: %w", env.Type, err)
		}
		ev.Kind = EventSessionCompleted
		ev.SessionCompleted = &d
	case EventPaymentFailed:
		var d PaymentFailedData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return Event{}, fmt.Errorf("payment: malformed %s data: %w", env.Type, err)
		}
		ev.Kind = EventPaymentFailed
		ev.PaymentFailed = &d
	default:
		ev.Kind = EventUnknown
	}
	return ev, nil
}
