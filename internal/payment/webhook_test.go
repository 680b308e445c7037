package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func TestVerifySignatureValid(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{}}`)
	header := SignatureHeader(testSecret, body, time.Now())
	assert.NoError(t, VerifySignature(testSecret, body, header, DefaultTolerance))
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	header := SignatureHeader("other_secret", body, time.Now())
	assert.ErrorIs(t, VerifySignature(testSecret, body, header, DefaultTolerance), ErrInvalidSignature)
}

func TestVerifySignatureTamperedBody(t *testing.T) {
	body := []byte(`{"amount":100}`)
	header := SignatureHeader(testSecret, body, time.Now())
	tampered := []byte(`{"amount":999}`)
	assert.ErrorIs(t, VerifySignature(testSecret, tampered, header, DefaultTolerance), ErrInvalidSignature)
}

func TestVerifySignatureStaleTimestamp(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	header := SignatureHeader(testSecret, body, time.Now().Add(-10*time.Minute))
	assert.ErrorIs(t, VerifySignature(testSecret, body, header, 5*time.Minute), ErrInvalidSignature)
}

func TestVerifySignatureFutureTimestamp(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	header := SignatureHeader(testSecret, body, time.Now().Add(10*time.Minute))
	assert.ErrorIs(t, VerifySignature(testSecret, body, header, 5*time.Minute), ErrInvalidSignature)
}

func TestVerifySignatureMalformedHeaders(t *testing.T) {
	body := []byte(`{}`)
	for _, header := range []string{
		"",
		"t=,v1=",
		"t=abc,v1=deadbeef",
		"v1=deadbeef",
		"t=1700000000",
		"garbage",
	} {
		assert.ErrorIs(t, VerifySignature(testSecret, body, header, DefaultTolerance), ErrInvalidSignature, "header=%q", header)
	}
}

func TestParseEventSessionCompleted(t *testing.T) {
	raw := []byte(`{
		"id": "evt_42",
		"type": "checkout.session.completed",
		"data": {
			"session_id": "cs_1",
			"transaction_id": "tx_1",
			"amount": 801,
			"currency": "EUR",
			"metadata": {"reservation_id": "r-1"}
		}
	}`)
	ev, err := ParseEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "evt_42", ev.ID)
	assert.Equal(t, EventSessionCompleted, ev.Kind)
	require.NotNil(t, ev.SessionCompleted)
	assert.Nil(t, ev.PaymentFailed)
	assert.Equal(t, "cs_1", ev.SessionCompleted.SessionID)
	assert.Equal(t, "tx_1", ev.SessionCompleted.TransactionID)
	assert.Equal(t, int64(801), ev.SessionCompleted.Amount)
	assert.Equal(t, "r-1", ev.SessionCompleted.Metadata["reservation_id"])
}

func TestParseEventPaymentFailed(t *testing.T) {
	raw := []byte(`{
		"id": "evt_43",
		"type": "checkout.session.payment_failed",
		"data": {"session_id": "cs_1", "reason": "card_declined"}
	}`)
	ev, err := ParseEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentFailed, ev.Kind)
	require.NotNil(t, ev.PaymentFailed)
	assert.Nil(t, ev.SessionCompleted)
	assert.Equal(t, "card_declined", ev.PaymentFailed.Reason)
}

func TestParseEventUnknownKind(t *testing.T) {
	raw := []byte(`{"id":"evt_44","type":"customer.updated","data":{"whatever":true}}`)
	ev, err := ParseEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, EventUnknown, ev.Kind)
	assert.Equal(t, "customer.updated", ev.RawType)
	assert.Nil(t, ev.SessionCompleted)
	assert.Nil(t, ev.PaymentFailed)
}

func TestParseEventMalformed(t *testing.T) {
	_, err := ParseEvent([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseEvent([]byte(`{"id":"evt_45","type":"checkout.session.completed","data":"not-an-object"}`))
	assert.Error(t, err)
}
