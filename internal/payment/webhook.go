package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Webhook signature scheme: the provider sends a header of the form
//
//	t=<unix seconds>,v1=<hex hmac-sha256(secret, "<t>.<raw body>")>
//
// Verification recomputes the MAC over the raw payload and compares in
// constant time.  The timestamp bounds replay of captured deliveries.

// ErrInvalidSignature is returned for missing, malformed, stale or
// non-matching signatures.  Callers must reject the request before
// touching any state.
var ErrInvalidSignature = errors.New("payment: invalid webhook signature")

// DefaultTolerance is how far a delivery timestamp may drift from the
// local clock before the signature is considered stale.
const DefaultTolerance = 5 * time.Minute

// VerifySignature checks header against the raw request body using
// the shared secret.  A zero tolerance falls back to DefaultTolerance.
func VerifySignature(secret string, body []byte, header string, tolerance time.Duration) error {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	ts, sig, err := splitSignatureHeader(header)
	if err != nil {
		return err
	}
	at := time.Unix(ts, 0)
	if d := time.Since(at); d > tolerance || d < -tolerance {
		return ErrInvalidSignature
	}
	expected := ComputeSignature(secret, body, ts)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrInvalidSignature
	}
	return nil
}

// ComputeSignature returns the hex MAC for a payload at a timestamp.
// Exposed so tests and local tooling can produce valid headers.
func ComputeSignature(secret string, body []byte, unixTS int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", unixTS)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader renders the full header value for a payload; the
// counterpart of VerifySignature.
func SignatureHeader(secret string, body []byte, at time.Time) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, ComputeSignature(secret, body, ts))
}

func splitSignatureHeader(header string) (int64, string, error) {
	var ts int64
	var sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, "", ErrInvalidSignature
			}
			ts = n
		case "v1":
			sig = v
		}
	}
	if ts == 0 || sig == "" {
		return 0, "", ErrInvalidSignature
	}
	return ts, sig, nil
}
