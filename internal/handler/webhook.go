package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"apartment-booking/internal/booking"
	"apartment-booking/internal/payment"
)

// WebhookHandler ingests payment provider callbacks.  The signature
// is verified over the raw body before anything is parsed or any
// state is touched; an invalid signature leaves no trace beyond a
// log line.
type WebhookHandler struct {
	Svc       *booking.Service
	Secret    string
	Tolerance time.Duration
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(svc *booking.Service, secret string, tolerance time.Duration) *WebhookHandler {
	if svc == nil {
		panic("nil booking service passed to NewWebhookHandler")
	}
	return &WebhookHandler{Svc: svc, Secret: secret, Tolerance: tolerance}
}

// Handle processes POST /v1/webhooks/payment.  A 200 acknowledges the
// delivery; the provider retries on anything else, so transient
// failures return 500 to request a redelivery.
func (h *WebhookHandler) Handle(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}

	sig := c.Request().Header.Get("Payment-Signature")
	if err := payment.VerifySignature(h.Secret, body, sig, h.Tolerance); err != nil {
		logrus.WithError(err).Warn("webhook signature rejected")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	}

	ev, err := payment.ParseEvent(body)
	if err != nil {
		logrus.WithError(err).Warn("webhook payload rejected")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}

	if err := h.Svc.HandlePaymentEvent(c.Request().Context(), ev); err != nil {
		logrus.WithError(err).WithField("event_id", ev.ID).Error("webhook processing failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "processing failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
