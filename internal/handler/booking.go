package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"apartment-booking/internal/booking"
)

const dateLayout = "2006-01-02"

// BookingHandler serves the public booking surface: availability
// queries, booking creation and guest-initiated cancellation.  All
// state decisions live in the booking engine; this layer only binds,
// validates shapes and maps errors to HTTP responses.
type BookingHandler struct {
	Svc *booking.Service
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(svc *booking.Service) *BookingHandler {
	if svc == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc}
}

// Availability handles GET /v1/availability?check_in=...&check_out=...
// Dates are calendar days; the range is half-open, check-out day free.
func (h *BookingHandler) Availability(c echo.Context) error {
	checkIn, err := parseDate(c.QueryParam("check_in"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_in, want YYYY-MM-DD"})
	}
	checkOut, err := parseDate(c.QueryParam("check_out"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_out, want YYYY-MM-DD"})
	}

	avail, err := h.Svc.CheckAvailability(c.Request().Context(), checkIn, checkOut)
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.JSON(http.StatusOK, avail)
}

// CreateBooking handles POST /v1/bookings.  The client asserts the
// total it displayed to the guest; the server recomputes and rejects
// deviations beyond the rounding tolerance.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var body struct {
		CustomerName    string `json:"customer_name"`
		CustomerEmail   string `json:"customer_email"`
		CustomerPhone   string `json:"customer_phone"`
		CustomerCompany string `json:"customer_company"`
		CheckIn         string `json:"check_in"`
		CheckOut        string `json:"check_out"`
		Nights          int    `json:"nights"`
		TotalPrice      int64  `json:"total_price"`
		Notes           string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	checkIn, err := parseDate(body.CheckIn)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_in, want YYYY-MM-DD"})
	}
	checkOut, err := parseDate(body.CheckOut)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_out, want YYYY-MM-DD"})
	}

	intent, err := h.Svc.CreateBooking(c.Request().Context(), booking.BookingRequest{
		CustomerName:    body.CustomerName,
		CustomerEmail:   body.CustomerEmail,
		CustomerPhone:   body.CustomerPhone,
		CustomerCompany: body.CustomerCompany,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Nights:          body.Nights,
		ClientTotal:     body.TotalPrice,
		Notes:           body.Notes,
	})
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.JSON(http.StatusCreated, intent)
}

// Cancel handles POST /v1/reservations/:id/cancel for guests.
func (h *BookingHandler) Cancel(c echo.Context) error {
	return cancelReservation(c, h.Svc, "customer")
}

// cancelReservation is shared between the guest and the admin cancel
// endpoints; only the recorded actor differs.
func cancelReservation(c echo.Context, svc *booking.Service, actor string) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation id is required"})
	}
	var body struct {
		Reason string `json:"reason"`
	}
	// Body is optional for cancellations.
	_ = c.Bind(&body)

	result, err := svc.Cancel(c.Request().Context(), id, body.Reason, actor)
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// mapBookingError translates engine errors into HTTP responses.  The
// conflict and price-mismatch cases return structured payloads so the
// client can recover without another round trip.
func mapBookingError(c echo.Context, err error) error {
	var (
		vErr  *booking.ValidationError
		pErr  *booking.PriceMismatchError
		cErr  *booking.ConflictError
		provE *booking.ProviderError
	)
	switch {
	case errors.As(err, &vErr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": vErr.Msg})
	case errors.As(err, &pErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":          "price mismatch",
			"asserted_total": pErr.Asserted,
			"expected_total": pErr.Expected,
		})
	case errors.As(err, &cErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":                       "dates unavailable",
			"check_in":                    cErr.CheckIn.Format(dateLayout),
			"check_out":                   cErr.CheckOut.Format(dateLayout),
			"conflicting_reservations":    cErr.Reservations,
			"conflicting_blocked_periods": cErr.Blocks,
		})
	case errors.As(err, &provE):
		logrus.WithError(err).Error("payment provider failure")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider unavailable, retry later"})
	case errors.Is(err, booking.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, booking.ErrAlreadyCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation already cancelled"})
	case errors.Is(err, booking.ErrNotRefundable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation has no cleared payment to refund"})
	case errors.Is(err, booking.ErrNotCancellable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation can no longer be cancelled"})
	case errors.Is(err, booking.ErrStateDrift):
		logrus.WithError(err).Error("cancellation state drift")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancellation could not be completed consistently"})
	default:
		logrus.WithError(err).Error("booking request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// parseDate reads a YYYY-MM-DD calendar day as midnight UTC.
func parseDate(v string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, v, time.UTC)
}
