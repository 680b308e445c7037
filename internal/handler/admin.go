package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"apartment-booking/internal/booking"
	"apartment-booking/internal/repository"
	"apartment-booking/internal/utils"
)

// AdminHandler serves the dashboard endpoints: login, reservation
// listing, aggregate stats, blocked-period management and admin
// cancellations.  All routes except Login sit behind AdminAuth +
// RequireRole("ADMIN").
type AdminHandler struct {
	Admins       *repository.AdminRepo
	Reservations *repository.ReservationRepo
	Blocks       *repository.BlockedPeriodRepo
	Svc          *booking.Service

	JWTSecret    string
	AccessTTLMin int
}

// NewAdminHandler constructs an AdminHandler with the provided
// repositories.  All dependencies must be non-nil.
func NewAdminHandler(admins *repository.AdminRepo, reservations *repository.ReservationRepo, blocks *repository.BlockedPeriodRepo, svc *booking.Service, jwtSecret string, accessTTLMin int) *AdminHandler {
	if admins == nil || reservations == nil || blocks == nil || svc == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{
		Admins:       admins,
		Reservations: reservations,
		Blocks:       blocks,
		Svc:          svc,
		JWTSecret:    jwtSecret,
		AccessTTLMin: accessTTLMin,
	}
}

// Login handles POST /v1/admin/login.  Invalid email and wrong
// password return the same 401 body so credentials cannot be probed.
func (h *AdminHandler) Login(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil || body.Email == "" || body.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	admin, err := h.Admins.GetByEmail(c.Request().Context(), body.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !admin.IsActive || !utils.VerifyPassword(admin.PasswordHash, body.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	tok, err := utils.NewAccessToken(h.JWTSecret, admin.ID, "ADMIN", h.AccessTTLMin)
	if err != nil {
		logrus.WithError(err).Error("signing admin token failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue token"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": tok.Token,
		"expires_at":   tok.Exp,
	})
}

// ListReservations handles GET /v1/admin/reservations with limit and
// offset paging.
func (h *AdminHandler) ListReservations(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}
	details, err := h.Reservations.ListAll(c.Request().Context(), limit, offset)
	if err != nil {
		logrus.WithError(err).Error("listing reservations failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": details})
}

// Stats handles GET /v1/admin/stats.
func (h *AdminHandler) Stats(c echo.Context) error {
	stats, err := h.Reservations.GetStats(c.Request().Context())
	if err != nil {
		logrus.WithError(err).Error("computing stats failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, stats)
}

// ListBlockedPeriods handles GET /v1/admin/blocked-periods.
func (h *AdminHandler) ListBlockedPeriods(c echo.Context) error {
	blocks, err := h.Blocks.ListAll(c.Request().Context())
	if err != nil {
		logrus.WithError(err).Error("listing blocked periods failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"blocked_periods": blocks})
}

// CreateBlockedPeriod handles POST /v1/admin/blocked-periods.  A block
// may not overlap existing pending or confirmed reservations; guests
// hold those dates.
func (h *AdminHandler) CreateBlockedPeriod(c echo.Context) error {
	var body struct {
		StartsAt string `json:"starts_at"`
		EndsAt   string `json:"ends_at"`
		Reason   string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	starts, err := parseDate(body.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid starts_at, want YYYY-MM-DD"})
	}
	ends, err := parseDate(body.EndsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ends_at, want YYYY-MM-DD"})
	}
	// The overlap check and the insert must share the booking lock
	// with CreateBooking, so the engine owns both.
	block, err := h.Svc.CreateBlock(c.Request().Context(), starts, ends, body.Reason, adminIDFromContext(c))
	if err != nil {
		return mapBookingError(c, err)
	}
	return c.JSON(http.StatusCreated, block)
}

// DeleteBlockedPeriod handles DELETE /v1/admin/blocked-periods/:id.
func (h *AdminHandler) DeleteBlockedPeriod(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid blocked period id"})
	}
	if err := h.Blocks.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "blocked period not found"})
		}
		logrus.WithError(err).Error("deleting blocked period failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// CancelReservation handles POST /v1/admin/reservations/:id/cancel.
// Same flow as the guest endpoint; the audit trail records the admin
// as the acting party.
func (h *AdminHandler) CancelReservation(c echo.Context) error {
	return cancelReservation(c, h.Svc, "admin")
}

// adminIDFromContext reads the authenticated admin id stored by the
// auth middleware.  JWT numeric claims decode as float64.
func adminIDFromContext(c echo.Context) uint64 {
	switch v := c.Get("admin_id").(type) {
	case float64:
		return uint64(v)
	case uint64:
		return v
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
