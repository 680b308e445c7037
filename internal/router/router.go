package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"apartment-booking/internal/config"
	"apartment-booking/internal/handler"
	"apartment-booking/internal/middleware"
)

// RegisterPublic registers the guest-facing endpoints under /v1 plus
// the health check.  The webhook route sits outside the rate limiter:
// provider retries must never be throttled away.
func RegisterPublic(e *echo.Echo, b *handler.BookingHandler, w *handler.WebhookHandler, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	g := e.Group("/v1", middleware.NewTokenBucket(rlCfg, rdb))
	g.GET("/availability", b.Availability)
	g.POST("/bookings", b.CreateBooking)
	g.POST("/reservations/:id/cancel", b.Cancel)

	e.POST("/v1/webhooks/payment", w.Handle)
}

// RegisterAdmin registers the dashboard endpoints under /v1/admin.
// Login is open; everything else requires a valid JWT with the ADMIN
// role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	e.POST("/v1/admin/login", a.Login)

	g := e.Group(
		"/v1/admin",
		middleware.AdminAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	g.GET("/reservations", a.ListReservations)
	g.POST("/reservations/:id/cancel", a.CancelReservation)
	g.GET("/stats", a.Stats)
	g.GET("/blocked-periods", a.ListBlockedPeriods)
	g.POST("/blocked-periods", a.CreateBlockedPeriod)
	g.DELETE("/blocked-periods/:id", a.DeleteBlockedPeriod)
}
