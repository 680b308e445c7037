package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"apartment-booking/internal/booking"
	"apartment-booking/internal/config"
	"apartment-booking/internal/database"
	"apartment-booking/internal/handler"
	"apartment-booking/internal/notify"
	"apartment-booking/internal/payment"
	"apartment-booking/internal/pricing"
	"apartment-booking/internal/queue"
	"apartment-booking/internal/repository"
	"apartment-booking/internal/router"
)

func main() {
	// .env is optional; real deployments pass the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on process environment")
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logrus.Warn("redis unavailable: rate limiting disabled, webhook dedup degraded")
	}

	reservations := repository.NewReservationRepo(db)
	customers := repository.NewCustomerRepo(db)
	blocks := repository.NewBlockedPeriodRepo(db)
	admins := repository.NewAdminRepo(db)

	seedAdmin(admins, cfg.BcryptCost)

	provider := payment.NewClient(cfg.PaymentAPIBase, cfg.PaymentAPIKey,
		cfg.PaymentSuccessURL, cfg.PaymentCancelURL, 10*time.Second)

	svc := &booking.Service{
		Reservations: reservations,
		Customers:    customers,
		Blocks:       blocks,
		Provider:     provider,
		Notifier:     notify.NewPublisher(),
		Pricing: pricing.Resolver{
			NightlyRate:        cfg.NightlyRate,
			WeeklyDiscountPct:  cfg.WeeklyDiscountPct,
			MonthlyDiscountPct: cfg.MonthlyDiscountPct,
		},
		Currency:       cfg.Currency,
		PendingTTL:     cfg.PendingTTL,
		PriceTolerance: cfg.PriceTolerance,
	}
	if rdb != nil {
		svc.EventGuard = &booking.RedisEventGuard{Client: rdb}
	}

	// Abandoned checkout sessions release their dates even when no
	// request triggers the lazy sweep.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := svc.ExpirePending(ctx); err != nil {
				logrus.WithError(err).Warn("pending sweep failed")
			} else if n > 0 {
				logrus.WithField("expired", n).Info("pending reservations swept")
			}
			cancel()
		}
	}()

	// Guest notification emails are consumed off the broker.
	go queue.StartConsumer(notify.NewSMTPSenderFromEnv())

	e := echo.New()
	e.HideBanner = true

	bookingHandler := handler.NewBookingHandler(svc)
	webhookHandler := handler.NewWebhookHandler(svc, cfg.WebhookSecret, cfg.WebhookTolerance)
	adminHandler := handler.NewAdminHandler(admins, reservations, blocks, svc, cfg.JWTSecret, cfg.AccessTTLMin)

	router.RegisterPublic(e, bookingHandler, webhookHandler, config.LoadRateLimitConfig(), rdb)
	router.RegisterAdmin(e, adminHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// seedAdmin creates the initial dashboard account from ADMIN_EMAIL
// and ADMIN_PASSWORD when both are set.  An already existing account
// is left untouched.
func seedAdmin(admins *repository.AdminRepo, bcryptCost int) {
	email, password := os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := admins.Create(ctx, email, password, bcryptCost); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return
		}
		logrus.WithError(err).Warn("seeding admin account failed")
		return
	}
	logrus.WithField("email", email).Info("admin account seeded")
}
