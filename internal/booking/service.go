// Package booking is the reservation consistency engine: it decides
// whether a date range is free, atomically reserves it against a
// payment session, reconciles asynchronous provider events into
// booking state, and processes cancellations with refund race
// protection.  Everything else in the system consumes this package's
// outputs.
package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"apartment-booking/internal/model"
	"apartment-booking/internal/payment"
	"apartment-booking/internal/pricing"
	"apartment-booking/internal/repository"
)

// ReservationStore is the persistence contract the engine needs.
// *repository.ReservationRepo implements it against MySQL; tests use
// an in-memory fake.
type ReservationStore interface {
	Create(ctx context.Context, res *model.Reservation) error
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	GetBySessionID(ctx context.Context, sessionID string) (*model.Reservation, error)
	FindOverlapping(ctx context.Context, checkIn, checkOut time.Time) ([]model.Reservation, error)
	UpdateStatusIf(ctx context.Context, id string, from, to model.Status, pay model.PaymentStatus, transactionID *string, entry model.MetadataEntry) (bool, error)
	ExpireOverdue(ctx context.Context, ttl time.Duration) ([]string, error)
}

// CustomerStore resolves guest identities by email.
type CustomerStore interface {
	UpsertByEmail(ctx context.Context, c *model.Customer) error
	GetByID(ctx context.Context, id uint64) (*model.Customer, error)
}

// BlockStore persists admin-declared blocked periods and exposes them
// for overlap checks.
type BlockStore interface {
	Create(ctx context.Context, b *model.BlockedPeriod) error
	FindOverlapping(ctx context.Context, checkIn, checkOut time.Time) ([]model.BlockedPeriod, error)
}

// Notifier delivers guest notifications.  Fire-and-forget from this
// package's perspective: failures are logged, never propagated as the
// operation's failure.
type Notifier interface {
	ReservationConfirmed(ctx context.Context, res *model.Reservation, cust *model.Customer) error
	ReservationCancelled(ctx context.Context, res *model.Reservation, cust *model.Customer, refundID string, refundAmount int64) error
}

// Service wires the engine's collaborators together.  Handlers hold a
// single *Service.
type Service struct {
	Reservations ReservationStore
	Customers    CustomerStore
	Blocks       BlockStore
	Provider     payment.Provider
	Notifier     Notifier
	Pricing      pricing.Resolver
	Refunds      RefundPolicy

	Currency       string
	PendingTTL     time.Duration // pending reservations older than this are expired
	PriceTolerance int64         // max client/server total deviation, whole units

	// EventGuard short-circuits webhook replays; see reconciler.go.
	EventGuard EventGuard

	// The unit has exactly one bookable apartment, so a process-wide
	// write lock is enough to make check-then-insert atomic.  The
	// cancel lock serializes refund attempts; the CAS write remains
	// the cross-process guard.
	bookMu   sync.Mutex
	cancelMu sync.Mutex
}

// Availability is the answer to a date-range query, including the
// blocking records when the range is taken.
type Availability struct {
	Available    bool                  `json:"available"`
	Reservations []model.Reservation   `json:"conflicting_reservations,omitempty"`
	Blocks       []model.BlockedPeriod `json:"conflicting_blocked_periods,omitempty"`
}

// ValidateRange enforces the caller-boundary rules: check-out
// strictly after check-in, and check-in not before today (UTC).
func ValidateRange(checkIn, checkOut time.Time) error {
	if checkIn.IsZero() || checkOut.IsZero() {
		return &ValidationError{Msg: "check_in and check_out are required"}
	}
	if !checkOut.After(checkIn) {
		return &ValidationError{Msg: "check_out must be after check_in"}
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if checkIn.Before(today) {
		return &ValidationError{Msg: "check_in is in the past"}
	}
	return nil
}

// CheckAvailability reports whether [checkIn, checkOut) is free and,
// when it is not, which records block it.  Overdue pending
// reservations are expired first so an abandoned checkout session
// does not hold dates forever.
func (s *Service) CheckAvailability(ctx context.Context, checkIn, checkOut time.Time) (Availability, error) {
	if err := ValidateRange(checkIn, checkOut); err != nil {
		return Availability{}, err
	}
	s.expirePending(ctx)
	return s.availability(ctx, checkIn, checkOut)
}

func (s *Service) availability(ctx context.Context, checkIn, checkOut time.Time) (Availability, error) {
	overlapping, err := s.Reservations.FindOverlapping(ctx, checkIn, checkOut)
	if err != nil {
		return Availability{}, err
	}
	blocks, err := s.Blocks.FindOverlapping(ctx, checkIn, checkOut)
	if err != nil {
		return Availability{}, err
	}
	return Availability{
		Available:    len(overlapping) == 0 && len(blocks) == 0,
		Reservations: overlapping,
		Blocks:       blocks,
	}, nil
}

// expirePending sweeps overdue pending reservations.  Best effort;
// the periodic sweeper in main covers quiet periods.
func (s *Service) expirePending(ctx context.Context) {
	if s.PendingTTL <= 0 {
		return
	}
	ids, err := s.Reservations.ExpireOverdue(ctx, s.PendingTTL)
	if err != nil {
		logrus.WithError(err).Warn("expiring overdue pending reservations failed")
		return
	}
	for _, id := range ids {
		logrus.WithField("reservation_id", id).Info("pending reservation expired")
	}
}

// ExpirePending runs one sweep of the pending-TTL policy and returns
// how many reservations were expired.  Exposed for the background
// ticker in main.
func (s *Service) ExpirePending(ctx context.Context) (int, error) {
	if s.PendingTTL <= 0 {
		return 0, nil
	}
	ids, err := s.Reservations.ExpireOverdue(ctx, s.PendingTTL)
	return len(ids), err
}

// BookingRequest carries a client's booking intent.
type BookingRequest struct {
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerCompany string
	CheckIn         time.Time
	CheckOut        time.Time
	Nights          int // optional; must agree with the range when set
	ClientTotal     int64
	Notes           string
}

// BookingIntent is returned on success: the caller redirects the
// guest to RedirectURL to pay, and the reservation sits in pending
// until the provider's webhook settles it.
type BookingIntent struct {
	ReservationID string        `json:"reservation_id"`
	SessionID     string        `json:"session_id"`
	RedirectURL   string        `json:"redirect_url"`
	Quote         pricing.Quote `json:"quote"`
}

// CreateBooking validates the request, recomputes the price server-
// side, opens a payment session and persists a pending reservation
// referencing it.  The availability check and the insert run under
// the booking lock as a single atomic unit; the session is created
// first and voided if persistence loses, so neither side effect is
// left dangling.
func (s *Service) CreateBooking(ctx context.Context, req BookingRequest) (*BookingIntent, error) {
	if err := ValidateRange(req.CheckIn, req.CheckOut); err != nil {
		return nil, err
	}
	if req.CustomerName == "" || req.CustomerEmail == "" {
		return nil, &ValidationError{Msg: "customer name and email are required"}
	}
	nights := int(req.CheckOut.Sub(req.CheckIn) / (24 * time.Hour))
	if req.Nights != 0 && req.Nights != nights {
		return nil, &ValidationError{Msg: "nights does not match the requested date range"}
	}

	quote, err := s.Pricing.Resolve(nights)
	if err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}
	if diff := quote.TotalPrice - req.ClientTotal; diff > s.PriceTolerance || diff < -s.PriceTolerance {
		return nil, &PriceMismatchError{Asserted: req.ClientTotal, Expected: quote.TotalPrice}
	}

	s.expirePending(ctx)

	// Fail fast before touching the provider; the authoritative check
	// happens again under the lock below.
	avail, err := s.availability(ctx, req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}
	if !avail.Available {
		return nil, &ConflictError{CheckIn: req.CheckIn, CheckOut: req.CheckOut, Reservations: avail.Reservations, Blocks: avail.Blocks}
	}

	cust := &model.Customer{
		FullName: req.CustomerName,
		Email:    req.CustomerEmail,
		Phone:    req.CustomerPhone,
		Company:  req.CustomerCompany,
	}
	if err := s.Customers.UpsertByEmail(ctx, cust); err != nil {
		return nil, err
	}

	reservationID := uuid.NewString()
	session, err := s.Provider.CreateSession(ctx, quote.TotalPrice, s.Currency, map[string]string{
		"reservation_id": reservationID,
		"customer_email": cust.Email,
		"check_in":       req.CheckIn.Format("2006-01-02"),
		"check_out":      req.CheckOut.Format("2006-01-02"),
	})
	if err != nil {
		return nil, &ProviderError{Op: "create session", Err: err}
	}

	res := &model.Reservation{
		ID:              reservationID,
		CustomerID:      cust.ID,
		CheckIn:         req.CheckIn.UTC(),
		CheckOut:        req.CheckOut.UTC(),
		Nights:          nights,
		BasePrice:       quote.BasePrice,
		DiscountPercent: quote.DiscountPercent,
		DiscountAmount:  quote.DiscountAmount,
		TotalPrice:      quote.TotalPrice,
		Currency:        s.Currency,
		Status:          model.StatusPending,
		PaymentStatus:   model.PaymentPending,
		SessionID:       session.ID,
		Notes:           req.Notes,
		Metadata: []model.MetadataEntry{
			model.NewMetadataEntry("created", "customer", map[string]string{"session_id": session.ID}),
		},
	}

	s.bookMu.Lock()
	defer s.bookMu.Unlock()

	avail, err = s.availability(ctx, req.CheckIn, req.CheckOut)
	if err != nil {
		s.voidSession(ctx, session.ID)
		return nil, err
	}
	if !avail.Available {
		s.voidSession(ctx, session.ID)
		return nil, &ConflictError{CheckIn: req.CheckIn, CheckOut: req.CheckOut, Reservations: avail.Reservations, Blocks: avail.Blocks}
	}
	if err := s.Reservations.Create(ctx, res); err != nil {
		s.voidSession(ctx, session.ID)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{CheckIn: req.CheckIn, CheckOut: req.CheckOut}
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"reservation_id": reservationID,
		"session_id":     session.ID,
		"check_in":       req.CheckIn.Format("2006-01-02"),
		"check_out":      req.CheckOut.Format("2006-01-02"),
		"total":          quote.TotalPrice,
	}).Info("pending reservation created")

	return &BookingIntent{
		ReservationID: reservationID,
		SessionID:     session.ID,
		RedirectURL:   session.URL,
		Quote:         quote,
	}, nil
}

// CreateBlock declares [startsAt, endsAt) unavailable.  The overlap
// check against active reservations and the insert run under the
// booking lock: without it an admin could check while a guest's
// booking is in flight and end up with a block and a reservation
// covering the same dates.
func (s *Service) CreateBlock(ctx context.Context, startsAt, endsAt time.Time, reason string, createdBy uint64) (*model.BlockedPeriod, error) {
	if startsAt.IsZero() || endsAt.IsZero() {
		return nil, &ValidationError{Msg: "starts_at and ends_at are required"}
	}
	if !endsAt.After(startsAt) {
		return nil, &ValidationError{Msg: "ends_at must be after starts_at"}
	}

	s.bookMu.Lock()
	defer s.bookMu.Unlock()

	taken, err := s.Reservations.FindOverlapping(ctx, startsAt, endsAt)
	if err != nil {
		return nil, err
	}
	if len(taken) > 0 {
		return nil, &ConflictError{CheckIn: startsAt, CheckOut: endsAt, Reservations: taken}
	}

	block := &model.BlockedPeriod{
		StartsAt:  startsAt.UTC(),
		EndsAt:    endsAt.UTC(),
		Reason:    reason,
		CreatedBy: createdBy,
	}
	if err := s.Blocks.Create(ctx, block); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"block_id":  block.ID,
		"starts_at": startsAt.Format("2006-01-02"),
		"ends_at":   endsAt.Format("2006-01-02"),
	}).Info("blocked period created")
	return block, nil
}

// voidSession expires a checkout session that will never be paid.
// Best effort; the pending-TTL sweep is the backstop on provider side
// failures.
func (s *Service) voidSession(ctx context.Context, sessionID string) {
	if err := s.Provider.ExpireSession(ctx, sessionID); err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).
			Warn("failed to void orphaned payment session")
	}
}
