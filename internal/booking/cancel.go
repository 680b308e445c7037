package booking

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"apartment-booking/internal/model"
	"apartment-booking/internal/repository"
)

// RefundTier maps a notice window to a refund percentage: a
// cancellation landing within WithinHours of check-in refunds
// Percent of the total.  Tiers are evaluated in order.
type RefundTier struct {
	WithinHours float64
	Percent     int
}

// RefundPolicy computes the refund percentage from the notice period.
// An empty policy refunds 100% unconditionally, which is this
// property's deliberate business choice.
type RefundPolicy struct {
	Tiers []RefundTier
}

// Percent returns the refund percentage for a cancellation made
// hoursUntilCheckIn before the stay starts.
func (p RefundPolicy) Percent(hoursUntilCheckIn float64) int {
	for _, t := range p.Tiers {
		if hoursUntilCheckIn < t.WithinHours {
			return t.Percent
		}
	}
	return 100
}

// CancelResult reports the outcome of a successful cancellation.
type CancelResult struct {
	ReservationID string `json:"reservation_id"`
	RefundAmount  int64  `json:"refund_amount"`
	RefundPercent int    `json:"refund_percent"`
	RefundID      string `json:"refund_id"`
	Message       string `json:"message"`
}

// Cancel refunds a confirmed reservation and flips it to cancelled.
// The refund is issued to the provider first; only after it clears is
// the state swapped with a conditional update, so two concurrent
// cancellations can never both refund: the in-process lock serializes
// the attempts and the CAS guards against other processes.  A CAS
// miss after the refund already happened is a state drift between
// this store and the provider's ledger; it is logged at error level
// with full context and surfaced as ErrStateDrift.
func (s *Service) Cancel(ctx context.Context, reservationID, reason, actor string) (*CancelResult, error) {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()

	res, err := s.Reservations.GetByID(ctx, reservationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	if res.Status == model.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if res.TransactionID == nil || res.PaymentStatus != model.PaymentPaid {
		// Releasing a never-paid pending reservation is the TTL
		// sweep's job, not the refund flow's.
		return nil, ErrNotRefundable
	}
	if res.Status != model.StatusConfirmed {
		// A completed stay is paid and carries a transaction id, but
		// the state machine has no completed -> cancelled edge.  The
		// CAS below could never succeed, so reject before any money
		// moves.
		return nil, ErrNotCancellable
	}

	percent := s.Refunds.Percent(time.Until(res.CheckIn).Hours())
	amount := int64(math.Round(float64(res.TotalPrice) * float64(percent) / 100))

	refund, err := s.Provider.CreateRefund(ctx, *res.TransactionID, amount, map[string]string{
		"reservation_id":  res.ID,
		"reason":          reason,
		"actor":           actor,
		"idempotency_key": uuid.NewString(),
	})
	if err != nil {
		return nil, &ProviderError{Op: "create refund", Err: err}
	}

	entry := model.NewMetadataEntry("cancelled", actor, map[string]string{
		"reason":        reason,
		"refund_id":     refund.ID,
		"refund_amount": strconv.FormatInt(amount, 10),
	})
	swapped, err := s.Reservations.UpdateStatusIf(ctx, res.ID,
		model.StatusConfirmed, model.StatusCancelled, model.PaymentRefunded, nil, entry)
	if err != nil {
		return nil, err
	}
	if !swapped {
		// The refund exists on the provider side with no local state
		// change to match.  This needs a human.
		logrus.WithFields(logrus.Fields{
			"reservation_id": res.ID,
			"transaction_id": *res.TransactionID,
			"refund_id":      refund.ID,
			"refund_amount":  amount,
			"actor":          actor,
		}).Error("ALERT: refund issued but conditional cancel update matched zero rows")
		return nil, ErrStateDrift
	}

	logrus.WithFields(logrus.Fields{
		"reservation_id": res.ID,
		"refund_id":      refund.ID,
		"refund_amount":  amount,
		"refund_percent": percent,
		"actor":          actor,
	}).Info("reservation cancelled and refunded")

	res.Status = model.StatusCancelled
	res.PaymentStatus = model.PaymentRefunded
	if s.Notifier != nil {
		cust, cerr := s.Customers.GetByID(ctx, res.CustomerID)
		if cerr != nil {
			logrus.WithError(cerr).WithField("reservation_id", res.ID).
				Warn("loading customer for cancellation notification failed")
		} else if nerr := s.Notifier.ReservationCancelled(ctx, res, cust, refund.ID, amount); nerr != nil {
			logrus.WithError(nerr).WithField("reservation_id", res.ID).
				Warn("cancellation notification failed")
		}
	}

	return &CancelResult{
		ReservationID: res.ID,
		RefundAmount:  amount,
		RefundPercent: percent,
		RefundID:      refund.ID,
		Message:       "reservation cancelled, refund issued",
	}, nil
}
