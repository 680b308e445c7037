package booking

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"apartment-booking/internal/model"
	"apartment-booking/internal/payment"
	"apartment-booking/internal/repository"
)

// HandlePaymentEvent reconciles one verified provider event into
// booking state.  Provider delivery is at-least-once, so every path
// here is idempotent: duplicates, unknown sessions and unknown event
// kinds are all acknowledged without error.  Signature verification
// happens at the HTTP boundary before this method is reached.
func (s *Service) HandlePaymentEvent(ctx context.Context, ev payment.Event) error {
	if s.EventGuard != nil && ev.ID != "" {
		seen, err := s.EventGuard.Seen(ctx, ev.ID)
		if err != nil {
			logrus.WithError(err).Warn("event guard lookup failed, falling through to CAS")
		} else if seen {
			logrus.WithField("event_id", ev.ID).Debug("duplicate webhook delivery short-circuited")
			return nil
		}
	}

	var err error
	switch ev.Kind {
	case payment.EventSessionCompleted:
		err = s.applySessionCompleted(ctx, ev.SessionCompleted)
	case payment.EventPaymentFailed:
		err = s.applyPaymentFailed(ctx, ev.PaymentFailed)
	default:
		// The provider delivers event types this service never asked
		// for; acknowledge so it stops retrying.
		logrus.WithField("type", ev.RawType).Info("ignoring unknown payment event kind")
		return nil
	}
	if err != nil {
		return err
	}

	if s.EventGuard != nil && ev.ID != "" {
		if gerr := s.EventGuard.MarkSeen(ctx, ev.ID); gerr != nil {
			logrus.WithError(gerr).Warn("event guard mark failed")
		}
	}
	return nil
}

func (s *Service) applySessionCompleted(ctx context.Context, d *payment.SessionCompletedData) error {
	res, err := s.Reservations.GetBySessionID(ctx, d.SessionID)
	if errors.Is(err, repository.ErrNotFound) {
		// Not ours: the provider account may serve other products.
		logrus.WithField("session_id", d.SessionID).Info("payment event for unknown session acknowledged")
		return nil
	}
	if err != nil {
		return err
	}

	if res.Status != model.StatusPending {
		// Duplicate delivery after a confirmation already landed.
		logrus.WithFields(logrus.Fields{
			"reservation_id": res.ID,
			"status":         res.Status,
		}).Debug("session completed event is a no-op")
		return nil
	}

	txn := d.TransactionID
	entry := model.NewMetadataEntry("confirmed", "provider", map[string]string{
		"transaction_id": txn,
	})
	swapped, err := s.Reservations.UpdateStatusIf(ctx, res.ID,
		model.StatusPending, model.StatusConfirmed, model.PaymentPaid, &txn, entry)
	if err != nil {
		return err
	}
	if !swapped {
		// A concurrent delivery won the swap; same end state either way.
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"reservation_id": res.ID,
		"transaction_id": txn,
		"amount":         res.TotalPrice,
	}).Info("reservation confirmed")

	res.Status = model.StatusConfirmed
	res.PaymentStatus = model.PaymentPaid
	res.TransactionID = &txn
	s.notifyConfirmed(ctx, res)
	return nil
}

func (s *Service) applyPaymentFailed(ctx context.Context, d *payment.PaymentFailedData) error {
	res, err := s.Reservations.GetBySessionID(ctx, d.SessionID)
	if errors.Is(err, repository.ErrNotFound) {
		logrus.WithField("session_id", d.SessionID).Info("payment event for unknown session acknowledged")
		return nil
	}
	if err != nil {
		return err
	}
	if res.Status != model.StatusPending {
		return nil
	}

	entry := model.NewMetadataEntry("payment_failed", "provider", map[string]string{
		"reason": d.Reason,
	})
	swapped, err := s.Reservations.UpdateStatusIf(ctx, res.ID,
		model.StatusPending, model.StatusFailed, model.PaymentFailed, nil, entry)
	if err != nil {
		return err
	}
	if swapped {
		logrus.WithFields(logrus.Fields{
			"reservation_id": res.ID,
			"reason":         d.Reason,
		}).Info("reservation failed, dates released")
	}
	return nil
}

// notifyConfirmed sends the best-effort confirmation notification.
// The money has moved; a missed email never rolls that back.
func (s *Service) notifyConfirmed(ctx context.Context, res *model.Reservation) {
	if s.Notifier == nil {
		return
	}
	cust, err := s.Customers.GetByID(ctx, res.CustomerID)
	if err != nil {
		logrus.WithError(err).WithField("reservation_id", res.ID).
			Warn("loading customer for confirmation notification failed")
		return
	}
	if err := s.Notifier.ReservationConfirmed(ctx, res, cust); err != nil {
		logrus.WithError(err).WithField("reservation_id", res.ID).
			Warn("confirmation notification failed")
	}
}

// EventGuard is an optional replay filter over webhook event ids.
// The CAS in the store is the correctness guard; this only saves the
// round trips on hot replays.
type EventGuard interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkSeen(ctx context.Context, eventID string) error
}

// RedisEventGuard keeps processed event ids in Redis with a TTL so
// the guard survives restarts and is shared across replicas.
type RedisEventGuard struct {
	Client *redis.Client
	TTL    time.Duration
	Prefix string
}

func (g *RedisEventGuard) key(eventID string) string {
	prefix := g.Prefix
	if prefix == "" {
		prefix = "payment:event"
	}
	return prefix + ":" + eventID
}

// Seen reports whether the event id was already processed.
func (g *RedisEventGuard) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := g.Client.Exists(ctx, g.key(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkSeen records the event id after successful processing.
func (g *RedisEventGuard) MarkSeen(ctx context.Context, eventID string) error {
	ttl := g.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return g.Client.Set(ctx, g.key(eventID), "1", ttl).Err()
}
