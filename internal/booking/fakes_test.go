package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"apartment-booking/internal/model"
	"apartment-booking/internal/payment"
	"apartment-booking/internal/repository"
)

// In-memory collaborators mirroring the MySQL repositories' contracts,
// including the CAS semantics of UpdateStatusIf.

type fakeReservationStore struct {
	mu   sync.Mutex
	rows map[string]*model.Reservation
}

func newFakeReservationStore() *fakeReservationStore {
	return &fakeReservationStore{rows: make(map[string]*model.Reservation)}
}

func (f *fakeReservationStore) Create(ctx context.Context, res *model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[res.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, r := range f.rows {
		if r.SessionID == res.SessionID {
			return repository.ErrDuplicate
		}
	}
	cp := *res
	cp.CreatedAt = time.Now().UTC()
	f.rows[res.ID] = &cp
	return nil
}

func (f *fakeReservationStore) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReservationStore) GetBySessionID(ctx context.Context, sessionID string) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.SessionID == sessionID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeReservationStore) FindOverlapping(ctx context.Context, checkIn, checkOut time.Time) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Reservation
	for _, r := range f.rows {
		if r.Status != model.StatusPending && r.Status != model.StatusConfirmed {
			continue
		}
		if r.Overlaps(checkIn, checkOut) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReservationStore) UpdateStatusIf(ctx context.Context, id string, from, to model.Status, pay model.PaymentStatus, transactionID *string, entry model.MetadataEntry) (bool, error) {
	if !model.CanTransition(from, to) {
		return false, repository.ErrInvalidTransition
	}
	if !model.PaymentStatusAllowed(to, pay) {
		return false, repository.ErrInvalidTransition
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	r.PaymentStatus = pay
	if r.TransactionID == nil && transactionID != nil {
		v := *transactionID
		r.TransactionID = &v
	}
	r.Metadata = append(r.Metadata, entry)
	return true, nil
}

func (f *fakeReservationStore) ExpireOverdue(ctx context.Context, ttl time.Duration) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().UTC().Add(-ttl)
	var expired []string
	for id, r := range f.rows {
		if r.Status == model.StatusPending && !r.CreatedAt.After(cutoff) {
			r.Status = model.StatusFailed
			r.PaymentStatus = model.PaymentFailed
			expired = append(expired, id)
		}
	}
	return expired, nil
}

type fakeCustomerStore struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[string]*model.Customer
}

func newFakeCustomerStore() *fakeCustomerStore {
	return &fakeCustomerStore{rows: make(map[string]*model.Customer)}
}

func (f *fakeCustomerStore) UpsertByEmail(ctx context.Context, c *model.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.rows[c.Email]; ok {
		c.ID = existing.ID
		*existing = *c
		return nil
	}
	f.nextID++
	c.ID = f.nextID
	cp := *c
	f.rows[c.Email] = &cp
	return nil
}

func (f *fakeCustomerStore) GetByID(ctx context.Context, id uint64) (*model.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeBlockStore struct {
	mu     sync.Mutex
	nextID uint64
	blocks []model.BlockedPeriod
}

func (f *fakeBlockStore) Create(ctx context.Context, b *model.BlockedPeriod) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	b.ID = f.nextID
	b.CreatedAt = time.Now().UTC()
	f.blocks = append(f.blocks, *b)
	return nil
}

func (f *fakeBlockStore) FindOverlapping(ctx context.Context, checkIn, checkOut time.Time) ([]model.BlockedPeriod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.BlockedPeriod
	for i := range f.blocks {
		if f.blocks[i].Overlaps(checkIn, checkOut) {
			out = append(out, f.blocks[i])
		}
	}
	return out, nil
}

// fakeProvider counts calls and can be told to fail per operation.
type fakeProvider struct {
	mu sync.Mutex

	sessions      int
	expired       []string
	refunds       int
	refundAmounts []int64
	failSession   error
	failRefund    error
}

func (f *fakeProvider) CreateSession(ctx context.Context, amount int64, currency string, metadata map[string]string) (payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSession != nil {
		return payment.Session{}, f.failSession
	}
	f.sessions++
	id := fmt.Sprintf("cs_%d", f.sessions)
	return payment.Session{ID: id, URL: "https://pay.example/" + id}, nil
}

func (f *fakeProvider) ExpireSession(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired = append(f.expired, sessionID)
	return nil
}

func (f *fakeProvider) CreateRefund(ctx context.Context, transactionID string, amount int64, metadata map[string]string) (payment.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRefund != nil {
		return payment.Refund{}, f.failRefund
	}
	f.refunds++
	f.refundAmounts = append(f.refundAmounts, amount)
	return payment.Refund{ID: fmt.Sprintf("re_%d", f.refunds), Amount: amount, Status: "succeeded"}, nil
}

func (f *fakeProvider) refundCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refunds
}

type fakeNotifier struct {
	mu        sync.Mutex
	confirmed []string
	cancelled []string
}

func (f *fakeNotifier) ReservationConfirmed(ctx context.Context, res *model.Reservation, cust *model.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, res.ID)
	return nil
}

func (f *fakeNotifier) ReservationCancelled(ctx context.Context, res *model.Reservation, cust *model.Customer, refundID string, refundAmount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, res.ID)
	return nil
}

type fakeEventGuard struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeEventGuard() *fakeEventGuard { return &fakeEventGuard{seen: make(map[string]bool)} }

func (f *fakeEventGuard) Seen(ctx context.Context, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[eventID], nil
}

func (f *fakeEventGuard) MarkSeen(ctx context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen[eventID] = true
	return nil
}

// newTestService wires a Service over the fakes with the rate card
// used throughout the tests (89/night, 10% weekly, 20% monthly).
func newTestService() (*Service, *fakeReservationStore, *fakeCustomerStore, *fakeBlockStore, *fakeProvider, *fakeNotifier) {
	reservations := newFakeReservationStore()
	customers := newFakeCustomerStore()
	blocks := &fakeBlockStore{}
	provider := &fakeProvider{}
	notifier := &fakeNotifier{}
	svc := &Service{
		Reservations:   reservations,
		Customers:      customers,
		Blocks:         blocks,
		Provider:       provider,
		Notifier:       notifier,
		Pricing:        pricingResolver(),
		Currency:       "EUR",
		PendingTTL:     30 * time.Minute,
		PriceTolerance: 1,
	}
	return svc, reservations, customers, blocks, provider, notifier
}
