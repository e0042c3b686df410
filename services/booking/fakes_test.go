package booking_test

import (
	"context"
	"fmt"
	"time"

	bookingRepo "prbal/database/repository/booking"
	"prbal/models"
	"prbal/services/payment"
)

// fakeRepo is an in-memory bookingRepo.Repository honoring the same version
// and status guards as the mongo implementation.
type fakeRepo struct {
	bookings map[string]*models.Booking
	entries  []*models.PaymentLedgerEntry
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{bookings: make(map[string]*models.Booking)}
}

func (r *fakeRepo) CreateWithEntry(ctx context.Context, b *models.Booking, e *models.PaymentLedgerEntry) error {
	cb := *b
	r.bookings[b.ID] = &cb
	ce := *e
	r.entries = append(r.entries, &ce)
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrBookingNotFound
	}
	cb := *b
	return &cb, nil
}

func (r *fakeRepo) UpdateBooking(ctx context.Context, b *models.Booking) error {
	stored, ok := r.bookings[b.ID]
	if !ok {
		return bookingRepo.ErrBookingNotFound
	}
	if stored.Version != b.Version {
		return bookingRepo.ConflictError{BookingID: b.ID, Detail: "stale version"}
	}
	b.Version++
	cb := *b
	r.bookings[b.ID] = &cb
	return nil
}

func (r *fakeRepo) LatestEntry(ctx context.Context, bookingID string) (*models.PaymentLedgerEntry, error) {
	var latest *models.PaymentLedgerEntry
	for _, e := range r.entries {
		if e.BookingID == bookingID {
			latest = e
		}
	}
	if latest == nil {
		return nil, bookingRepo.ErrNoLedgerEntry
	}
	ce := *latest
	return &ce, nil
}

func (r *fakeRepo) ListEntries(ctx context.Context, bookingID string) ([]models.PaymentLedgerEntry, error) {
	var out []models.PaymentLedgerEntry
	for _, e := range r.entries {
		if e.BookingID == bookingID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *fakeRepo) AppendEntry(ctx context.Context, e *models.PaymentLedgerEntry) error {
	ce := *e
	r.entries = append(r.entries, &ce)
	return nil
}

func (r *fakeRepo) UpdateEntry(ctx context.Context, e *models.PaymentLedgerEntry, from ...models.LedgerStatus) error {
	for i, stored := range r.entries {
		if stored.ID != e.ID {
			continue
		}
		for _, s := range from {
			if stored.Status == s {
				ce := *e
				r.entries[i] = &ce
				return nil
			}
		}
		return bookingRepo.ConflictError{
			BookingID: e.BookingID,
			Detail:    fmt.Sprintf("entry status %q not in expected set", stored.Status),
		}
	}
	return bookingRepo.ErrNoLedgerEntry
}

func (r *fakeRepo) UpdateBookingAndEntry(ctx context.Context, b *models.Booking, e *models.PaymentLedgerEntry, from ...models.LedgerStatus) error {
	if err := r.UpdateEntry(ctx, e, from...); err != nil {
		return err
	}
	return r.UpdateBooking(ctx, b)
}

func (r *fakeRepo) ListGraceEligible(ctx context.Context, confirmedBefore time.Time) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range r.bookings {
		if b.Status != models.BookingCompleted && b.Status != models.BookingPaymentPending {
			continue
		}
		if b.ProviderConfirmedAt == nil || b.CustomerConfirmedAt != nil {
			continue
		}
		if b.ProviderConfirmedAt.After(confirmedBefore) {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

// fakeGateway returns scripted results and records every call.
type fakeGateway struct {
	holdErr     error
	transferErr error
	refundErr   error

	holdKeys        []string
	transferAmounts []float64
	transferAccts   []string
	refundRefs      []string
}

func (g *fakeGateway) Hold(ctx context.Context, amount float64, currency, idempotencyKey string) (*payment.HoldResult, error) {
	g.holdKeys = append(g.holdKeys, idempotencyKey)
	if g.holdErr != nil {
		return nil, g.holdErr
	}
	return &payment.HoldResult{ProcessorRef: "pi_" + idempotencyKey}, nil
}

func (g *fakeGateway) Transfer(ctx context.Context, processorRef, payeeAccount string, amount float64, currency string) (*payment.TransferResult, error) {
	g.transferAmounts = append(g.transferAmounts, amount)
	g.transferAccts = append(g.transferAccts, payeeAccount)
	if g.transferErr != nil {
		return nil, g.transferErr
	}
	return &payment.TransferResult{TransferRef: "tr_" + processorRef}, nil
}

func (g *fakeGateway) Refund(ctx context.Context, processorRef string) (*payment.RefundResult, error) {
	g.refundRefs = append(g.refundRefs, processorRef)
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	return &payment.RefundResult{RefundRef: "re_" + processorRef}, nil
}

// fakeLocker hands out no-op releases, or fails when held is set.
type fakeLocker struct {
	held     bool
	acquired int
}

func (l *fakeLocker) Acquire(ctx context.Context, bookingID string) (func(), error) {
	if l.held {
		return nil, fmt.Errorf("lock for booking %s already held", bookingID)
	}
	l.acquired++
	return func() {}, nil
}

// fakePayoutRepo serves one account per provider.
type fakePayoutRepo struct {
	accounts map[string]*models.PayoutAccount
}

func (r *fakePayoutRepo) ActiveAccount(ctx context.Context, providerID string) (*models.PayoutAccount, error) {
	a, ok := r.accounts[providerID]
	if !ok {
		return nil, fmt.Errorf("no payout account for provider %s", providerID)
	}
	return a, nil
}

func (r *fakePayoutRepo) Upsert(ctx context.Context, account *models.PayoutAccount) error {
	if r.accounts == nil {
		r.accounts = make(map[string]*models.PayoutAccount)
	}
	r.accounts[account.ProviderID] = account
	return nil
}

// fakeEnqueuer records refund retries instead of touching a queue.
type fakeEnqueuer struct {
	bookingIDs []string
}

func (e *fakeEnqueuer) EnqueueRefundRetry(ctx context.Context, bookingID string) error {
	e.bookingIDs = append(e.bookingIDs, bookingID)
	return nil
}
