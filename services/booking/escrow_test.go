package booking_test

import (
	"context"
	"testing"
	"time"

	bookingRepo "prbal/database/repository/booking"
	"prbal/models"
	"prbal/services/booking"
	"prbal/services/payment"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newOrchestrator(repo *fakeRepo, gw *fakeGateway, enq *fakeEnqueuer, clock func() time.Time) *booking.DefaultEscrowOrchestrator {
	return &booking.DefaultEscrowOrchestrator{
		Repo:    repo,
		Gateway: gw,
		Locker:  &fakeLocker{},
		Policy:  booking.ConfirmationPolicy{GracePeriod: grace},
		Retry:   enq,
		Logger:  zap.NewNop(),
		Clock:   clock,
	}
}

func newBooking(status models.BookingStatus) *models.Booking {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.Booking{
		ID:           "bk-1",
		CustomerID:   "cust-1",
		ProviderID:   "prov-1",
		AgreedPrice:  100,
		Currency:     "usd",
		PlatformFee:  10,
		PayeeAccount: "acct_prov1",
		ScheduledFor: now,
		Status:       status,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// seedHeld puts a booking with a held escrow entry into the repo.
func seedHeld(repo *fakeRepo, b *models.Booking) *models.PaymentLedgerEntry {
	entry := &models.PaymentLedgerEntry{
		ID:             "entry-1",
		BookingID:      b.ID,
		Amount:         b.AgreedPrice,
		Currency:       b.Currency,
		ProcessorRef:   "pi_hold-bk-1-1",
		Status:         models.LedgerHeldInEscrow,
		IdempotencyKey: "hold-bk-1-1",
	}
	_ = repo.CreateWithEntry(context.Background(), b, entry)
	return entry
}

func TestOpenEscrow_HoldSucceeds(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	orch := newOrchestrator(repo, gw, &fakeEnqueuer{}, nil)

	b := newBooking(models.BookingScheduled)
	entry, err := orch.OpenEscrow(context.Background(), b)

	assert.NoError(t, err)
	assert.Equal(t, models.LedgerHeldInEscrow, entry.Status)
	assert.Equal(t, "hold-bk-1-1", entry.IdempotencyKey)
	assert.NotEmpty(t, entry.ProcessorRef)

	stored, err := repo.GetByID(context.Background(), b.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingScheduled, stored.Status)
}

func TestOpenEscrow_HoldDeclined(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{holdErr: &payment.GatewayError{Kind: payment.GatewayDeclined, Code: "card_declined", Message: "card declined"}}
	orch := newOrchestrator(repo, gw, &fakeEnqueuer{}, nil)

	b := newBooking(models.BookingScheduled)
	entry, err := orch.OpenEscrow(context.Background(), b)

	assert.Error(t, err)
	assert.Equal(t, models.LedgerFailed, entry.Status)
	assert.Contains(t, entry.ErrorDetail, "card_declined")

	stored, _ := repo.GetByID(context.Background(), b.ID)
	assert.Equal(t, models.BookingPaymentFailed, stored.Status)
}

func TestOpenEscrow_UnavailableThenRetrySameKey(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{holdErr: &payment.GatewayError{Kind: payment.GatewayUnavailable, Message: "timeout"}}
	orch := newOrchestrator(repo, gw, &fakeEnqueuer{}, nil)

	b := newBooking(models.BookingScheduled)
	entry, err := orch.OpenEscrow(context.Background(), b)
	assert.Error(t, err)
	// Nothing marked failed; the hold may be retried.
	assert.Equal(t, models.LedgerPending, entry.Status)

	gw.holdErr = nil
	entry, err = orch.OpenEscrow(context.Background(), b)
	assert.NoError(t, err)
	assert.Equal(t, models.LedgerHeldInEscrow, entry.Status)

	// Both attempts carried the same idempotency key.
	assert.Equal(t, []string{"hold-bk-1-1", "hold-bk-1-1"}, gw.holdKeys)
	// And no second ledger entry appeared.
	entries, _ := repo.ListEntries(context.Background(), b.ID)
	assert.Len(t, entries, 1)
}

func TestOpenEscrow_IdempotentWhenAlreadyHeld(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	orch := newOrchestrator(repo, gw, &fakeEnqueuer{}, nil)

	b := newBooking(models.BookingScheduled)
	seedHeld(repo, b)

	entry, err := orch.OpenEscrow(context.Background(), b)
	assert.NoError(t, err)
	assert.Equal(t, models.LedgerHeldInEscrow, entry.Status)
	assert.Empty(t, gw.holdKeys, "gateway must not be called again")
}

func TestSettle_DualConfirmationPaysProviderNetOfFee(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	orch := newOrchestrator(repo, gw, &fakeEnqueuer{}, nil)

	b := newBooking(models.BookingCompleted)
	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	b.ProviderConfirmedAt = &ts
	b.CustomerConfirmedAt = &ts
	seedHeld(repo, b)

	settled, err := orch.Settle(context.Background(), b.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingPaid, settled.Status)

	// Price 100 minus platform fee 10.
	assert.Equal(t, []float64{90}, gw.transferAmounts)
	assert.Equal(t, []string{"acct_prov1"}, gw.transferAccts)

	entry, _ := repo.LatestEntry(context.Background(), b.ID)
	assert.Equal(t, models.LedgerReleased, entry.Status)
	assert.NotEmpty(t, entry.TransferRef)
}

func TestSettle_NotYetEligible(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	orch := newOrchestrator(repo, gw, &fakeEnqueuer{}, nil)

	b := newBooking(models.BookingCompleted)
	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	b.ProviderConfirmedAt = &ts
	seedHeld(repo, b)

	clock := func() time.Time { return ts.Add(time.Hour) }
	orch.Clock = clock

	_, err := orch.Settle(context.Background(), b.ID)
	var notSettleable booking.NotSettleableError
	assert.ErrorAs(t, err, &notSettleable)
	assert.Empty(t, gw.transferAmounts)
}

func TestSettle_GracePeriodElapsedWithoutCustomer(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	orch := newOrchestrator(repo, gw, &fakeEnqueuer{}, nil)

	b := newBooking(models.BookingCompleted)
	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	b.ProviderConfirmedAt = &ts
	seedHeld(repo, b)

	orch.Clock = func() time.Time { return ts.Add(grace) }

	settled, err := orch.Settle(context.Background(), b.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingPaid, settled.Status)
}

func TestSettle_AmbiguousTransferHaltsForReconciliation(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{transferErr: &payment.GatewayError{Kind: payment.GatewayAmbiguous, Message: "connection lost mid-transfer"}}
	orch := newOrchestrator(repo, gw, &fakeEnqueuer{}, nil)

	b := newBooking(models.BookingCompleted)
	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	b.ProviderConfirmedAt = &ts
	b.CustomerConfirmedAt = &ts
	seedHeld(repo, b)

	_, err := orch.Settle(context.Background(), b.ID)
	assert.Error(t, err)

	stored, _ := repo.GetByID(context.Background(), b.ID)
	assert.Equal(t, models.BookingPaymentFailed, stored.Status)
	entry, _ := repo.LatestEntry(context.Background(), b.ID)
	assert.Equal(t, models.LedgerFailed, entry.Status)
	assert.NotEmpty(t, entry.ErrorDetail)
}

func TestSettle_TransferUnavailableLeavesFundsHeld(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{transferErr: &payment.GatewayError{Kind: payment.GatewayUnavailable, Message: "processor down"}}
	orch := newOrchestrator(repo, gw, &fakeEnqueuer{}, nil)

	b := newBooking(models.BookingCompleted)
	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	b.ProviderConfirmedAt = &ts
	b.CustomerConfirmedAt = &ts
	seedHeld(repo, b)

	_, err := orch.Settle(context.Background(), b.ID)
	assert.Error(t, err)

	// The claim on payment_pending persists but funds stay held for retry.
	stored, _ := repo.GetByID(context.Background(), b.ID)
	assert.Equal(t, models.BookingPaymentPending, stored.Status)
	entry, _ := repo.LatestEntry(context.Background(), b.ID)
	assert.Equal(t, models.LedgerHeldInEscrow, entry.Status)

	gw.transferErr = nil
	settled, err := orch.Settle(context.Background(), b.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingPaid, settled.Status)
}

func TestRefund_CancelledBookingGetsMoneyBack(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	orch := newOrchestrator(repo, gw, &fakeEnqueuer{}, nil)

	b := newBooking(models.BookingCancelledByCustomer)
	seedHeld(repo, b)

	entry, err := orch.Refund(context.Background(), b.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.LedgerRefunded, entry.Status)
	assert.NotEmpty(t, entry.RefundRef)
	assert.Equal(t, []string{"pi_hold-bk-1-1"}, gw.refundRefs)
}

func TestRefund_FailureQueuesRetryAndKeepsCancellation(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{refundErr: &payment.GatewayError{Kind: payment.GatewayUnavailable, Message: "processor down"}}
	enq := &fakeEnqueuer{}
	orch := newOrchestrator(repo, gw, enq, nil)

	b := newBooking(models.BookingCancelledByProvider)
	seedHeld(repo, b)

	entry, err := orch.Refund(context.Background(), b.ID)
	assert.Error(t, err)
	assert.Equal(t, models.LedgerFailed, entry.Status)
	assert.Equal(t, []string{b.ID}, enq.bookingIDs)

	stored, _ := repo.GetByID(context.Background(), b.ID)
	assert.Equal(t, models.BookingCancelledByProvider, stored.Status)
}

func TestRefund_RejectedWhenNotCancelled(t *testing.T) {
	repo := newFakeRepo()
	orch := newOrchestrator(repo, &fakeGateway{}, &fakeEnqueuer{}, nil)

	b := newBooking(models.BookingCompleted)
	seedHeld(repo, b)

	_, err := orch.Refund(context.Background(), b.ID)
	var invalid booking.InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)
}

func TestRefund_RejectedAfterRelease(t *testing.T) {
	repo := newFakeRepo()
	orch := newOrchestrator(repo, &fakeGateway{}, &fakeEnqueuer{}, nil)

	b := newBooking(models.BookingCancelledByCustomer)
	entry := seedHeld(repo, b)
	entry.Status = models.LedgerReleased
	_ = repo.UpdateEntry(context.Background(), entry, models.LedgerHeldInEscrow)

	_, err := orch.Refund(context.Background(), b.ID)
	assert.True(t, bookingRepo.IsConflict(err))
}

func TestManualRefund_RetriesFailedRefundAsFreshEntry(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	orch := newOrchestrator(repo, gw, &fakeEnqueuer{}, nil)

	b := newBooking(models.BookingCancelledByCustomer)
	entry := seedHeld(repo, b)
	entry.Status = models.LedgerFailed
	entry.ErrorDetail = "processor down"
	_ = repo.UpdateEntry(context.Background(), entry, models.LedgerHeldInEscrow)

	refunded, err := orch.ManualRefund(context.Background(), b.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.LedgerRefunded, refunded.Status)

	// The failed attempt survives; the retry is a new entry.
	entries, _ := repo.ListEntries(context.Background(), b.ID)
	assert.Len(t, entries, 2)
	assert.Equal(t, models.LedgerFailed, entries[0].Status)
	assert.Equal(t, models.LedgerRefunded, entries[1].Status)
	assert.NotEqual(t, entries[0].IdempotencyKey, entries[1].IdempotencyKey)
}

func TestManualRefund_NeverAfterRelease(t *testing.T) {
	repo := newFakeRepo()
	orch := newOrchestrator(repo, &fakeGateway{}, &fakeEnqueuer{}, nil)

	b := newBooking(models.BookingPaymentFailed)
	entry := seedHeld(repo, b)
	entry.Status = models.LedgerReleased
	_ = repo.UpdateEntry(context.Background(), entry, models.LedgerHeldInEscrow)

	_, err := orch.ManualRefund(context.Background(), b.ID)
	assert.True(t, bookingRepo.IsConflict(err))
}

func TestSettle_LockContentionIsConflict(t *testing.T) {
	repo := newFakeRepo()
	orch := newOrchestrator(repo, &fakeGateway{}, &fakeEnqueuer{}, nil)
	orch.Locker = &fakeLocker{held: true}

	b := newBooking(models.BookingCompleted)
	seedHeld(repo, b)

	_, err := orch.Settle(context.Background(), b.ID)
	assert.True(t, bookingRepo.IsConflict(err))
}
