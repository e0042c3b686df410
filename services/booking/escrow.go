package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingRepo "prbal/database/repository/booking"
	"prbal/models"
	"prbal/services/payment"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultEscrowOrchestrator implements EscrowOrchestrator.
//
// It never assumes a gateway call and the local write succeed atomically.
// Gateway calls run outside any database transaction; the local state
// transition that follows a gateway response is a single transactional write
// covering the booking and its active ledger entry, and that write is the
// source of truth for "did this happen". An entry left in pending after a
// crash is never retried blindly: either the idempotency key makes the retry
// safe, or the caller gets ReconciliationRequiredError.
type DefaultEscrowOrchestrator struct {
	Repo    bookingRepo.Repository
	Gateway payment.Gateway
	Locker  BookingLocker
	Policy  ConfirmationPolicy
	Retry   RefundRetryEnqueuer
	Logger  *zap.Logger

	Clock func() time.Time
}

func (o *DefaultEscrowOrchestrator) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now().UTC()
}

func (o *DefaultEscrowOrchestrator) lock(ctx context.Context, bookingID string) (func(), error) {
	release, err := o.Locker.Acquire(ctx, bookingID)
	if err != nil {
		return nil, bookingRepo.ConflictError{BookingID: bookingID, Detail: "another settlement operation is in flight"}
	}
	return release, nil
}

// OpenEscrow authorizes and holds the agreed price. On first call it
// persists the booking together with a pending ledger entry, then asks the
// gateway for the hold. A repeat call for a booking whose entry is still
// pending re-issues the hold with the same idempotency key, which the
// processor deduplicates; a second ledger hold can never be created.
func (o *DefaultEscrowOrchestrator) OpenEscrow(ctx context.Context, b *models.Booking) (*models.PaymentLedgerEntry, error) {
	release, err := o.lock(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	entry, err := o.Repo.LatestEntry(ctx, b.ID)
	switch {
	case errors.Is(err, bookingRepo.ErrNoLedgerEntry):
		now := o.now()
		entry = &models.PaymentLedgerEntry{
			ID:             uuid.New().String(),
			BookingID:      b.ID,
			Amount:         b.AgreedPrice,
			Currency:       b.Currency,
			Status:         models.LedgerPending,
			IdempotencyKey: fmt.Sprintf("hold-%s-1", b.ID),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := o.Repo.CreateWithEntry(ctx, b, entry); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case entry.Status == models.LedgerHeldInEscrow:
		// Already open; nothing to do.
		return entry, nil
	case entry.Status == models.LedgerPending && entry.ProcessorRef == "":
		// Resuming after an unavailable gateway; same idempotency key below.
	default:
		return nil, ReconciliationRequiredError{
			BookingID: b.ID,
			Detail:    fmt.Sprintf("latest ledger entry %s is %s", entry.ID, entry.Status),
		}
	}

	res, holdErr := o.Gateway.Hold(ctx, entry.Amount, entry.Currency, entry.IdempotencyKey)
	if holdErr != nil {
		if ge, ok := payment.AsGatewayError(holdErr); ok && ge.Kind != payment.GatewayDeclined {
			// Unavailable: the caller retries with the same key. Ambiguous:
			// the processor may have acted; the entry stays pending until
			// reconciled. Either way nothing is marked failed yet.
			return entry, holdErr
		}
		entry.Status = models.LedgerFailed
		entry.ErrorDetail = holdErr.Error()
		if err := transitionTo(b, models.BookingPaymentFailed); err != nil {
			return entry, err
		}
		if err := o.Repo.UpdateBookingAndEntry(ctx, b, entry, models.LedgerPending); err != nil {
			o.Logger.Error("failed to record declined hold",
				zap.String("bookingID", b.ID), zap.Error(err))
			return entry, err
		}
		return entry, holdErr
	}

	entry.ProcessorRef = res.ProcessorRef
	entry.Status = models.LedgerHeldInEscrow
	if err := o.Repo.UpdateEntry(ctx, entry, models.LedgerPending); err != nil {
		return nil, err
	}

	o.Logger.Info("escrow opened",
		zap.String("bookingID", b.ID),
		zap.String("processorRef", entry.ProcessorRef),
		zap.Float64("amount", entry.Amount))
	return entry, nil
}

// Settle captures the held funds and transfers the payee amount (agreed
// price minus platform fee) to the provider. The booking claims
// payment_pending before the gateway call so a concurrent refund loses the
// per-booking race instead of silently overwriting the outcome.
func (o *DefaultEscrowOrchestrator) Settle(ctx context.Context, bookingID string) (*models.Booking, error) {
	release, err := o.lock(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer release()

	b, err := o.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	// Grace-period eligibility is evaluated now, at the moment settlement is
	// attempted, never cached from confirmation time.
	if err := o.Policy.SettlementDue(b, o.now()); err != nil {
		return nil, err
	}

	entry, err := o.Repo.LatestEntry(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.LedgerHeldInEscrow {
		if entry.Status == models.LedgerPending {
			return nil, ReconciliationRequiredError{
				BookingID: bookingID,
				Detail:    "hold outcome unknown; compare ledger against processor state",
			}
		}
		return nil, InvalidTransitionError{BookingID: bookingID, From: b.Status, Action: "settle without funds held in escrow"}
	}

	switch b.Status {
	case models.BookingCompleted:
		if err := transitionTo(b, models.BookingPaymentPending); err != nil {
			return nil, err
		}
		if err := o.Repo.UpdateBooking(ctx, b); err != nil {
			return nil, err
		}
	case models.BookingPaymentPending:
		// Retrying after an unavailable gateway; the claim already exists.
	default:
		return nil, InvalidTransitionError{BookingID: bookingID, From: b.Status, Action: "settle"}
	}

	payee := b.PayeeAmount()
	res, transferErr := o.Gateway.Transfer(ctx, entry.ProcessorRef, b.PayeeAccount, payee, entry.Currency)
	if transferErr != nil {
		if ge, ok := payment.AsGatewayError(transferErr); ok && ge.Retryable() {
			// Funds stay held; the sweep or an operator retries the transfer.
			return b, transferErr
		}
		// Terminal or ambiguous transfer failure: surfaced for manual
		// reconciliation. Blind retries of fund transfers risk duplicate
		// payouts.
		entry.Status = models.LedgerFailed
		entry.ErrorDetail = transferErr.Error()
		if err := transitionTo(b, models.BookingPaymentFailed); err != nil {
			return nil, err
		}
		if err := o.Repo.UpdateBookingAndEntry(ctx, b, entry, models.LedgerHeldInEscrow); err != nil {
			o.Logger.Error("failed to record transfer failure",
				zap.String("bookingID", bookingID), zap.Error(err))
			return nil, err
		}
		return b, transferErr
	}

	entry.TransferRef = res.TransferRef
	entry.Status = models.LedgerReleased
	if err := transitionTo(b, models.BookingPaid); err != nil {
		return nil, err
	}
	if err := o.Repo.UpdateBookingAndEntry(ctx, b, entry, models.LedgerHeldInEscrow); err != nil {
		return nil, err
	}

	o.Logger.Info("escrow settled",
		zap.String("bookingID", bookingID),
		zap.String("transferRef", entry.TransferRef),
		zap.Float64("payeeAmount", payee))
	return b, nil
}
