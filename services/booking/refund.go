package booking

import (
	"context"
	"fmt"

	bookingRepo "prbal/database/repository/booking"
	"prbal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Refund returns held funds after a cancellation. The booking is already in
// its cancelled state when this runs and is never reverted: a refund failure
// marks the entry failed with the processor detail and queues a retry.
func (o *DefaultEscrowOrchestrator) Refund(ctx context.Context, bookingID string) (*models.PaymentLedgerEntry, error) {
	release, err := o.lock(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer release()

	b, err := o.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.Cancelled() {
		return nil, InvalidTransitionError{BookingID: bookingID, From: b.Status, Action: "refund a booking that is not cancelled"}
	}

	entry, err := o.Repo.LatestEntry(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	switch entry.Status {
	case models.LedgerRefunded:
		// Already resolved; idempotent.
		return entry, nil
	case models.LedgerFailed:
		// The hold never succeeded, or a previous refund attempt already
		// failed and is queued for retry. No held funds to act on here.
		return entry, nil
	case models.LedgerPending:
		if entry.ProcessorRef == "" {
			// Cancelled before the hold ever reached the processor.
			entry.Status = models.LedgerFailed
			entry.ErrorDetail = "cancelled before funds were held"
			if err := o.Repo.UpdateEntry(ctx, entry, models.LedgerPending); err != nil {
				return nil, err
			}
			return entry, nil
		}
		return nil, ReconciliationRequiredError{
			BookingID: bookingID,
			Detail:    "hold outcome unknown; compare ledger against processor state",
		}
	case models.LedgerReleased:
		return nil, bookingRepo.ConflictError{BookingID: bookingID, Detail: "funds already released to provider"}
	case models.LedgerHeldInEscrow:
		// Proceed.
	}

	res, refundErr := o.Gateway.Refund(ctx, entry.ProcessorRef)
	if refundErr != nil {
		entry.Status = models.LedgerFailed
		entry.ErrorDetail = refundErr.Error()
		if err := o.Repo.UpdateEntry(ctx, entry, models.LedgerHeldInEscrow); err != nil {
			return nil, err
		}
		o.enqueueRefundRetry(ctx, bookingID)
		return entry, refundErr
	}

	entry.RefundRef = res.RefundRef
	entry.Status = models.LedgerRefunded
	if err := o.Repo.UpdateEntry(ctx, entry, models.LedgerHeldInEscrow); err != nil {
		return nil, err
	}

	o.Logger.Info("escrow refunded",
		zap.String("bookingID", bookingID),
		zap.String("refundRef", entry.RefundRef))
	return entry, nil
}

// ManualRefund returns held funds for a booking whose automatic path failed:
// a payment_failed booking still holding funds after a rejected transfer, or
// a cancelled booking whose refund attempt failed. Each attempt is a fresh
// ledger entry referencing the original hold, preserving the audit trail.
func (o *DefaultEscrowOrchestrator) ManualRefund(ctx context.Context, bookingID string) (*models.PaymentLedgerEntry, error) {
	release, err := o.lock(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer release()

	b, err := o.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingPaymentFailed && !b.Cancelled() {
		return nil, InvalidTransitionError{BookingID: bookingID, From: b.Status, Action: "manually refund"}
	}

	entries, err := o.Repo.ListEntries(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var source *models.PaymentLedgerEntry
	for i := range entries {
		e := &entries[i]
		switch e.Status {
		case models.LedgerReleased:
			return nil, bookingRepo.ConflictError{BookingID: bookingID, Detail: "funds already released to provider"}
		case models.LedgerRefunded:
			// Once money went back, never refund again.
			return e, nil
		case models.LedgerHeldInEscrow, models.LedgerFailed:
			if e.ProcessorRef != "" {
				source = e
			}
		}
	}
	if source == nil {
		return nil, fmt.Errorf("booking %s has no refundable funds on record", bookingID)
	}

	now := o.now()
	attempt := &models.PaymentLedgerEntry{
		ID:             uuid.New().String(),
		BookingID:      bookingID,
		Amount:         source.Amount,
		Currency:       source.Currency,
		ProcessorRef:   source.ProcessorRef,
		Status:         models.LedgerPending,
		IdempotencyKey: fmt.Sprintf("refund-%s-%d", bookingID, len(entries)+1),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := o.Repo.AppendEntry(ctx, attempt); err != nil {
		return nil, err
	}

	res, refundErr := o.Gateway.Refund(ctx, source.ProcessorRef)
	if refundErr != nil {
		attempt.Status = models.LedgerFailed
		attempt.ErrorDetail = refundErr.Error()
		if err := o.Repo.UpdateEntry(ctx, attempt, models.LedgerPending); err != nil {
			return nil, err
		}
		return attempt, refundErr
	}

	attempt.RefundRef = res.RefundRef
	attempt.Status = models.LedgerRefunded
	if err := o.Repo.UpdateEntry(ctx, attempt, models.LedgerPending); err != nil {
		return nil, err
	}

	o.Logger.Info("manual refund completed",
		zap.String("bookingID", bookingID),
		zap.String("refundRef", attempt.RefundRef))
	return attempt, nil
}

func (o *DefaultEscrowOrchestrator) enqueueRefundRetry(ctx context.Context, bookingID string) {
	if o.Retry == nil {
		return
	}
	if err := o.Retry.EnqueueRefundRetry(ctx, bookingID); err != nil {
		o.Logger.Error("failed to enqueue refund retry",
			zap.String("bookingID", bookingID), zap.Error(err))
	}
}
