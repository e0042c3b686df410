package booking

import (
	"time"

	"prbal/models"
)

// ConfirmationPolicy decides when dual completion confirmation is satisfied.
// Settlement may proceed when both parties have confirmed, or when the
// provider confirmed and the grace period elapsed without the customer
// acting. The grace period is injected configuration: customers have no
// obligation to act, but providers must not wait indefinitely for payment.
type ConfirmationPolicy struct {
	GracePeriod time.Duration
}

// SettlementDue reports whether settlement may proceed at the given moment.
// It must be evaluated when settlement is attempted, not cached from
// confirmation time, so a deferred sweep never acts on a stale verdict.
// A customer-only confirmation never settles: the provider must also
// affirmatively declare the work delivered.
func (p ConfirmationPolicy) SettlementDue(b *models.Booking, now time.Time) error {
	if b.ProviderConfirmedAt == nil {
		return NotSettleableError{BookingID: b.ID, Reason: "provider has not confirmed completion"}
	}
	if b.CustomerConfirmedAt != nil {
		return nil
	}
	if now.Sub(*b.ProviderConfirmedAt) >= p.GracePeriod {
		return nil
	}
	return NotSettleableError{BookingID: b.ID, Reason: "grace period since provider confirmation has not elapsed"}
}
