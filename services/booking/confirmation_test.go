package booking_test

import (
	"testing"
	"time"

	"prbal/models"
	"prbal/services/booking"

	"github.com/stretchr/testify/assert"
)

const grace = 48 * time.Hour

func TestSettlementDue_RequiresProviderConfirmation(t *testing.T) {
	policy := booking.ConfirmationPolicy{GracePeriod: grace}
	now := time.Now().UTC()

	customerOnly := &models.Booking{ID: "b1", CustomerConfirmedAt: &now}
	err := policy.SettlementDue(customerOnly, now)

	var notSettleable booking.NotSettleableError
	assert.ErrorAs(t, err, &notSettleable)
}

func TestSettlementDue_DualConfirmationSettlesImmediately(t *testing.T) {
	policy := booking.ConfirmationPolicy{GracePeriod: grace}
	now := time.Now().UTC()

	b := &models.Booking{ID: "b1", ProviderConfirmedAt: &now, CustomerConfirmedAt: &now}
	assert.NoError(t, policy.SettlementDue(b, now))
}

func TestSettlementDue_GracePeriodBoundary(t *testing.T) {
	policy := booking.ConfirmationPolicy{GracePeriod: grace}
	confirmed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := &models.Booking{ID: "b1", ProviderConfirmedAt: &confirmed}

	// One second short of the grace period: not yet.
	err := policy.SettlementDue(b, confirmed.Add(grace-time.Second))
	var notSettleable booking.NotSettleableError
	assert.ErrorAs(t, err, &notSettleable)

	// Exactly at the boundary: due.
	assert.NoError(t, policy.SettlementDue(b, confirmed.Add(grace)))
	assert.NoError(t, policy.SettlementDue(b, confirmed.Add(grace+time.Hour)))
}

func TestSettlementDue_EvaluatedAtSettlementTime(t *testing.T) {
	policy := booking.ConfirmationPolicy{GracePeriod: grace}
	confirmed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := &models.Booking{ID: "b1", ProviderConfirmedAt: &confirmed}

	// The same booking flips from not-due to due purely by the clock moving.
	assert.Error(t, policy.SettlementDue(b, confirmed.Add(time.Hour)))
	assert.NoError(t, policy.SettlementDue(b, confirmed.Add(72*time.Hour)))
}
