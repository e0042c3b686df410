package payoutRepo

import (
	"context"

	"prbal/models"
)

// Repository defines data access for provider payout accounts.
type Repository interface {
	// ActiveAccount returns the provider's active, verified payout account.
	ActiveAccount(ctx context.Context, providerID string) (*models.PayoutAccount, error)
	Upsert(ctx context.Context, account *models.PayoutAccount) error
}
