package models

import "time"

// PayoutAccount is a provider's account with the payment gateway for
// receiving funds (e.g. a Stripe Connect account).
type PayoutAccount struct {
	ID          string    `bson:"id" json:"id"`
	ProviderID  string    `bson:"provider_id" json:"provider_id"`
	AccountType string    `bson:"account_type" json:"account_type"` // e.g. "stripe"
	AccountRef  string    `bson:"account_ref" json:"account_ref"`   // external account ID in the gateway
	Verified    bool      `bson:"verified" json:"verified"`
	Active      bool      `bson:"active" json:"active"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}
