package models

import "time"

// BookingStatus enumerates the lifecycle states of a booking.
type BookingStatus string

const (
	BookingScheduled           BookingStatus = "scheduled"
	BookingInProgress          BookingStatus = "in_progress"
	BookingCompleted           BookingStatus = "completed"
	BookingPaymentPending      BookingStatus = "payment_pending"
	BookingPaid                BookingStatus = "paid"
	BookingPaymentFailed       BookingStatus = "payment_failed"
	BookingCancelledByCustomer BookingStatus = "cancelled_by_customer"
	BookingCancelledByProvider BookingStatus = "cancelled_by_provider"
)

// ActorRole identifies which side of a booking performed an action.
type ActorRole string

const (
	ActorCustomer ActorRole = "customer"
	ActorProvider ActorRole = "provider"
)

// Booking represents a service engagement between a customer and a provider.
// Parties and commercial terms are fixed at creation; status and the
// confirmation/cancellation fields are mutated only through the booking
// service and the escrow orchestrator.
type Booking struct {
	ID          string `bson:"id" json:"id"`
	CustomerID  string `bson:"customer_id" json:"customer_id"`
	ProviderID  string `bson:"provider_id" json:"provider_id"`
	ServiceType string `bson:"service_type,omitempty" json:"service_type,omitempty"`

	AgreedPrice  float64 `bson:"agreed_price" json:"agreed_price"`
	Currency     string  `bson:"currency" json:"currency"`
	PlatformFee  float64 `bson:"platform_fee" json:"platform_fee"`
	PayeeAccount string  `bson:"payee_account" json:"payee_account"` // provider's gateway payout account, pinned at creation

	ScheduledFor time.Time     `bson:"scheduled_for" json:"scheduled_for"`
	Status       BookingStatus `bson:"status" json:"status"`

	// Completion confirmations are set at most once and never cleared.
	ProviderConfirmedAt *time.Time `bson:"provider_confirmed_at,omitempty" json:"provider_confirmed_at,omitempty"`
	CustomerConfirmedAt *time.Time `bson:"customer_confirmed_at,omitempty" json:"customer_confirmed_at,omitempty"`

	// Cancellation metadata, set only when status enters a cancelled state.
	CancellationReason string     `bson:"cancellation_reason,omitempty" json:"cancellation_reason,omitempty"`
	CancelledBy        string     `bson:"cancelled_by,omitempty" json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`

	// Version guards optimistic concurrency on the booking document.
	Version int64 `bson:"version" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Cancelled reports whether the booking is in either cancelled state.
func (b *Booking) Cancelled() bool {
	return b.Status == BookingCancelledByCustomer || b.Status == BookingCancelledByProvider
}

// ConfirmedBy returns the confirmation timestamp recorded for the given role.
func (b *Booking) ConfirmedBy(role ActorRole) *time.Time {
	if role == ActorProvider {
		return b.ProviderConfirmedAt
	}
	return b.CustomerConfirmedAt
}

// PartyID returns the user ID occupying the given role on this booking.
func (b *Booking) PartyID(role ActorRole) string {
	if role == ActorProvider {
		return b.ProviderID
	}
	return b.CustomerID
}

// PayeeAmount is what the provider receives at settlement: the agreed price
// less the platform fee computed at creation.
func (b *Booking) PayeeAmount() float64 {
	return b.AgreedPrice - b.PlatformFee
}
