package booking

import (
	"context"
	"time"

	"prbal/models"
)

// CreateBookingRequest carries the terms agreed between the parties.
type CreateBookingRequest struct {
	CustomerID   string    `json:"customer_id"`
	ProviderID   string    `json:"provider_id"`
	ServiceType  string    `json:"service_type"`
	AgreedPrice  float64   `json:"agreed_price"`
	Currency     string    `json:"currency"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// BookingService is the contract exposed to calling layers (HTTP handlers,
// background workers). It owns actor validation and state machine
// application; settlement mechanics are delegated to the orchestrator.
type BookingService interface {
	// CreateBooking persists the booking with its first ledger entry and
	// opens escrow for the agreed price. On gateway rejection the booking is
	// returned in payment_failed alongside the error.
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error)

	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)

	// StartService marks the engagement as underway.
	StartService(ctx context.Context, bookingID, actorID string, role models.ActorRole) (*models.Booking, error)

	// ConfirmCompletion records the acting party's completion confirmation
	// and triggers settlement once the confirmation protocol is satisfied.
	ConfirmCompletion(ctx context.Context, bookingID, actorID string, role models.ActorRole) (*models.Booking, error)

	// CancelBooking cancels and routes any held funds through the refund
	// path. Cancellation is irreversible even when the refund fails; refund
	// failures are queued for retry instead of blocking the cancellation.
	CancelBooking(ctx context.Context, bookingID, actorID string, role models.ActorRole, reason string) (*models.Booking, error)

	LedgerHistory(ctx context.Context, bookingID string) ([]models.PaymentLedgerEntry, error)

	// SweepGracePeriodSettlements settles provider-confirmed bookings whose
	// grace period has elapsed. Returns how many bookings were settled.
	SweepGracePeriodSettlements(ctx context.Context) (int, error)
}

// EscrowOrchestrator drives the hold -> (confirm) -> release-or-refund
// sequence against the payment gateway while tolerating partial failures.
type EscrowOrchestrator interface {
	OpenEscrow(ctx context.Context, b *models.Booking) (*models.PaymentLedgerEntry, error)
	Settle(ctx context.Context, bookingID string) (*models.Booking, error)
	Refund(ctx context.Context, bookingID string) (*models.PaymentLedgerEntry, error)

	// ManualRefund returns held funds for a booking stuck in payment_failed
	// or with a failed refund attempt, recording a fresh ledger entry for the
	// new attempt.
	ManualRefund(ctx context.Context, bookingID string) (*models.PaymentLedgerEntry, error)
}

// BookingLocker serializes operations on a single booking.
type BookingLocker interface {
	Acquire(ctx context.Context, bookingID string) (func(), error)
}

// RefundRetryEnqueuer queues a failed refund for asynchronous retry.
type RefundRetryEnqueuer interface {
	EnqueueRefundRetry(ctx context.Context, bookingID string) error
}
