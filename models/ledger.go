package models

import "time"

// LedgerStatus enumerates the states of a payment ledger entry. Transitions
// are monotonic: pending -> held_in_escrow -> {released_to_provider |
// refunded | failed}. An entry never moves backward; retries after a failure
// are recorded as fresh entries so the audit trail survives.
type LedgerStatus string

const (
	LedgerPending      LedgerStatus = "pending"
	LedgerHeldInEscrow LedgerStatus = "held_in_escrow"
	LedgerReleased     LedgerStatus = "released_to_provider"
	LedgerRefunded     LedgerStatus = "refunded"
	LedgerFailed       LedgerStatus = "failed"
)

// Terminal reports whether no further transition is legal for this status.
func (s LedgerStatus) Terminal() bool {
	switch s {
	case LedgerReleased, LedgerRefunded, LedgerFailed:
		return true
	}
	return false
}

// PaymentLedgerEntry records one payment attempt for a booking. There is at
// most one non-terminal entry per booking at a time, but history is
// append-only: refunded and failed entries are retained, never overwritten.
type PaymentLedgerEntry struct {
	ID        string `bson:"id" json:"id"`
	BookingID string `bson:"booking_id" json:"booking_id"`

	Amount   float64 `bson:"amount" json:"amount"`
	Currency string  `bson:"currency" json:"currency"`

	// ProcessorRef is the opaque handle returned by the gateway for the hold.
	// TransferRef and RefundRef are set when the corresponding operation
	// succeeds.
	ProcessorRef string `bson:"processor_ref,omitempty" json:"processor_ref,omitempty"`
	TransferRef  string `bson:"transfer_ref,omitempty" json:"transfer_ref,omitempty"`
	RefundRef    string `bson:"refund_ref,omitempty" json:"refund_ref,omitempty"`

	Status LedgerStatus `bson:"status" json:"status"`

	// ErrorDetail carries the processor error code/message, set only on failed
	// entries, so manual reconciliation has something to work with.
	ErrorDetail string `bson:"error_detail,omitempty" json:"error_detail,omitempty"`

	// IdempotencyKey ties every gateway call for this entry to one logical
	// intent; a retry reuses the key and can never double-charge.
	IdempotencyKey string `bson:"idempotency_key" json:"idempotency_key"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
