package payment

import "context"

// HoldResult is the gateway's handle for funds authorized and held in escrow.
type HoldResult struct {
	ProcessorRef string
}

// TransferResult references a completed capture/transfer to the payee.
type TransferResult struct {
	TransferRef string
}

// RefundResult references a completed refund of held funds.
type RefundResult struct {
	RefundRef string
}

// Gateway is the thin adapter contract over the external payment processor.
// Implementations are stateless and safe to share across concurrent bookings.
// Every failure is a *GatewayError so callers can branch on its kind.
type Gateway interface {
	// Hold authorizes the amount and holds it in escrow without capturing.
	// Calls with the same idempotency key are a single logical intent: the
	// processor must not create a second hold for a repeated key.
	Hold(ctx context.Context, amount float64, currency, idempotencyKey string) (*HoldResult, error)

	// Transfer captures the held funds and pays the payee amount out to the
	// provider's gateway account.
	Transfer(ctx context.Context, processorRef, payeeAccount string, amount float64, currency string) (*TransferResult, error)

	// Refund returns the held funds to the customer.
	Refund(ctx context.Context, processorRef string) (*RefundResult, error)
}
