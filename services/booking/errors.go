package booking

import (
	"fmt"

	"prbal/models"
)

// InvalidTransitionError signals that a requested state change violates the
// booking state machine. It is always rejected and surfaced to the caller
// verbatim, never retried.
type InvalidTransitionError struct {
	BookingID string
	From      models.BookingStatus
	Action    string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for booking %s: cannot %s from status %q", e.BookingID, e.Action, e.From)
}

// NotSettleableError signals that the completion confirmation protocol does
// not yet allow settlement.
type NotSettleableError struct {
	BookingID string
	Reason    string
}

func (e NotSettleableError) Error() string {
	return fmt.Sprintf("booking %s not yet eligible for settlement: %s", e.BookingID, e.Reason)
}

// ReconciliationRequiredError signals that the local ledger is in an
// ambiguous state relative to the processor (e.g. a crash between a gateway
// call and the local write) and must be reconciled against the processor's
// authoritative records before any fresh attempt.
type ReconciliationRequiredError struct {
	BookingID string
	Detail    string
}

func (e ReconciliationRequiredError) Error() string {
	return fmt.Sprintf("booking %s requires reconciliation before retrying: %s", e.BookingID, e.Detail)
}

// NotPartyError signals that the acting user is not one of the two booking
// parties. This check is load-bearing for the audit trail even though
// permission policy proper lives in the calling layer.
type NotPartyError struct {
	BookingID string
	ActorID   string
	Role      models.ActorRole
}

func (e NotPartyError) Error() string {
	return fmt.Sprintf("actor %s is not the %s on booking %s", e.ActorID, e.Role, e.BookingID)
}
