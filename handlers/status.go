package handlers

import (
	"errors"
	"net/http"

	bookingRepo "prbal/database/repository/booking"
	payoutRepo "prbal/database/repository/payout"
	"prbal/services/booking"
	"prbal/services/payment"
)

// statusForError maps domain errors onto HTTP status codes. Conflicts and
// ambiguous processor states deliberately map to codes that tell the caller
// "do not blindly retry".
func statusForError(err error) int {
	if gwErr, ok := payment.AsGatewayError(err); ok {
		switch gwErr.Kind {
		case payment.GatewayDeclined:
			return http.StatusPaymentRequired
		case payment.GatewayUnavailable:
			return http.StatusServiceUnavailable
		default:
			return http.StatusBadGateway
		}
	}

	switch {
	case errors.Is(err, bookingRepo.ErrBookingNotFound),
		errors.Is(err, bookingRepo.ErrNoLedgerEntry),
		errors.Is(err, payoutRepo.ErrNoPayoutAccount):
		return http.StatusNotFound
	case bookingRepo.IsConflict(err):
		return http.StatusConflict
	}

	var invalid booking.InvalidTransitionError
	if errors.As(err, &invalid) {
		return http.StatusUnprocessableEntity
	}
	var notSettleable booking.NotSettleableError
	if errors.As(err, &notSettleable) {
		return http.StatusConflict
	}
	var reconcile booking.ReconciliationRequiredError
	if errors.As(err, &reconcile) {
		return http.StatusConflict
	}
	var notParty booking.NotPartyError
	if errors.As(err, &notParty) {
		return http.StatusForbidden
	}

	return http.StatusInternalServerError
}
