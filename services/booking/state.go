package booking

import (
	"time"

	"prbal/models"
)

// transitions is the authority on legal booking status changes, independent
// of payment outcome. payment_failed is reachable both from payment_pending
// (transfer rejected) and from scheduled (the initial hold was rejected at
// creation). A completed booking can no longer be cancelled.
var transitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingScheduled: {
		models.BookingInProgress,
		models.BookingCompleted,
		models.BookingPaymentFailed,
		models.BookingCancelledByCustomer,
		models.BookingCancelledByProvider,
	},
	models.BookingInProgress: {
		models.BookingCompleted,
		models.BookingCancelledByCustomer,
		models.BookingCancelledByProvider,
	},
	models.BookingCompleted: {
		models.BookingPaymentPending,
	},
	models.BookingPaymentPending: {
		models.BookingPaid,
		models.BookingPaymentFailed,
	},
	models.BookingPaid:                {},
	models.BookingPaymentFailed:       {},
	models.BookingCancelledByCustomer: {},
	models.BookingCancelledByProvider: {},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to models.BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transitionTo applies a status change or rejects it with InvalidTransitionError.
func transitionTo(b *models.Booking, to models.BookingStatus) error {
	if !CanTransition(b.Status, to) {
		return InvalidTransitionError{BookingID: b.ID, From: b.Status, Action: "move to " + string(to)}
	}
	b.Status = to
	return nil
}

// applyConfirmation records a completion confirmation from one party.
// Timestamps are set at most once and never cleared; a second call by the
// same actor or a call after a terminal state is an invalid transition. The
// provider's confirmation is what moves the booking to completed; a
// customer-only confirmation leaves the status untouched, since the provider
// must also affirmatively declare the work delivered.
func applyConfirmation(b *models.Booking, role models.ActorRole, now time.Time) error {
	switch b.Status {
	case models.BookingScheduled, models.BookingInProgress, models.BookingCompleted:
	default:
		return InvalidTransitionError{BookingID: b.ID, From: b.Status, Action: "confirm completion"}
	}
	if b.ConfirmedBy(role) != nil {
		return InvalidTransitionError{BookingID: b.ID, From: b.Status, Action: "confirm completion twice as " + string(role)}
	}

	ts := now
	if role == models.ActorProvider {
		b.ProviderConfirmedAt = &ts
	} else {
		b.CustomerConfirmedAt = &ts
	}

	if b.ProviderConfirmedAt != nil && b.Status != models.BookingCompleted {
		return transitionTo(b, models.BookingCompleted)
	}
	return nil
}

// applyCancellation moves the booking into the cancelled state for the
// acting role and records the cancellation metadata. Cancellation is only
// legal before completion.
func applyCancellation(b *models.Booking, role models.ActorRole, actorID, reason string, now time.Time) error {
	target := models.BookingCancelledByCustomer
	if role == models.ActorProvider {
		target = models.BookingCancelledByProvider
	}
	if err := transitionTo(b, target); err != nil {
		return InvalidTransitionError{BookingID: b.ID, From: b.Status, Action: "cancel"}
	}
	b.CancellationReason = reason
	b.CancelledBy = actorID
	ts := now
	b.CancelledAt = &ts
	return nil
}
