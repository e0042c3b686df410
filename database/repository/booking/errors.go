package bookingRepo

import (
	"errors"
	"fmt"
)

// ErrNoLedgerEntry is returned when a booking has no ledger entries yet.
var ErrNoLedgerEntry = errors.New("no ledger entry for booking")

// ErrBookingNotFound is returned when no booking matches the requested id.
var ErrBookingNotFound = errors.New("booking not found")

// ConflictError signals that a guarded write lost a concurrent race: either
// the booking version moved, or the ledger entry was no longer in an
// advanceable status. Callers should re-read current state before deciding
// whether to retry.
type ConflictError struct {
	BookingID string
	Detail    string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("concurrent update on booking %s: %s", e.BookingID, e.Detail)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce ConflictError
	return errors.As(err, &ce)
}
