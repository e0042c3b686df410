package bookingRepo

import (
	"context"
	"time"

	"prbal/models"
)

// Repository defines the data access contract for bookings and their payment
// ledger entries. Booking updates use optimistic concurrency on the version
// field; ledger updates are guarded by the set of statuses they may advance
// from, so an entry can never move backward.
type Repository interface {
	// CreateWithEntry persists a booking together with its first ledger entry
	// in one transaction; a booking never exists without a ledger trail.
	CreateWithEntry(ctx context.Context, booking *models.Booking, entry *models.PaymentLedgerEntry) error

	GetByID(ctx context.Context, id string) (*models.Booking, error)

	// UpdateBooking replaces the booking document if its stored version still
	// matches booking.Version. Returns ConflictError when another writer got
	// there first. On success the in-memory version is bumped.
	UpdateBooking(ctx context.Context, booking *models.Booking) error

	// LatestEntry returns the most recent ledger entry for the booking, or
	// ErrNoLedgerEntry when none exists.
	LatestEntry(ctx context.Context, bookingID string) (*models.PaymentLedgerEntry, error)

	ListEntries(ctx context.Context, bookingID string) ([]models.PaymentLedgerEntry, error)

	// AppendEntry records a fresh payment attempt. Prior entries are never
	// mutated by retries.
	AppendEntry(ctx context.Context, entry *models.PaymentLedgerEntry) error

	// UpdateEntry writes the entry if its stored status is one of `from`.
	// Returns ConflictError otherwise.
	UpdateEntry(ctx context.Context, entry *models.PaymentLedgerEntry, from ...models.LedgerStatus) error

	// UpdateBookingAndEntry applies both guarded writes inside a single
	// transaction so booking and ledger state stay mutually consistent.
	UpdateBookingAndEntry(ctx context.Context, booking *models.Booking, entry *models.PaymentLedgerEntry, from ...models.LedgerStatus) error

	// ListGraceEligible finds bookings whose provider confirmed completion at
	// or before the cutoff and whose customer never responded.
	ListGraceEligible(ctx context.Context, confirmedBefore time.Time) ([]models.Booking, error)
}
