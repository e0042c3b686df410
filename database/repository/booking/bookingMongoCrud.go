package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prbal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetByID retrieves a booking by its ID.
func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var booking models.Booking
	err := r.bookingColl.FindOne(ctxWithTimeout, bson.M{"id": id}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to fetch booking %s: %w", id, err)
	}
	return &booking, nil
}

// UpdateBooking replaces the booking document guarded by its version.
func (r *MongoBookingRepo) UpdateBooking(ctx context.Context, booking *models.Booking) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.replaceBookingVersioned(ctxWithTimeout, r.bookingColl, booking)
}

// replaceBookingVersioned performs the optimistic read-modify-write: the
// filter matches the version the caller loaded, the replacement carries the
// incremented one. sc may be a session context inside a transaction.
func (r *MongoBookingRepo) replaceBookingVersioned(sc context.Context, coll *mongo.Collection, booking *models.Booking) error {
	prev := booking.Version
	booking.Version = prev + 1
	booking.UpdatedAt = time.Now().UTC()

	res, err := coll.ReplaceOne(sc, bson.M{"id": booking.ID, "version": prev}, booking)
	if err != nil {
		booking.Version = prev
		return fmt.Errorf("failed to update booking %s: %w", booking.ID, err)
	}
	if res.MatchedCount == 0 {
		booking.Version = prev
		return ConflictError{BookingID: booking.ID, Detail: "booking version changed"}
	}
	return nil
}

// LatestEntry returns the most recently created ledger entry for the booking.
func (r *MongoBookingRepo) LatestEntry(ctx context.Context, bookingID string) (*models.PaymentLedgerEntry, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var entry models.PaymentLedgerEntry
	err := r.ledgerColl.FindOne(ctxWithTimeout, bson.M{"booking_id": bookingID}, opts).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoLedgerEntry
		}
		return nil, fmt.Errorf("failed to fetch ledger entry for booking %s: %w", bookingID, err)
	}
	return &entry, nil
}

// ListEntries returns the full ledger history for a booking, oldest first.
func (r *MongoBookingRepo) ListEntries(ctx context.Context, bookingID string) ([]models.PaymentLedgerEntry, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.ledgerColl.Find(ctxWithTimeout, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries for booking %s: %w", bookingID, err)
	}
	defer cursor.Close(ctxWithTimeout)

	var entries []models.PaymentLedgerEntry
	if err := cursor.All(ctxWithTimeout, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode ledger entries for booking %s: %w", bookingID, err)
	}
	return entries, nil
}

// AppendEntry inserts a fresh ledger entry.
func (r *MongoBookingRepo) AppendEntry(ctx context.Context, entry *models.PaymentLedgerEntry) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.ledgerColl.InsertOne(ctxWithTimeout, entry); err != nil {
		return fmt.Errorf("failed to append ledger entry for booking %s: %w", entry.BookingID, err)
	}
	return nil
}

// UpdateEntry writes the entry if its stored status is in the allowed set.
func (r *MongoBookingRepo) UpdateEntry(ctx context.Context, entry *models.PaymentLedgerEntry, from ...models.LedgerStatus) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.replaceEntryGuarded(ctxWithTimeout, r.ledgerColl, entry, from)
}

func (r *MongoBookingRepo) replaceEntryGuarded(sc context.Context, coll *mongo.Collection, entry *models.PaymentLedgerEntry, from []models.LedgerStatus) error {
	entry.UpdatedAt = time.Now().UTC()

	filter := bson.M{"id": entry.ID}
	if len(from) > 0 {
		filter["status"] = bson.M{"$in": from}
	}
	res, err := coll.ReplaceOne(sc, filter, entry)
	if err != nil {
		return fmt.Errorf("failed to update ledger entry %s: %w", entry.ID, err)
	}
	if res.MatchedCount == 0 {
		return ConflictError{BookingID: entry.BookingID, Detail: "ledger entry no longer in an advanceable status"}
	}
	return nil
}

// ListGraceEligible finds provider-confirmed bookings past the grace cutoff
// with no customer confirmation.
func (r *MongoBookingRepo) ListGraceEligible(ctx context.Context, confirmedBefore time.Time) ([]models.Booking, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"status":                bson.M{"$in": []models.BookingStatus{models.BookingCompleted, models.BookingPaymentPending}},
		"provider_confirmed_at": bson.M{"$lte": confirmedBefore},
		"customer_confirmed_at": bson.M{"$exists": false},
	}
	cursor, err := r.bookingColl.Find(ctxWithTimeout, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query grace-eligible bookings: %w", err)
	}
	defer cursor.Close(ctxWithTimeout)

	var bookings []models.Booking
	if err := cursor.All(ctxWithTimeout, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode grace-eligible bookings: %w", err)
	}
	return bookings, nil
}
