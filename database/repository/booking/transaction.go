package bookingRepo

import (
	"context"
	"fmt"

	"prbal/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// CreateWithEntry inserts the booking and its first ledger entry atomically.
func (r *MongoBookingRepo) CreateWithEntry(ctx context.Context, booking *models.Booking, entry *models.PaymentLedgerEntry) error {
	return r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := r.bookingColl.InsertOne(sc, booking); err != nil {
			return fmt.Errorf("insert booking failed: %w", err)
		}
		if _, err := r.ledgerColl.InsertOne(sc, entry); err != nil {
			return fmt.Errorf("insert ledger entry failed: %w", err)
		}
		return nil
	})
}

// UpdateBookingAndEntry applies the versioned booking write and the guarded
// ledger write inside one transaction. This is the per-booking transactional
// boundary that keeps the Booking+Ledger pair atomically visible after a
// gateway response.
func (r *MongoBookingRepo) UpdateBookingAndEntry(ctx context.Context, booking *models.Booking, entry *models.PaymentLedgerEntry, from ...models.LedgerStatus) error {
	return r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		if err := r.replaceBookingVersioned(sc, r.bookingColl, booking); err != nil {
			return err
		}
		return r.replaceEntryGuarded(sc, r.ledgerColl, entry, from)
	})
}

func (r *MongoBookingRepo) withTransaction(ctx context.Context, txnFn func(sc mongo.SessionContext) error) error {
	client := r.bookingColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		if IsConflict(err) {
			return err
		}
		return fmt.Errorf("booking transaction failed: %w", err)
	}

	return nil
}
