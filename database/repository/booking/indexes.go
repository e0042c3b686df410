package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ensureIndexes creates indexes for frequently used fields in queries.
func (r *MongoBookingRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bookingIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "customer_id", Value: 1}}},
		{Keys: bson.D{{Key: "provider_id", Value: 1}}},
		// Serves the grace-period sweep query.
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "provider_confirmed_at", Value: 1},
		}},
	}
	if _, err := r.bookingColl.Indexes().CreateMany(ctx, bookingIdx); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}

	ledgerIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{
			{Key: "booking_id", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		// One logical gateway intent per key.
		{Keys: bson.D{{Key: "idempotency_key", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := r.ledgerColl.Indexes().CreateMany(ctx, ledgerIdx); err != nil {
		return fmt.Errorf("failed to create ledger indexes: %w", err)
	}

	return nil
}
