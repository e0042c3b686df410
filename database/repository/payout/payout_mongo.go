package payoutRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prbal/database"
	"prbal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNoPayoutAccount is returned when a provider has no usable payout account.
var ErrNoPayoutAccount = errors.New("provider has no active payout account")

// MongoPayoutRepo implements Repository using MongoDB.
type MongoPayoutRepo struct {
	coll *mongo.Collection
}

// NewMongoPayoutRepo creates a payout account repository backed by the
// "payout_accounts" collection.
func NewMongoPayoutRepo() Repository {
	return &MongoPayoutRepo{coll: database.Collection("payout_accounts")}
}

func (r *MongoPayoutRepo) ActiveAccount(ctx context.Context, providerID string) (*models.PayoutAccount, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"provider_id": providerID, "active": true, "verified": true}
	opts := options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})

	var account models.PayoutAccount
	if err := r.coll.FindOne(ctxWithTimeout, filter, opts).Decode(&account); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoPayoutAccount
		}
		return nil, fmt.Errorf("failed to fetch payout account for provider %s: %w", providerID, err)
	}
	return &account, nil
}

func (r *MongoPayoutRepo) Upsert(ctx context.Context, account *models.PayoutAccount) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	account.UpdatedAt = time.Now().UTC()
	filter := bson.M{"provider_id": account.ProviderID, "account_type": account.AccountType}
	update := bson.M{"$set": account}
	opts := options.Update().SetUpsert(true)
	if _, err := r.coll.UpdateOne(ctxWithTimeout, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert payout account for provider %s: %w", account.ProviderID, err)
	}
	return nil
}
