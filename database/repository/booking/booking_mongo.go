package bookingRepo

import (
	"prbal/database"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MongoBookingRepo implements Repository using MongoDB.
type MongoBookingRepo struct {
	bookingColl *mongo.Collection
	ledgerColl  *mongo.Collection
}

// NewMongoBookingRepo creates a new booking repository backed by the
// "bookings" and "ledger_entries" collections.
func NewMongoBookingRepo() Repository {
	repo := &MongoBookingRepo{
		bookingColl: database.Collection("bookings"),
		ledgerColl:  database.Collection("ledger_entries"),
	}
	if err := repo.ensureIndexes(); err != nil {
		zap.L().Warn("failed to ensure booking indexes", zap.Error(err))
	}
	return repo
}
